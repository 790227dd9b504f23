package detector

import (
	"time"

	"github.com/ayusman/mudra/internal/capture"
)

func frameTime(f *capture.Frame) time.Time {
	if f == nil || f.Timestamp.IsZero() {
		return time.Now()
	}
	return f.Timestamp
}

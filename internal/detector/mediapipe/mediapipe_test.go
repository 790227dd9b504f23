package mediapipe

import (
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

func TestParseResponse(t *testing.T) {
	line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0.0},{"x":0.3,"y":0.4,"z":0.1}],"handedness":"Left","score":0.87}]}` + "\n")

	hands, err := parseResponse(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hands) != 1 {
		t.Fatalf("expected 1 hand, got %d", len(hands))
	}
	if hands[0].Handedness != "Left" || hands[0].Score != 0.87 {
		t.Errorf("unexpected hand %+v", hands[0])
	}
	if hands[0].Points[detector.ThumbCMC].Y != 0.4 {
		t.Errorf("expected thumb CMC Y 0.4, got %f", hands[0].Points[detector.ThumbCMC].Y)
	}

	if _, err := parseResponse([]byte(`{"error":"no model"}`)); err == nil {
		t.Error("expected service error to be returned")
	}
	if _, err := parseResponse([]byte(`not json`)); err == nil {
		t.Error("expected parse error")
	}
}

func TestParseResponse_TruncatesExtraPoints(t *testing.T) {
	points := make([]detector.Point3D, detector.NumLandmarks+3)
	for i := range points {
		points[i] = detector.Point3D{X: float64(i)}
	}

	hand := jsonHand{Points: points, Handedness: "Right", Score: 0.5}.toLandmarks()
	if got := hand.Points[detector.NumLandmarks-1].X; got != float64(detector.NumLandmarks-1) {
		t.Errorf("last landmark X = %f, want %d", got, detector.NumLandmarks-1)
	}
}

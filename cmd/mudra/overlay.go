package main

import (
	"context"
	"fmt"

	"github.com/zserge/lorca"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
)

const (
	overlayWidth  = 480
	overlayHeight = 640
)

// openOverlay shows the overlay page in a Chrome app window and blocks until
// the window is closed or ctx is done.
func openOverlay(ctx context.Context, url string, a *app.App) error {
	ui, err := lorca.New(url, "", overlayWidth, overlayHeight)
	if err != nil {
		return fmt.Errorf("failed to create overlay window: %w", err)
	}
	defer ui.Close()

	if err := ui.Bind("detectorStatus", a.Status); err != nil {
		return fmt.Errorf("failed to bind detector status: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-ui.Done():
	}
	return nil
}

// overlayOpener opens at most one overlay window at a time.
func overlayOpener(ctx context.Context, url string, a *app.App) func() {
	log := zap.L().Named("overlay")
	busy := make(chan struct{}, 1)

	return func() {
		select {
		case busy <- struct{}{}:
		default:
			return
		}
		go func() {
			defer func() { <-busy }()
			if err := openOverlay(ctx, url, a); err != nil {
				log.Warn("overlay unavailable", zap.String("url", url), zap.Error(err))
			}
		}()
	}
}

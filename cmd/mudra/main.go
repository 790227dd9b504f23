package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture/gocvcam"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

type options struct {
	configPath string
	addr       string
	camera     int
	dbPath     string
	webDir     string
	strategy   string
	tray       bool
	debug      bool
	autostart  bool
}

// parseFlags parses args. Errors and usage are written to output.
func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("mudra", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.configPath, "config", "", "path to a JSON configuration file")
	fs.StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	fs.IntVar(&opts.camera, "camera", 0, "camera device ID")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite database path (default ~/.mudra/mudra.db)")
	fs.StringVar(&opts.webDir, "web", "", "directory with the overlay web files")
	fs.StringVar(&opts.strategy, "strategy", strategyHeuristic, "detection strategy: heuristic or landmark")
	fs.BoolVar(&opts.tray, "tray", false, "show a system tray menu")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.autostart, "autostart", true, "start detection on launch")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.strategy != strategyHeuristic && opts.strategy != strategyLandmark {
		err := fmt.Errorf("unknown strategy %q", opts.strategy)
		fmt.Fprintln(output, err)
		fs.Usage()
		return opts, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	logger, err := newLogger(opts.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(opts); err != nil {
		logger.Fatal("mudra exited", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(opts options) error {
	log := zap.L().Named("main")

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPath, err := resolveDBPath(opts.dbPath)
	if err != nil {
		return err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", zap.String("path", dbPath))

	cam := gocvcam.New(opts.camera, cfg.Sampler.Width)
	if err := openCamera(ctx, cam, cameraRetries); err != nil {
		return err
	}
	defer cam.Close()
	log.Info("camera opened", zap.Int("device", opts.camera))

	factory, err := chooseStrategy(opts.strategy)
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		Detection: cfg,
		Source:    cam,
		Store:     st,
		Strategy:  factory,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Stop(); err != nil {
			log.Warn("stop detection", zap.Error(err))
		}
	}()

	webDir := opts.webDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})
	httpServer := srv.Handler(opts.addr)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", opts.addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if opts.autostart {
		if err := a.Start(ctx, nil); err != nil {
			return fmt.Errorf("start detection: %w", err)
		}
	}

	if opts.tray {
		t := newTray(ctx, a, opts)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// Blocks on the main goroutine until Quit.
		t.Run()
		stop()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	return nil
}

// newTray wires the tray menu to the detector.
func newTray(ctx context.Context, a *app.App, opts options) *tray.Tray {
	t := tray.New(opts.autostart)
	t.OnToggle(func(enabled bool) error {
		if enabled {
			return a.Start(ctx, nil)
		}
		return a.Stop()
	})
	t.OnOpen(overlayOpener(ctx, overlayURL(opts.addr), a))

	events, cancel := a.Subscribe()
	go func() {
		<-ctx.Done()
		cancel()
	}()
	go t.Follow(events)

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetStatus(string(a.State()))
			}
		}
	}()
	return t
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func overlayURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

func resolveDBPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mudra.db"), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

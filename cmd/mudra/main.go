// Command mudra controls a media player with pinch gestures seen by a
// webcam.
//
// Usage:
//
//	mudra [run] [-config file] [-tray] [-dry-run]
//	mudra export [-config file] [-session id] [-o file]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/telemetry"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && (args[0] == "run" || args[0] == "export") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "export":
		err = runExport(args)
	default:
		err = runController(args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}
}

func runController(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	trayFlag := fs.Bool("tray", false, "Show the system tray menu")
	dryRun := fs.Bool("dry-run", false, "Log commands instead of driving a player")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dryRun {
		cfg.DryRun = true
	}

	closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	log := logging.For("main")

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	sink, err := app.OpenSink(cfg)
	if err != nil {
		return err
	}
	det := app.OpenDetector(cfg.Detector)
	defer det.Close()

	a, err := app.New(app.Config{
		Settings: cfg,
		Store:    st,
		Camera:   capture.NewCamera(cfg.Camera),
		Detector: det,
		Sink:     sink,
	})
	if err != nil {
		return err
	}

	hub := server.NewHub()
	a.Recorder().AddSink(hub)

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Controller: a,
		Preview:    a.Preview(),
		Hub:        hub,
		StreamFPS:  cfg.Server.StreamFPS,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tr *tray.Tray
	if *trayFlag {
		state := a.Engine().State()
		tr = tray.New(a.IsEnabled(), state.Speed, state.Volume)
		tr.OnToggle(func(enabled bool) {
			if err := a.SetEnabled(enabled); err != nil {
				log.Error().Err(err).Msg("failed to save enabled setting")
			}
		})
		tr.OnSettings(func() { openBrowser("http://" + cfg.Server.Addr) })
		tr.OnQuit(stop)
		a.Recorder().AddSink(tr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, cfg.Server.Addr) })
	g.Go(func() error {
		// The camera ending stops everything else.
		defer stop()
		return a.Run(gctx)
	})

	if tr != nil {
		// systray needs the main goroutine.
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shut down gracefully")
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	sessionID := fs.String("session", "", "Session to export (default: latest)")
	output := fs.String("o", "", "Output CSV file (default: stdout)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return export(context.Background(), st, *sessionID, *output, os.Stdout)
}

// export writes a session's outcomes as CSV to path, or to stdout when path
// is empty.
func export(ctx context.Context, st *store.Store, sessionID, path string, stdout io.Writer) error {
	var (
		session *store.Session
		err     error
	)
	if sessionID == "" {
		session, err = st.Sessions().Latest()
	} else {
		session, err = st.Sessions().GetByID(sessionID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no session to export")
		}
		return err
	}

	outcomes, err := st.Outcomes().List(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load outcomes: %w", err)
	}

	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return telemetry.WriteCSV(w, outcomes)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logging.For("main").Warn().Err(err).Str("url", url).Msg("failed to open browser")
	}
}

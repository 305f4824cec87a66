package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/backdrop/internal/app"
	"github.com/ayusman/backdrop/internal/catalog"
	"github.com/ayusman/backdrop/internal/render"
	"github.com/ayusman/backdrop/internal/server"
	"github.com/ayusman/backdrop/internal/store"
	"github.com/ayusman/backdrop/internal/tray"
)

// flagSettings maps command-line flags to the settings they override.
var flagSettings = map[string]string{
	"camera":      app.KeyCameraID,
	"width":       app.KeyWidth,
	"height":      app.KeyHeight,
	"mirror":      app.KeyMirror,
	"backgrounds": app.KeyBackgroundsDir,
	"window":      app.KeyShowWindow,
}

// The tray and the preview window both need the main OS thread on some
// platforms, so the main goroutine never leaves it.
func init() {
	runtime.LockOSThread()
}

func main() {
	defaults := app.DefaultConfig()

	addr := flag.String("addr", server.DefaultAddr, "control panel listen address (empty disables it)")
	dbPath := flag.String("db", "", "settings database (default ~/.backdrop/backdrop.db)")
	noTray := flag.Bool("no-tray", false, "run without the system tray icon")
	flag.Int("camera", defaults.CameraID, "camera device id")
	flag.Int("width", defaults.Width, "capture width")
	flag.Int("height", defaults.Height, "capture height")
	flag.Bool("mirror", defaults.Mirror, "mirror the camera image")
	flag.String("backgrounds", defaults.BackgroundsDir, "directory of background images")
	flag.Bool("window", defaults.ShowWindow, "show the preview window")
	flag.Parse()

	fmt.Println("Backdrop - gesture-driven virtual background")

	if err := run(*addr, *dbPath, !*noTray); err != nil {
		log.Fatalf("Backdrop failed: %v", err)
	}
}

func run(addr, dbPath string, withTray bool) error {
	if dbPath == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return fmt.Errorf("data directory: %w", err)
		}
		dbPath = p
	}

	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	config, err := loadConfig(st)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(config.BackgroundsDir, config.Width, config.Height)
	if err != nil {
		return fmt.Errorf("load backgrounds: %w", err)
	}
	defer cat.Close()

	hub := server.NewStateHub()
	frames := server.NewFrameBuffer()

	deps := app.Deps{
		Catalog: cat,
		Events:  st.Events(),
		State:   []app.StatePublisher{hub},
		Frames:  frames,
	}
	if config.ShowWindow {
		if withTray && runtime.GOOS == "darwin" {
			log.Println("Preview window disabled: the tray owns the main thread on macOS (use -no-tray for the window)")
		} else {
			deps.NewDisplay = func() app.Display { return render.NewWindow() }
		}
	}

	var t *tray.Tray
	if withTray {
		t = tray.New()
		deps.State = append(deps.State, app.StatePublisherFunc(func(s server.State) {
			t.SetActiveBackground(s.ActiveName)
		}))
	}

	application, err := app.New(config, deps)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		webDir := findWebDir()
		if webDir != "" {
			fmt.Printf("Serving static files from: %s\n", webDir)
		}

		srv := server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Catalog:   cat,
			State:     hub,
			Frames:    frames,
			Validate:  app.ValidateSettings,
		})

		fmt.Printf("Control panel on http://%s\n", addr)
		go func() {
			if err := srv.Run(ctx, addr); err != nil {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	if t == nil {
		return application.Run(ctx)
	}

	t.OnToggle(application.SetEnabled)
	t.OnQuit(stop)
	t.OnOpenPanel(func() {
		if addr == "" {
			log.Println("Control panel is disabled")
			return
		}
		if err := openBrowser("http://" + addr); err != nil {
			log.Printf("Failed to open control panel: %v", err)
		}
	})

	done := make(chan error, 1)
	go func() {
		err := application.Run(ctx)
		stop()
		t.Quit()
		done <- err
	}()

	// The tray owns the main goroutine until it quits.
	t.Run()
	stop()
	return <-done
}

// loadConfig layers stored settings and then explicitly set flags over the
// defaults.
func loadConfig(st *store.Store) (app.Config, error) {
	config := app.DefaultConfig()

	stored, err := st.Settings().All()
	if err != nil {
		return config, fmt.Errorf("read settings: %w", err)
	}
	if err := config.ApplySettings(stored); err != nil {
		log.Printf("Ignoring stored settings: %v", err)
	}

	overrides := map[string]string{}
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagSettings[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	if err := config.ApplySettings(overrides); err != nil {
		return config, fmt.Errorf("invalid flags: %w", err)
	}

	return config, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.backdrop/web.
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

	homeWebDir := filepath.Join(homeDir, store.DataDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	default:
		return errors.New("unsupported platform " + runtime.GOOS)
	}
	return cmd.Start()
}

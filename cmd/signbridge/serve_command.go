package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmurali/signbridge/internal/app"
	"github.com/nmurali/signbridge/internal/config"
	"github.com/nmurali/signbridge/internal/logging"
	"github.com/nmurali/signbridge/internal/server"
	"github.com/nmurali/signbridge/internal/store"
	"github.com/nmurali/signbridge/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the translation pipeline and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, addr, withTray)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to the app config's listen_addr)")
	cmd.Flags().BoolVar(&withTray, "tray", false, "Show a system tray menu while serving")
	return cmd
}

func runServe(cmdCtx context.Context, cli *commandContext, addr string, withTray bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := cli.logger()
	registry := cli.registry(logger)

	appCfg, ok := config.Typed[*config.AppConfig](registry, "app")
	if !ok {
		appCfg = config.DefaultApp()
	}
	if addr == "" {
		addr = appCfg.ListenAddr
	}

	dataDir, _ := registry.GetPath("data_dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(filepath.Join(dataDir, "signbridge.db"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	events := server.NewHub(logger)

	application := app.New(app.Config{
		Root:     *cli.root,
		Registry: registry,
		Store:    st,
		Events:   events,
		Logger:   logger,
	})
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Stop()

	webDir := findWebDir(*cli.root)
	if webDir != "" {
		logger.Info("serving dashboard files", slog.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Registry:  registry,
		Pipeline:  application,
		Events:    events,
		Logger:    logger,
	})

	httpServer := &http.Server{Addr: addr, Handler: srv}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	if withTray {
		runTray(signalCtx, cancel, application, addr)
	} else {
		<-signalCtx.Done()
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", logging.Err(err))
	}

	select {
	case err := <-serverErr:
		return err
	default:
		return nil
	}
}

// runTray blocks running the system tray event loop until the user
// quits or ctx is cancelled. systray requires the main goroutine, so
// the status poller runs on the side.
func runTray(ctx context.Context, cancel context.CancelFunc, application *app.App, addr string) {
	tr := tray.New()
	tr.SetEnabled(application.IsEnabled())
	tr.OnToggle(application.SetEnabled)
	tr.OnDashboard(func() {
		if err := openBrowser(dashboardURL(addr)); err != nil {
			fmt.Fprintln(os.Stderr, "open dashboard:", err)
		}
	})
	tr.OnQuit(cancel)

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				tr.Quit()
				return
			case <-ticker.C:
				status := application.Status()
				tr.SetEnabled(status.Enabled)
				tr.SetLastTranslation(status.LastGloss)
			}
		}
	}()

	tr.Run()
}

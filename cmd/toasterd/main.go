// Package main is the entry point for the toasterd desktop toast daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/toaster/internal/audio"
	"github.com/jmylchreest/toaster/internal/config"
	"github.com/jmylchreest/toaster/internal/daemon"
	"github.com/jmylchreest/toaster/internal/dbus"
	"github.com/jmylchreest/toaster/internal/display"
	"github.com/jmylchreest/toaster/internal/dom"
	"github.com/jmylchreest/toaster/internal/httpapi"
	"github.com/jmylchreest/toaster/internal/model"
	"github.com/jmylchreest/toaster/internal/store"
	"github.com/jmylchreest/toaster/internal/theme"
	"github.com/jmylchreest/toaster/internal/toast"
)

const appID = "io.github.jmylchreest.toasterd"

var (
	// Build-time variables
	version = "dev"
)

func main() {
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/toaster/toaster.toml)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("toasterd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	os.Exit(run(logger, *configPath))
}

// run starts the GTK application and returns its exit status.
func run(logger *slog.Logger, configPath string) int {
	logger.Info("starting toasterd", "version", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	app := adw.NewApplication(appID, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := store.NewQueue()
	doc := dom.NewDocument()
	metrics := httpapi.NewMetrics(queue)
	audioManager := audio.NewManager(cfg, logger)
	renderer := display.NewRenderer(&app.Application, queue, doc, cfg, logger)

	var bridge *daemon.Bridge
	manager := toast.NewManager(queue, doc, renderer,
		toast.WithLogger(logger),
		toast.WithShowHook(audioManager.OnShow),
		toast.WithHiddenHook(metrics.ObserveHidden),
		toast.WithHiddenHook(func(t *model.Toast, reason string) {
			bridge.OnHidden(t, reason)
		}),
	)

	bridge = daemon.NewBridge(ctx, manager, logger)
	bridge.SetSubmitObserver(func(class string, err error) {
		metrics.ObserveSubmit(httpapi.SourceDBus, class, err)
	})

	internalNotifier := daemon.NewInternalNotifier(logger)
	internalNotifier.SetSubmitFunc(func(text, class string) {
		go func() {
			if err := manager.SubmitMessage(ctx, text, class, false, ""); err != nil {
				logger.Warn("failed to show internal notification", "error", err)
			}
		}()
	})
	audioManager.SetErrorCallback(internalNotifier.NotifyAudioError)

	var (
		themeLoader   *theme.Loader
		themeWatcher  *daemon.FileWatcher
		configWatcher *daemon.ConfigWatcher
		dbusServer    *dbus.NotificationServer
		dbusMonitor   *dbus.Monitor
		httpServer    *httpapi.Server
		running       atomic.Bool
	)

	// watchTheme follows the file a user theme called name would live in, so
	// creating or editing it takes effect without a restart.
	watchTheme := func(name string) {
		if themeWatcher != nil {
			_ = themeWatcher.Stop()
		}
		themeWatcher = daemon.NewFileWatcher(config.ThemePath(name), logger)
		themeWatcher.SetChangeCallback(func() {
			glib.IdleAdd(func() {
				if themeLoader.Path() == "" {
					if err := themeLoader.LoadTheme(name); err != nil {
						internalNotifier.NotifyThemeError(err)
						return
					}
					internalNotifier.NotifyThemeReloaded(name)
					return
				}
				changed, err := themeLoader.Reload()
				if err != nil {
					logger.Warn("failed to reload theme", "theme", name, "error", err)
					internalNotifier.NotifyThemeError(err)
					return
				}
				if changed {
					internalNotifier.NotifyThemeReloaded(name)
				}
			})
		})
		if err := themeWatcher.Start(); err != nil {
			logger.Debug("theme hot-reload unavailable", "path", config.ThemePath(name), "error", err)
		}
	}

	shutdown := func() {
		if !running.CompareAndSwap(true, false) {
			return
		}
		cancel()

		if configWatcher != nil {
			_ = configWatcher.Stop()
		}
		if themeWatcher != nil {
			_ = themeWatcher.Stop()
		}
		if httpServer != nil {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error stopping HTTP API", "error", err)
			}
			done()
		}
		if dbusServer != nil {
			_ = dbusServer.Stop()
		}
		if dbusMonitor != nil {
			_ = dbusMonitor.Stop()
		}
		renderer.Stop()
		audioManager.Stop()
		_ = queue.Close()
		bridge.Wait()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		glib.IdleAdd(func() {
			shutdown()
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("application already running")
			return
		}

		themeLoader = theme.NewLoader(logger)
		if err := themeLoader.LoadTheme(cfg.Theme.Name); err != nil {
			logger.Warn("failed to load theme, using default", "theme", cfg.Theme.Name, "error", err)
			internalNotifier.NotifyThemeError(err)
		}
		themeLoader.Apply(nil)
		watchTheme(cfg.Theme.Name)

		audioManager.Start()

		if err := renderer.Start(); err != nil {
			logger.Error("failed to start display renderer", "error", err)
			app.Quit()
			return
		}

		dbusServer = dbus.NewNotificationServer(logger)
		info := dbus.DefaultServerInfo()
		info.Version = version
		dbusServer.SetServerInfo(info)
		dbusServer.SetNotifyHandler(bridge.HandleNotify)
		dbusServer.SetCloseHandler(bridge.HandleClose)

		if err := dbusServer.Start(); err != nil {
			dbusServer = nil
			if !errors.Is(err, dbus.ErrNameTaken) {
				logger.Error("failed to start D-Bus server", "error", err)
				renderer.Stop()
				app.Quit()
				return
			}

			// Another daemon owns the name: mirror its traffic without tracking IDs.
			logger.Warn("notification bus name taken, falling back to monitor mode")
			dbusMonitor = dbus.NewMonitor(logger)
			dbusMonitor.SetNotifyHandler(bridge.HandleNotify)
			if err := dbusMonitor.Start(); err != nil {
				logger.Warn("failed to start D-Bus monitor", "error", err)
				dbusMonitor = nil
			}
			internalNotifier.NotifyBusNameTaken()
		} else {
			bridge.SetSignaler(dbusServer)
		}

		if cfg.HTTP.Listen != "" {
			opts := []httpapi.Option{httpapi.WithLogger(logger)}
			if cfg.HTTP.Metrics {
				opts = append(opts, httpapi.WithMetrics(metrics))
			}
			httpServer = httpapi.NewServer(manager, opts...)
			if err := httpServer.Start(cfg.HTTP.Listen); err != nil {
				logger.Warn("failed to start HTTP API", "error", err)
				httpServer = nil
			}
		}

		configWatcher = daemon.NewConfigWatcher(configPath, logger)
		configWatcher.SetReloadCallback(func(newConfig *config.Config) {
			glib.IdleAdd(func() {
				renderer.UpdateConfig(newConfig)
				audioManager.UpdateConfig(newConfig)

				if newConfig.Theme.Name != cfg.Theme.Name {
					if err := themeLoader.LoadTheme(newConfig.Theme.Name); err != nil {
						logger.Warn("failed to load new theme", "theme", newConfig.Theme.Name, "error", err)
						internalNotifier.NotifyThemeError(err)
					} else {
						internalNotifier.NotifyThemeReloaded(newConfig.Theme.Name)
					}
					watchTheme(newConfig.Theme.Name)
				}
				if newConfig.HTTP != cfg.HTTP {
					logger.Warn("http settings changed, restart toasterd to apply them")
				}

				cfg = newConfig
				internalNotifier.NotifyConfigReloaded()
			})
		})
		configWatcher.SetErrorCallback(internalNotifier.NotifyConfigError)
		if err := configWatcher.Start(cfg); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}

		logger.Info("toasterd ready",
			"dbus_interface", dbus.DBusInterface,
			"theme", themeLoader.CurrentTheme(),
			"http", cfg.HTTP.Listen,
		)

		// GTK applications quit when their last window closes; keep one hidden.
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(&app.Application)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		shutdown()
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
	}
	return status
}

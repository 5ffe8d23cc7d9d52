// Package main is the entry point for the notifd notification daemon.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/notifd/internal/audio"
	"github.com/jmylchreest/notifd/internal/config"
	"github.com/jmylchreest/notifd/internal/daemon"
	"github.com/jmylchreest/notifd/internal/dbus"
	"github.com/jmylchreest/notifd/internal/display"
	"github.com/jmylchreest/notifd/internal/event"
	"github.com/jmylchreest/notifd/internal/history"
	"github.com/jmylchreest/notifd/internal/popup"
	"github.com/jmylchreest/notifd/internal/state"
)

const appID = "io.github.jmylchreest.notifd"

// Build-time variables.
var version = "dev"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		println("notifd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting notifd", "version", version)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfgPath, err := config.Path()
	if err != nil {
		logger.Error("failed to resolve config path", "error", err)
		os.Exit(1)
	}
	cfgStore := daemon.NewConfigStore(cfg, cfgPath, logger)

	app := adw.NewApplication(appID, 0)

	var (
		dbusServer       *dbus.Server
		historyStore     *history.Store
		player           *audio.Player
		serverEvents     *event.Queue[event.ServerEvent]
		dndController    *daemon.DndController
		configWatcher    *daemon.FileWatcher
		stateWatcher     *daemon.FileWatcher
		internalNotifier *daemon.InternalNotifier
		running          atomic.Bool
	)

	shutdown := func() {
		if !running.CompareAndSwap(true, false) {
			return
		}
		if configWatcher != nil {
			_ = configWatcher.Stop()
		}
		if stateWatcher != nil {
			_ = stateWatcher.Stop()
		}
		if dndController != nil {
			dndController.Stop()
		}
		if serverEvents != nil {
			serverEvents.Close()
		}
		if dbusServer != nil {
			_ = dbusServer.Stop()
		}
		if historyStore != nil {
			_ = historyStore.Close()
		}
		if player != nil {
			player.Close()
		}
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
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		historyPath, err := state.HistoryPath()
		if err != nil {
			logger.Error("failed to get history path", "error", err)
			app.Quit()
			return
		}
		persistence, err := history.NewJSONLPersistence(historyPath)
		if err != nil {
			logger.Error("failed to create history persistence", "error", err)
			app.Quit()
			return
		}
		historyStore = history.NewStore(persistence, logger)
		if err := historyStore.Load(); err != nil {
			logger.Warn("failed to load history", "error", err)
		}
		logger.Info("history store initialized", "path", historyPath, "count", historyStore.Len())

		serverState := state.NewServerState(false)
		serverEvents = event.NewQueue[event.ServerEvent]()
		feedback := event.NewQueue[event.UIEvent]()

		dbusServer = dbus.NewServer(cfgStore.Get, serverState, historyStore, serverEvents, logger)
		dbusServer.SetServerInfo(dbus.ServerInfo{
			Name:        "notifd",
			Vendor:      "notifd",
			Version:     version,
			SpecVersion: "1.2",
		})

		player = audio.NewPlayer(logger)
		sounds := audio.NewManager(cfgStore.Get, player, logger)

		factory := display.NewSurfaceFactory(&app.Application, cfgStore.Get, logger)
		manager := popup.NewManager(cfgStore.Get, factory, sounds, serverEvents, feedback, logger)
		go manager.Run()
		go dbusServer.RunFeedback(feedback)

		if err := dbusServer.Start(); err != nil {
			logger.Error("failed to start D-Bus server", "error", err)
			shutdown()
			app.Quit()
			return
		}

		internalNotifier = daemon.NewInternalNotifier(dbusServer, logger)
		internalNotifier.SetEnabled(cfgStore.Get().Behavior.SelfNotify)
		internalNotifier.NotifyStartup(version)

		statePath, err := state.StateFilePath()
		if err != nil {
			logger.Warn("failed to get state file path", "error", err)
		} else {
			dndController = daemon.NewDndController(cfgStore.Get, statePath, dbusServer, logger)
			dndController.OnChange = func(enabled, manual bool) {
				if manual {
					internalNotifier.NotifyDnDChanged(enabled)
				}
			}
			dndController.Start()

			stateWatcher, err = daemon.NewFileWatcher(statePath, dndController.Recompute, logger)
			if err != nil {
				logger.Warn("failed to create state watcher", "error", err)
			} else if err := stateWatcher.Start(); err != nil {
				logger.Warn("failed to start state watcher", "error", err)
			}
		}

		cfgStore.OnReload = func(newCfg *config.Config) {
			internalNotifier.SetEnabled(newCfg.Behavior.SelfNotify)
			internalNotifier.NotifyConfigReloaded()
			if dndController != nil {
				dndController.Recompute()
			}
		}
		cfgStore.OnError = func(err error) {
			internalNotifier.NotifyConfigError(err)
		}
		configWatcher, err = daemon.NewFileWatcher(cfgPath, func() { _ = cfgStore.Reload() }, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else if err := configWatcher.Start(); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}

		logger.Info("notifd ready", "dbus_interface", dbus.DBusInterface)

		// GTK applications quit when all windows are closed; keep a
		// hidden one around.
		keepAlive := gtk.NewWindow()
		keepAlive.SetApplication(&app.Application)
		keepAlive.SetDefaultSize(1, 1)
		keepAlive.SetDecorated(false)
		keepAlive.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		shutdown()
	})

	status := app.Run(os.Args)
	if status != 0 {
		logger.Error("application exited with error", "status", status)
		os.Exit(status)
	}

	logger.Info("notifd stopped")
}

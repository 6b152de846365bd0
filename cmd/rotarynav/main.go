package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("rotarynav v%s\n", version)
	fmt.Println("Rotary encoder radial menu daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  rotarynav -config FILE [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Reads a rotary encoder (Linux input devices) and drives a radial menu")
	fmt.Println("  overlay: a circular navigation carousel, notification menus that emit")
	fmt.Println("  dashboard notifications, and range menus that pick a bounded value.")
	fmt.Println("  Menu state is published to display clients over a websocket.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML configuration file (menu actions live here)")
	fmt.Println()
	fmt.Println("  -input-devices string")
	fmt.Println("        Comma separated evdev devices, e.g. /dev/input/event0,/dev/input/event1")
	fmt.Println()
	fmt.Println("  -grab")
	fmt.Println("        Take exclusive access to the input devices")
	fmt.Println()
	fmt.Println("  -debug-keyboard")
	fmt.Println("        Accept arrow keys and Enter as encoder input")
	fmt.Println()
	fmt.Println("  -debounce-ms int")
	fmt.Printf("        Input debounce after a menu switch in ms (default %d)\n", defaultDebounceMS)
	fmt.Println()
	fmt.Println("  -bus-ws-url string")
	fmt.Println("        Dashboard notification bus websocket URL (enables the bus)")
	fmt.Println()
	fmt.Println("  -view-port int")
	fmt.Println("        View websocket port, 0 disables (default 3002)")
	fmt.Println()
	fmt.Println("  -view-terminal")
	fmt.Println("        Draw the menus on this terminal")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/rotarynav.sock\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Encoder on a Raspberry Pi (rotary-encoder + gpio-keys overlays)")
	fmt.Println("  rotarynav -config /etc/rotarynav.yaml -input-devices /dev/input/event0,/dev/input/event1 -grab")
	fmt.Println()
	fmt.Println("  # Bench test with a keyboard and a terminal view")
	fmt.Println("  rotarynav -config rotarynav.yaml -input-devices /dev/input/event3 -debug-keyboard -view-terminal")
	fmt.Println()
	fmt.Println("  # Drive it without hardware")
	fmt.Println("  rotary-ctl left; rotary-ctl press")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to input devices (run as root or add user to 'input' group)")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath    = flag.String("config", "", "YAML configuration file")
		inputDevices  = flag.String("input-devices", "", "Comma separated evdev devices")
		grab          = flag.Bool("grab", false, "Take exclusive access to the input devices")
		debugKeyboard = flag.Bool("debug-keyboard", false, "Accept arrow keys and Enter as encoder input")
		debounceMS    = flag.Int("debounce-ms", defaultDebounceMS, "Input debounce after a menu switch (ms)")
		busWsURL      = flag.String("bus-ws-url", "", "Dashboard notification bus websocket URL")
		viewPort      = flag.Int("view-port", 3002, "View websocket port (0 disables)")
		viewTerminal  = flag.Bool("view-terminal", false, "Draw the menus on this terminal")
		ipcSocketPath = flag.String("ipc-socket", "/tmp/rotarynav.sock", "Unix domain socket path for IPC")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		_             = flag.Bool("version", false, "Print version and exit")
		_             = flag.Bool("help", false, "Print help message")
	)
	flag.Usage = printUsage
	flag.Parse()

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-devices":
			ov.InputDevices = inputDevices
		case "grab":
			ov.InputGrab = grab
		case "debug-keyboard":
			ov.DebugKeyboard = debugKeyboard
		case "debounce-ms":
			ov.DebounceMS = debounceMS
		case "bus-ws-url":
			ov.BusWsURL = busWsURL
		case "view-port":
			ov.ViewPort = viewPort
		case "view-terminal":
			ov.ViewTerminal = viewTerminal
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "log-level":
			ov.LogLevel = logLevelStr
		}
	})

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
	ov.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error: invalid config:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	var logOut io.Writer = os.Stdout
	if cfg.View.Terminal {
		logOut = os.Stderr
	}
	logger := setupLogger(logLevel, logOut)

	if err := run(cfg, logger); err != nil {
		logger.Error("rotarynav stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run wires the components and blocks until a signal or a fatal error.
func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan Event, 64)
	timers := make(chan func(), 64)
	sched := newLoopScheduler(ctx, timers)

	// Views
	var views multiView
	var ws *wsView
	if cfg.View.Port > 0 {
		ws = newWSView(0, logger)
		views = append(views, ws)
	}
	if cfg.View.Terminal {
		views = append(views, newTermView(os.Stdout))
	}
	var view View = nopView{}
	switch len(views) {
	case 0:
	case 1:
		view = views[0]
	default:
		view = views
	}

	// Bus
	var bus *BusClient
	deps := HostDeps{View: view, Scheduler: sched, Logger: logger}
	if cfg.Bus.Enabled {
		var err error
		if bus, err = NewBusClient(cfg.Bus.WsURL, logger.With("component", "bus"), cfg.Bus.TimeoutMS); err != nil {
			return err
		}
		deps.Notifier = bus
		deps.Modules = bus
	}

	host := NewHost(cfg.HostConfig(), deps)

	// Input devices are opened before anything starts so permission errors fail fast.
	var devs *inputDevices
	if len(cfg.Input.Devices) > 0 {
		var err error
		devs, err = openInputDevices(cfg.Input.Devices, cfg.Input.Grab, logger)
		if err != nil {
			logger.Error("failed to open input devices", "error", err, "tip", "run as root or add user to 'input' group")
			return err
		}
	} else {
		logger.Warn("no input devices configured; accepting IPC and bus input only")
	}

	g, gctx := errgroup.WithContext(ctx)

	var snapshot snapshotFunc
	if ws != nil {
		snapshot = ws.Snapshot
	}
	g.Go(func() error {
		runDaemon(gctx, events, timers, host, snapshot, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger.With("component", "ipc"))
	})

	if ws != nil {
		viewLogger := logger.With("component", "view")
		srv := NewViewServer(viewLogger, events, HubConfig{})
		mux := http.NewServeMux()
		srv.Register(mux, cfg.View.Path)

		g.Go(func() error {
			srv.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, srv.Hub(), ws.Outbound(), viewLogger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.View.Port, mux, viewLogger)
		})
	}

	if bus != nil {
		g.Go(func() error {
			return bus.Run(gctx, events)
		})
	}

	if devs != nil {
		tr := newGestureTranslator(cfg.gestureConfig())
		g.Go(func() error {
			return runInputBridge(gctx, devs, tr, events, logger.With("component", "input"))
		})
	}

	logger.Info("listening",
		"devices", cfg.Input.Devices,
		"ipc", cfg.IPC.SocketPath,
		"view_port", cfg.View.Port,
		"bus", cfg.Bus.Enabled,
		"actions", len(cfg.Menu.Actions))

	return g.Wait()
}

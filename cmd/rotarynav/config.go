package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the rotarynav daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. Durations are in milliseconds in the file.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Menu    MenuConfig    `yaml:"menu"`
	Bus     BusConfig     `yaml:"bus"`
	View    ViewConfig    `yaml:"view"`
	IPC     IPCConfig     `yaml:"ipc"`
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	Devices        []string `yaml:"devices,omitempty"` // evdev paths; empty runs without hardware
	Grab           bool     `yaml:"grab"`
	ButtonCode     uint16   `yaml:"button_code"`
	RelCode        uint16   `yaml:"rel_code"`
	InvertRotation bool     `yaml:"invert_rotation"`
	LongPressMS    int      `yaml:"long_press_ms"`
	DebugKeyboard  bool     `yaml:"debug_keyboard"`
}

type MenuConfig struct {
	DebounceMS   int                    `yaml:"debounce_ms"`
	Actions      []Action               `yaml:"actions"`
	Navigation   NavigationFileConfig   `yaml:"navigation"`
	Notification NotificationFileConfig `yaml:"notification"`
	Range        RangeFileConfig        `yaml:"range"`
}

type NavigationFileConfig struct {
	AutoHideMS   int `yaml:"auto_hide_ms"`
	TransitionMS int `yaml:"transition_ms"`
}

type NotificationFileConfig struct {
	AutoHideMS    int `yaml:"auto_hide_ms"`
	InfoMS        int `yaml:"info_ms"`
	ModuleSpeedMS int `yaml:"module_speed_ms"`
}

type RangeFileConfig struct {
	AutoHideMS   int `yaml:"auto_hide_ms"`
	ResetDelayMS int `yaml:"reset_delay_ms"`
}

type BusConfig struct {
	Enabled   bool   `yaml:"enabled"`
	WsURL     string `yaml:"ws_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type ViewConfig struct {
	Port     int    `yaml:"port"` // 0 disables the websocket view
	Path     string `yaml:"path"`
	Terminal bool   `yaml:"terminal"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// There are no default actions; a config file has to supply them.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			ButtonCode:  KEY_ENTER,
			RelCode:     REL_X,
			LongPressMS: defaultLongPressMS,
		},
		Menu: MenuConfig{
			DebounceMS: defaultDebounceMS,
			Navigation: NavigationFileConfig{
				AutoHideMS:   defaultNavAutoHideMS,
				TransitionMS: defaultTransitionMS,
			},
			Notification: NotificationFileConfig{
				AutoHideMS:    defaultMenuAutoHideMS,
				InfoMS:        defaultInfoMS,
				ModuleSpeedMS: defaultModuleSpeedMS,
			},
			Range: RangeFileConfig{
				AutoHideMS:   defaultMenuAutoHideMS,
				ResetDelayMS: defaultRangeResetDelayMS,
			},
		},
		Bus: BusConfig{
			Enabled:   false,
			WsURL:     "ws://127.0.0.1:8080/notifications",
			TimeoutMS: defaultBusTimeoutMS,
		},
		View: ViewConfig{
			Port: 3002,
			Path: "/ws",
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/rotarynav.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries command line overrides; nil pointers are ignored and
// non-nil ones are applied even when they hold a zero value.
type FlagOverrides struct {
	InputDevices  *string // comma separated
	InputGrab     *bool
	DebugKeyboard *bool

	DebounceMS *int

	BusEnabled *bool
	BusWsURL   *string

	ViewPort     *int
	ViewTerminal *bool

	IPCSocketPath *string
	LogLevel      *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevices != nil {
		cfg.Input.Devices = splitList(*o.InputDevices)
	}
	if o.InputGrab != nil {
		cfg.Input.Grab = *o.InputGrab
	}
	if o.DebugKeyboard != nil {
		cfg.Input.DebugKeyboard = *o.DebugKeyboard
	}
	if o.DebounceMS != nil {
		cfg.Menu.DebounceMS = *o.DebounceMS
	}
	if o.BusEnabled != nil {
		cfg.Bus.Enabled = *o.BusEnabled
	}
	if o.BusWsURL != nil {
		cfg.Bus.WsURL = *o.BusWsURL
		cfg.Bus.Enabled = true
	}
	if o.ViewPort != nil {
		cfg.View.Port = *o.ViewPort
	}
	if o.ViewTerminal != nil {
		cfg.View.Terminal = *o.ViewTerminal
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var knownGestures = map[Gesture]bool{
	GestureNext:       true,
	GesturePrev:       true,
	GesturePress:      true,
	GestureShortPress: true,
	GestureLongPress:  true,
}

// Validate checks config invariants and returns a user-friendly error.
// Call it after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if c.Input.LongPressMS <= 0 {
		return errors.New("input.long_press_ms must be > 0")
	}

	// Menu
	if c.Menu.DebounceMS < 0 {
		return errors.New("menu.debounce_ms must be >= 0")
	}
	if len(c.Menu.Actions) == 0 {
		return errors.New("menu.actions must not be empty")
	}
	for i, a := range c.Menu.Actions {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("menu.actions[%d]: %w", i, err)
		}
	}
	for name, v := range map[string]int{
		"menu.navigation.auto_hide_ms":      c.Menu.Navigation.AutoHideMS,
		"menu.navigation.transition_ms":     c.Menu.Navigation.TransitionMS,
		"menu.notification.auto_hide_ms":    c.Menu.Notification.AutoHideMS,
		"menu.notification.info_ms":         c.Menu.Notification.InfoMS,
		"menu.notification.module_speed_ms": c.Menu.Notification.ModuleSpeedMS,
		"menu.range.auto_hide_ms":           c.Menu.Range.AutoHideMS,
		"menu.range.reset_delay_ms":         c.Menu.Range.ResetDelayMS,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be >= 0", name)
		}
	}

	// Bus
	if c.Bus.Enabled {
		if c.Bus.WsURL == "" {
			return errors.New("bus.enabled is true but bus.ws_url is empty")
		}
		if c.Bus.TimeoutMS <= 0 {
			return errors.New("bus.timeout_ms must be > 0")
		}
	}

	// View
	if c.View.Port < 0 || c.View.Port > 65535 {
		return errors.New("view.port must be between 0 and 65535")
	}
	if c.View.Port > 0 && !strings.HasPrefix(c.View.Path, "/") {
		return errors.New("view.path must start with /")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func validateAction(a Action) error {
	if a.Title == "" {
		return errors.New("title must not be empty")
	}
	if a.Menu == nil {
		return nil
	}
	m := a.Menu
	if !m.Type.Known() {
		return fmt.Errorf("menu.type %q is not one of navigation, notification, range", m.Type)
	}
	for g := range m.Events {
		if !knownGestures[g] {
			return fmt.Errorf("menu.events: unknown gesture %q", g)
		}
	}
	if m.Type == MenuRange {
		if m.Options == nil {
			return errors.New("range menu needs options {min, max}")
		}
		if m.Options.Min > m.Options.Max {
			return errors.New("menu.options.min must be <= menu.options.max")
		}
		if m.Options.Step < 0 {
			return errors.New("menu.options.step must be >= 0")
		}
	}
	return nil
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// HostConfig converts the menu section into the host's runtime config.
func (c *Config) HostConfig() HostConfig {
	return HostConfig{
		Actions:  c.Menu.Actions,
		Debounce: ms(c.Menu.DebounceMS),
		Navigation: NavigationConfig{
			AutoHide:   ms(c.Menu.Navigation.AutoHideMS),
			Transition: ms(c.Menu.Navigation.TransitionMS),
		},
		Notification: NotificationConfig{
			AutoHide:    ms(c.Menu.Notification.AutoHideMS),
			Info:        ms(c.Menu.Notification.InfoMS),
			ModuleSpeed: ms(c.Menu.Notification.ModuleSpeedMS),
		},
		Range: RangeConfig{
			AutoHide:   ms(c.Menu.Range.AutoHideMS),
			ResetDelay: ms(c.Menu.Range.ResetDelayMS),
		},
	}
}

// gestureConfig converts the input section for the gesture translator.
func (c *Config) gestureConfig() gestureConfig {
	return gestureConfig{
		ButtonCode:    c.Input.ButtonCode,
		RelCode:       c.Input.RelCode,
		Invert:        c.Input.InvertRotation,
		LongPress:     ms(c.Input.LongPressMS),
		DebugKeyboard: c.Input.DebugKeyboard,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

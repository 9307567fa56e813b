package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	WindowWidth  = 1024
	WindowHeight = 640

	// Gate and trail timing
	MinInterval = 200 * time.Millisecond
	DotLifetime = 30 * time.Second

	// Dot sizing
	BaseRadius = 4.0
	MaxRadius  = 40.0

	// Trail wash over the previous frame
	WashAlpha = 0.065

	// Note colours, HSL
	HueStart   = 20.0
	HueSpan    = 220.0
	Saturation = 1.0
	Lightness  = 0.6

	// Index fingertip in the 21-point hand model
	ReferenceLandmark = 8

	// Eighth note at 120 BPM
	NoteLength = 250 * time.Millisecond

	VisualRingSize = 8192
	SampleRate     = 44100

	// HUD level meter
	MeterWidth  = 160
	MeterHeight = 8
	MeterX      = 12
	MeterY      = 40

	envPrefix = "GESTURE_MUSIC_"
)

// Config holds the knobs that can be changed per run.
type Config struct {
	Surface  string // window or terminal
	Sink     string // speaker, midi or none
	Detector string // none, replay or serial

	ReplayFile string
	ReplayLoop bool
	ReplayFPS  float64

	SerialPort string
	SerialBaud int

	MIDIPort string

	DetectInterval time.Duration
	MasterVolume   float64

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Surface:        "window",
		Sink:           "speaker",
		Detector:       "none",
		ReplayLoop:     true,
		ReplayFPS:      30,
		SerialBaud:     115200,
		DetectInterval: time.Second / 30,
		MasterVolume:   0.8,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load returns Default with GESTURE_MUSIC_* environment overrides applied.
// Malformed values are ignored.
func Load() Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(getenv func(string) string) Config {
	cfg := Default()
	env := func(key string) string {
		return strings.TrimSpace(getenv(envPrefix + key))
	}

	if v := env("SURFACE"); v != "" {
		cfg.Surface = strings.ToLower(v)
	}
	if v := env("SINK"); v != "" {
		cfg.Sink = strings.ToLower(v)
	}
	if v := env("DETECTOR"); v != "" {
		cfg.Detector = strings.ToLower(v)
	}
	if v := env("REPLAY_FILE"); v != "" {
		cfg.ReplayFile = v
	}
	if v := env("REPLAY_LOOP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ReplayLoop = b
		}
	}
	if v := env("REPLAY_FPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ReplayFPS = f
		}
	}
	if v := env("SERIAL_PORT"); v != "" {
		cfg.SerialPort = v
	}
	if v := env("SERIAL_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SerialBaud = n
		}
	}
	if v := env("MIDI_PORT"); v != "" {
		cfg.MIDIPort = v
	}
	if v := env("DETECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DetectInterval = d
		}
	}

	// Master volume 0-100 converted to 0.0-1.0
	if v := env("MASTER_VOLUME"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MasterVolume = clamp(float64(n)/100.0, 0, 1)
		}
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := env("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	return cfg
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Surface {
	case "window", "terminal":
	default:
		return fmt.Errorf("unknown surface %q", c.Surface)
	}
	switch c.Sink {
	case "speaker", "midi", "none":
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	switch c.Detector {
	case "none", "replay":
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("serial detector needs a port")
		}
	default:
		return fmt.Errorf("unknown detector %q", c.Detector)
	}
	if c.DetectInterval <= 0 {
		return fmt.Errorf("detect interval must be positive, got %v", c.DetectInterval)
	}
	if c.ReplayFPS <= 0 {
		return fmt.Errorf("replay fps must be positive, got %v", c.ReplayFPS)
	}
	if c.MasterVolume < 0 || c.MasterVolume > 1 {
		return fmt.Errorf("master volume out of range: %v", c.MasterVolume)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

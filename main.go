package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/ncruces/zenity"

	"github.com/iburimskiy/gesture-music/internal/audio"
	"github.com/iburimskiy/gesture-music/internal/config"
	"github.com/iburimskiy/gesture-music/internal/game"
	"github.com/iburimskiy/gesture-music/internal/gesture"
	"github.com/iburimskiy/gesture-music/internal/logging"
	"github.com/iburimskiy/gesture-music/internal/notes"
	"github.com/iburimskiy/gesture-music/internal/particles"
	"github.com/iburimskiy/gesture-music/internal/render"
	"github.com/iburimskiy/gesture-music/internal/source"
	"github.com/iburimskiy/gesture-music/internal/terminal"
)

const windowTitle = "Gesture? Music! - click or move your hand, Space: mute, S: snapshot, Esc/Q: quit"

func main() {
	cfg := config.Load()
	snapshotDir := "."

	flag.StringVar(&cfg.Surface, "surface", cfg.Surface, "window or terminal")
	flag.StringVar(&cfg.Sink, "sink", cfg.Sink, "speaker, midi or none")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "none, replay or serial")
	flag.StringVar(&cfg.ReplayFile, "replay", cfg.ReplayFile, "recording to replay; a file picker opens when empty")
	flag.BoolVar(&cfg.ReplayLoop, "replay-loop", cfg.ReplayLoop, "restart the recording when it ends")
	flag.Float64Var(&cfg.ReplayFPS, "replay-fps", cfg.ReplayFPS, "frames per second of the recording")
	flag.StringVar(&cfg.SerialPort, "serial", cfg.SerialPort, "serial port delivering hand frames")
	flag.IntVar(&cfg.SerialBaud, "baud", cfg.SerialBaud, "serial baud rate")
	flag.StringVar(&cfg.MIDIPort, "midi-port", cfg.MIDIPort, "substring of the MIDI output port name")
	flag.DurationVar(&cfg.DetectInterval, "detect-interval", cfg.DetectInterval, "how often the detector is polled")
	flag.Float64Var(&cfg.MasterVolume, "volume", cfg.MasterVolume, "master volume, 0..1")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file")
	flag.StringVar(&snapshotDir, "snapshot-dir", snapshotDir, "directory for PNG snapshots")
	flag.Parse()

	if err := run(cfg, snapshotDir); err != nil {
		if cfg.Surface == "window" {
			_ = zenity.Error(err.Error(), zenity.Title("Gesture? Music!"))
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, snapshotDir string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer sink.close()

	det, err := newDetector(cfg, logger)
	if err != nil {
		return err
	}

	unlock := gesture.NewUnlocker(ctx, sink, logger)
	unlock.OnUnlocked(func() { logger.Info("audio ready", "sink", cfg.Sink) })

	field := particles.NewField(config.DotLifetime)
	gate := gesture.NewGate(notes.DefaultScale, config.MinInterval, sink, unlock)
	inst := gesture.NewInstrument(gate, gesture.NewVelocityEstimator(config.BaseRadius, config.MaxRadius), field, logger)
	loop := render.NewLoop(field, config.WashAlpha)

	var detect *source.DetectLoop
	if det != nil {
		detect = source.StartDetectLoop(ctx, det.Detector, det.interval, logger)
		// Stop also closes the serial tracker
		defer detect.Stop()
	}

	logger.Info("starting", "surface", cfg.Surface, "sink", cfg.Sink, "detector", cfg.Detector)

	switch cfg.Surface {
	case "terminal":
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()

		app := terminal.New(screen, terminal.Options{
			Instrument: inst,
			Loop:       loop,
			Unlock:     unlock,
			Detect:     detect,
			Landmark:   config.ReferenceLandmark,
			Muter:      sink.muter,
			Logger:     logger,
		})
		return app.Run(ctx)
	default:
		g := game.New(game.Options{
			Instrument:  inst,
			Field:       field,
			Loop:        loop,
			Unlock:      unlock,
			Detect:      detect,
			Landmark:    config.ReferenceLandmark,
			Muter:       sink.muter,
			Meter:       sink.meter,
			SnapshotDir: snapshotDir,
			Logger:      logger,
		})

		ebiten.SetWindowSize(config.WindowWidth, config.WindowHeight)
		ebiten.SetWindowTitle(windowTitle)
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

		go func() {
			<-ctx.Done()
			g.Quit()
		}()
		if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
			return err
		}
		return nil
	}
}

// newLogger builds the process logger. The terminal owns the screen in
// terminal mode, so logs go to the log file or nowhere.
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeFn := func() {}
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeFn = func() { _ = f.Close() }
	case cfg.Surface == "terminal":
		logger := logging.Discard()
		slog.SetDefault(logger)
		return logger, closeFn, nil
	}

	logger, err := logging.Init(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: out})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}

// sinkHandle is the configured sink plus whatever extra controls it offers.
type sinkHandle struct {
	gesture.Sink
	muter game.Muter
	meter game.Meter
	close func()
}

func newSink(cfg config.Config, logger *slog.Logger) (*sinkHandle, error) {
	switch cfg.Sink {
	case "speaker":
		s := audio.NewSpeakerSink(audio.SpeakerOptions{
			SampleRate:   config.SampleRate,
			NoteLength:   config.NoteLength,
			MasterVolume: cfg.MasterVolume,
			RingSize:     config.VisualRingSize,
		}, logger)
		return &sinkHandle{Sink: s, muter: s, meter: s, close: s.Close}, nil
	case "midi":
		m := audio.NewMIDISink(cfg.MIDIPort, config.NoteLength, logger)
		return &sinkHandle{Sink: m, close: m.Close}, nil
	case "none":
		return &sinkHandle{Sink: audio.Null{Logger: logger}, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
}

type detectorHandle struct {
	source.Detector
	interval time.Duration
}

// newDetector opens the configured hand detector. It returns nil when the
// instrument is played with the pointer only.
func newDetector(cfg config.Config, logger *slog.Logger) (*detectorHandle, error) {
	switch cfg.Detector {
	case "replay":
		path := cfg.ReplayFile
		if path == "" {
			var err error
			path, err = zenity.SelectFile(
				zenity.Title("Open Hand Recording"),
				zenity.FileFilters{{
					Name:     "Hand recordings",
					Patterns: []string{"*.json"},
				}},
			)
			if errors.Is(err, zenity.ErrCanceled) {
				logger.Info("no recording chosen, pointer only")
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("choose recording: %w", err)
			}
		}
		rec, err := source.LoadRecording(path)
		if err != nil {
			return nil, err
		}
		logger.Info("replaying recording", "path", path, "frames", len(rec.Frames), "loop", cfg.ReplayLoop)
		return &detectorHandle{
			Detector: source.NewReplay(rec, cfg.ReplayLoop),
			interval: time.Duration(float64(time.Second) / cfg.ReplayFPS),
		}, nil
	case "serial":
		d, err := source.OpenSerial(cfg.SerialPort, cfg.SerialBaud, logger)
		if err != nil {
			return nil, err
		}
		return &detectorHandle{Detector: d, interval: cfg.DetectInterval}, nil
	}
	return nil, nil
}

// Command loopback-sync runs the synchronization loop against a software
// loopback device pair, without audio hardware. It reports per-period
// drift diagnostics, prints balance and correction statistics at the end
// of the run, and can capture the recorded stream to a WAV file.
//
// Usage:
//
//	loopback-sync
//	loopback-sync -period 512 -repetitions 200 -drift 250
//	loopback-sync -tone 440 -capture out.wav -loglevel debug
//
// Settings may also come from a YAML config file (-config), with flags
// taking precedence over file values.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/0EVSG/sosso"
	"github.com/0EVSG/sosso/frameclock"
	"github.com/0EVSG/sosso/loopback"
)

// CLI defaults
const (
	defaultPeriod      = 1024
	defaultRepetitions = 100
	defaultSampleRate  = 48000
	defaultToneHz      = 440.0
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loopback-sync: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flag values are read back through viper, so config file and flags
	// share one precedence chain.
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Uint("period", defaultPeriod, "Frames per scheduling period")
	flag.Uint("repetitions", defaultRepetitions, "Periods to complete per channel")
	flag.Uint("rate", defaultSampleRate, "Sample rate in Hz")
	flag.Int("drift", 0, "Simulated capture clock drift in ppm")
	flag.Float64("tone", defaultToneHz, "Test tone frequency in Hz, 0 for loopback silence")
	flag.String("capture", "", "Write the recorded stream to this WAV file")
	flag.Bool("mmap", true, "Request memory mapping of device buffers")
	flag.Bool("late", false, "Inject simulated late wakeups")
	flag.String("loglevel", "info", "Log level: none, error, warn, info, debug")
	flag.Parse()

	if err := loadConfig(*configPath); err != nil {
		return err
	}
	applyFlagOverrides(flag.CommandLine)

	log, err := configureLogger(viper.GetString("loglevel"))
	if err != nil {
		return err
	}

	pair, err := loopback.NewPair(&loopback.Config{
		SampleRate: viper.GetUint("rate"),
		InDriftPPM: viper.GetInt("drift"),
		ToneHz:     viper.GetFloat64("tone"),
		Log:        log,
	})
	if err != nil {
		return err
	}
	defer pair.Close()

	rep := newReport()

	var capt *wavCapture
	if path := viper.GetString("capture"); path != "" {
		capt, err = newWAVCapture(path, int(pair.In().SampleRate()), int(pair.In().FrameSize()))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := capt.close(); cerr != nil {
				log.Warn("wav capture close failed", "err", cerr)
			}
		}()
	}

	config := &sosso.Config{
		In:          pair.In(),
		Out:         pair.Out(),
		Clock:       frameclock.New(),
		Period:      viper.GetUint("period"),
		Repetitions: viper.GetUint("repetitions"),
		MemoryMap:   viper.GetBool("mmap"),
		Log:         log,
		OnPeriod: func(ev sosso.PeriodEvent) {
			rep.record(ev)
			if capt != nil && ev.Role == sosso.RoleRecording {
				if werr := capt.write(ev.Data); werr != nil {
					log.Warn("wav capture write failed", "err", werr)
				}
			}
		},
	}
	if viper.GetBool("late") {
		config.SleepJitter = sosso.SimulatedLateWakeup()
	}

	runner, err := sosso.New(config)
	if err != nil {
		return err
	}

	log.Info("starting loopback run",
		"period", viper.GetUint("period"),
		"repetitions", viper.GetUint("repetitions"),
		"rate", viper.GetUint("rate"),
		"drift_ppm", viper.GetInt("drift"))

	if err := runner.Run(); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	rep.print(os.Stdout)
	return nil
}

// loadConfig sets viper defaults and merges an optional config file.
func loadConfig(path string) error {
	viper.SetDefault("period", defaultPeriod)
	viper.SetDefault("repetitions", defaultRepetitions)
	viper.SetDefault("rate", defaultSampleRate)
	viper.SetDefault("drift", 0)
	viper.SetDefault("tone", defaultToneHz)
	viper.SetDefault("capture", "")
	viper.SetDefault("mmap", true)
	viper.SetDefault("late", false)
	viper.SetDefault("loglevel", "info")

	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// applyFlagOverrides copies explicitly set flags into viper, so flags win
// over config file values.
func applyFlagOverrides(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			return
		}
		viper.Set(f.Name, f.Value.String())
	})
}

// configureLogger builds a leveled text logger on stdout.
func configureLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "none":
		return slog.New(slog.DiscardHandler), nil
	case "error":
		slogLevel = slog.LevelError
	case "warn":
		slogLevel = slog.LevelWarn
	case "info":
		slogLevel = slog.LevelInfo
	case "debug":
		slogLevel = slog.LevelDebug
	default:
		return nil, fmt.Errorf("unexpected log level %q", level)
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	return slog.New(handler), nil
}

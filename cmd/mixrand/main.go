// Command mixrand generates cryptographically mixed random bytes from
// a cascade of entropy sources (kernel hardware RNG, CPU RDSEED/RDRAND/
// XSTORE instructions, a haveged-fed kernel pool, and an always-on
// fallback mix), and can run as a background daemon that replenishes
// the kernel's entropy pool when it runs low.
//
// Usage examples:
//
//	# Generate 32 random bytes, hex-encoded, to stdout
//	mixrand -n 32
//
//	# Generate base64 bytes to a file
//	mixrand -n 64 -f base64 -o seed.b64
//
//	# Run the replenishment daemon, checking every 30s
//	mixrand daemon -t 3072 -i 30
//
//	# Run one replenishment cycle and exit
//	mixrand daemon --once
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mixrand/mixrand/internal/config"
	"github.com/mixrand/mixrand/internal/daemon"
	"github.com/mixrand/mixrand/internal/dispatch"
	"github.com/mixrand/mixrand/internal/encoding"
	"github.com/mixrand/mixrand/internal/kernel"
	"github.com/mixrand/mixrand/internal/mixerr"
	"github.com/mixrand/mixrand/internal/source"
	"github.com/mixrand/mixrand/internal/source/cpurng"
	"github.com/mixrand/mixrand/internal/source/fallback"
	"github.com/mixrand/mixrand/internal/source/haveged"
	"github.com/mixrand/mixrand/internal/source/hwrng"
	"github.com/mixrand/mixrand/internal/trace"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  mixrand [-n COUNT] [-f FORMAT] [-o PATH] [-config PATH] [options]
  mixrand daemon [-t BITS] [-i SECONDS] [-b BYTES] [--once] [--syslog] [options]

Commands:
  (default)         Generate COUNT random bytes and write them encoded to PATH
  daemon             Run the kernel-pool replenishment loop

Options:
  -n COUNT           Number of bytes to generate (0-1048576, default 32)
  -f FORMAT          Output format: hex, hex-upper, raw, base64, base64url,
                      uuencode, text, octal, binary (default hex)
  -o PATH             Output path, or "-" for stdout (default "-")
  -config PATH        INI config file overriding [cpu_rng] defaults
  -log-level LEVEL    trace, debug, info, warn, error (default info)
  -log-file PATH      Append structured logs to PATH instead of stderr
  --disable-hwrng      Skip the /dev/hwrng source
  --disable-haveged     Skip the haveged-fed /dev/random source

Daemon-only options:
  -t BITS             entropy_avail threshold below which to harvest (default 2048)
  -i SECONDS          Poll interval (default 60)
  -b BYTES            Bytes harvested per cycle (default 64)
  --once               Run a single cycle and exit
  --syslog             Ship logs to syslog instead of stderr
`)
	os.Exit(2)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "daemon" {
		return runDaemon(args[1:])
	}
	return runGenerate(args)
}

// commonFlags registers the flags shared by both subcommands onto fs
// and returns pointers the caller fills cfg from after Parse.
func commonFlags(fs *flag.FlagSet, cfg *config.Config) (configPath *string) {
	configPath = fs.String("config", "", "INI config file overriding [cpu_rng] defaults")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn, error")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append structured logs to this file instead of stderr")
	fs.BoolVar(&cfg.DisableHwRng, "disable-hwrng", false, "skip the /dev/hwrng source")
	fs.BoolVar(&cfg.DisableHaveged, "disable-haveged", false, "skip the haveged-fed /dev/random source")
	return configPath
}

func runGenerate(args []string) int {
	cfg := config.Default()
	fs := flag.NewFlagSet("mixrand", flag.ContinueOnError)
	fs.Usage = usage

	fs.IntVar(&cfg.Count, "n", cfg.Count, "number of bytes to generate")
	fs.StringVar(&cfg.Format, "f", cfg.Format, "output format")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "output path, or - for stdout")
	configPath := commonFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *configPath != "" {
		if err := config.LoadFile(&cfg, *configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return mixerr.ExitCode(err)
		}
	}
	if err := cfg.ValidateTop(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return mixerr.ExitCode(err)
	}

	ctx, tracer, closeTracer, err := setupTracer(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeTracer()

	d := buildDispatcher(cfg)

	out, err := d.Generate(ctx, cfg.Count)
	if err != nil {
		tracer.Error(err)
		return mixerr.ExitCode(err)
	}

	encoded, err := encoding.Encode(encoding.Format(cfg.Format), out)
	if err != nil {
		tracer.Error(err)
		return mixerr.ExitCode(err)
	}

	if err := writeOutput(cfg.OutputPath, encoded); err != nil {
		werr := mixerr.New(mixerr.OutputFailed, "main.write", err)
		tracer.Error(werr)
		return mixerr.ExitCode(werr)
	}
	return 0
}

func runDaemon(args []string) int {
	cfg := config.Default()
	fs := flag.NewFlagSet("mixrand daemon", flag.ContinueOnError)
	fs.Usage = usage

	fs.IntVar(&cfg.ThresholdBits, "t", cfg.ThresholdBits, "entropy_avail threshold below which to harvest")
	fs.IntVar(&cfg.IntervalSecs, "i", cfg.IntervalSecs, "poll interval in seconds")
	fs.IntVar(&cfg.BatchBytes, "b", cfg.BatchBytes, "bytes harvested per cycle")
	fs.BoolVar(&cfg.Once, "once", false, "run a single cycle and exit")
	fs.BoolVar(&cfg.Syslog, "syslog", false, "ship logs to syslog instead of stderr")
	configPath := commonFlags(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *configPath != "" {
		if err := config.LoadFile(&cfg, *configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return mixerr.ExitCode(err)
		}
	}
	if err := cfg.ValidateTop(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return mixerr.ExitCode(err)
	}

	ctx, tracer, closeTracer, err := setupTracer(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeTracer()

	injector, err := kernel.OpenInjector()
	if err != nil {
		tracer.Error(err)
		return mixerr.ExitCode(err)
	}
	defer injector.Close()

	d := buildDispatcher(cfg)
	loop := daemon.NewLoop(d, injector, daemon.Config{
		ThresholdBits: cfg.ThresholdBits,
		IntervalSecs:  cfg.IntervalSecs,
		BatchBytes:    cfg.BatchBytes,
		Once:          cfg.Once,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportStatsOnSighup(ctx, tracer, d)

	if err := loop.Run(ctx); err != nil {
		tracer.Error(err)
		return mixerr.ExitCode(err)
	}
	return 0
}

// reportStatsOnSighup logs the dispatcher's running source win/skip/
// fail counters every time the process receives SIGHUP, until ctx is
// canceled. There is no config file to reload, so SIGHUP's only
// meaningful use here is a health-reporting hook.
func reportStatsOnSighup(ctx context.Context, tracer *trace.Tracer, d *dispatch.Dispatcher) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	defer signal.Stop(sig)

	log := tracer.WithPrefix("STATS")
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			wins, skipped, failed := d.Stats().Snapshot()
			log.Infof("wins=%v skipped=%v failed=%v", wins, skipped, failed)
		}
	}
}

// setupTracer builds the root context.Context carrying a Tracer
// configured per cfg's log level, log file, and syslog settings.
func setupTracer(cfg config.Config) (context.Context, *trace.Tracer, func(), error) {
	var backend trace.Backend
	switch {
	case cfg.Syslog:
		b, err := trace.NewSyslogBackend("mixrand")
		if err != nil {
			return nil, nil, nil, err
		}
		backend = b
	case cfg.LogFile != "":
		b, err := trace.NewFileBackend(cfg.LogFile)
		if err != nil {
			return nil, nil, nil, err
		}
		backend = b
	default:
		backend = trace.NewStderrBackend()
	}

	tracer := trace.NewTracer(trace.ParseLevel(cfg.LogLevel), backend)
	ctx := trace.WithContext(context.Background(), tracer)
	return ctx, tracer, func() { backend.Close() }, nil
}

// buildDispatcher wires the fixed cascade order — HwRng, CpuRng,
// Haveged, Fallback — honoring the --disable-* flags and passing
// CpuRng into Fallback as its optional sprinkle contributor.
func buildDispatcher(cfg config.Config) *dispatch.Dispatcher {
	cr := cpurng.New(cfg.CpuRng)

	var hw source.Source
	if !cfg.DisableHwRng {
		hw = hwrng.New()
	}
	var hv source.Source
	if !cfg.DisableHaveged {
		hv = haveged.New()
	}

	fb := fallback.New(cr)

	return dispatch.New(hw, cr, hv, fb)
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

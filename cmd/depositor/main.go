package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/cordum/depositor/core/hierarchy"
	"github.com/cordum/depositor/core/infra/buildinfo"
	"github.com/cordum/depositor/core/infra/config"
	"github.com/cordum/depositor/core/infra/logging"
	"github.com/cordum/depositor/core/manifest"
	"github.com/cordum/depositor/core/pipeline"
)

// Exit codes. validate and run exit exitInvalid when any object fails.
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitError
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", buildinfo.Name, buildinfo.Info())
		return exitOK
	case "prepare", "ingest", "postprocess", "validate", "run":
	case "help", "-h", "--help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return exitError
	}

	opts, err := parseFlags(cmd, rest, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	buildinfo.Log(cmd)

	code, err := execute(ctx, cmd, opts, stdout)
	if err != nil {
		logging.Error(buildinfo.Name, "command failed", "command", cmd, "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return code
}

type options struct {
	manifest string
	cfg      *config.Config
}

func parseFlags(cmd string, args []string, stderr io.Writer) (*options, error) {
	cfg := config.Load()
	opts := &options{cfg: cfg}
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.manifest, "manifest", "m", "", "path to the deposit manifest (required)")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "repository backend: memory or redis")
	fs.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "redis url for the redis backend")
	fs.StringVar(&cfg.NatsURL, "nats-url", cfg.NatsURL, "nats url for preservation event fan-out (empty disables)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address for /metrics (empty disables)")
	fs.IntVar(&cfg.ValidateWorkers, "workers", cfg.ValidateWorkers, "concurrent validation workers")
	fs.StringVar(&cfg.ParentLookup, "parent-lookup", cfg.ParentLookup, "resolve parentid by identifier or pid")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.manifest == "" && fs.NArg() > 0 {
		opts.manifest = fs.Arg(0)
	}
	if opts.manifest == "" {
		return nil, errors.New("--manifest is required")
	}
	switch cfg.Backend {
	case config.BackendMemory, config.BackendRedis:
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if _, err := hierarchy.ParseBy(cfg.ParentLookup); err != nil {
		return nil, err
	}
	return opts, nil
}

func execute(ctx context.Context, cmd string, opts *options, stdout io.Writer) (int, error) {
	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return exitError, err
	}
	if cmd != "run" && !opts.cfg.UsesRedis() {
		logging.Warn(buildinfo.Name, "memory backend does not persist between commands; use run or --backend redis", "command", cmd)
	}
	env, err := newEnvironment(opts.cfg)
	if err != nil {
		return exitError, err
	}
	defer env.Close()

	p := env.pipeline
	switch cmd {
	case "prepare":
		res, err := p.Prepare(ctx, m)
		if err != nil {
			return exitError, err
		}
		fmt.Fprintf(stdout, "prepared %d objects (ledger %s)\n", len(res.QDCFiles), res.LedgerPath)
	case "ingest":
		res, err := p.Ingest(ctx, m)
		if err != nil {
			return exitError, err
		}
		for _, e := range res.Entries {
			fmt.Fprintf(stdout, "%s\t%s\n", e.Identifier, e.PID)
		}
	case "postprocess":
		n, err := p.PostProcess(ctx, m)
		if err != nil {
			return exitError, err
		}
		fmt.Fprintf(stdout, "structural metadata attached to %d objects\n", n)
	case "validate", "run":
		var report *pipeline.Report
		if cmd == "run" {
			report, err = p.Run(ctx, m)
		} else {
			report, err = p.Validate(ctx, m)
		}
		if err != nil {
			return exitError, err
		}
		if _, err := report.WriteTo(stdout); err != nil {
			return exitError, err
		}
		if !report.Valid() {
			return exitInvalid, nil
		}
	}
	return exitOK, nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %s <command> --manifest PATH [flags]

Commands:
  prepare      split sources, build the master ledger, write descriptive metadata
  ingest       create repository objects and record their pids
  postprocess  generate and attach structural metadata
  validate     check every object; exits 2 when any object does not validate
  run          all four phases in one process
  version      print build information

Flags:
  -m, --manifest PATH     deposit manifest
      --backend NAME      memory (default) or redis
      --redis-url URL     redis url
      --nats-url URL      publish preservation events to nats
      --metrics-addr ADDR serve /metrics
      --workers N         concurrent validation workers
      --parent-lookup BY  resolve parentid by identifier (default) or pid
`, buildinfo.Name)
}

// Command optimize runs the AED placement pipeline for the configured cities
// and writes the files the dashboard serves.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/okian/aedplacement/internal/adapters/console"
	app "github.com/okian/aedplacement/internal/app"
	"github.com/okian/aedplacement/internal/config"
	"github.com/okian/aedplacement/internal/domain/costmatrix"
	"github.com/okian/aedplacement/pkg/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

type options struct {
	yes     bool
	reuse   bool
	cities  string
	workers int
	budget  int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&o.yes, "yes", false, "approve every routing request batch without asking")
	fs.BoolVar(&o.reuse, "reuse", false, "load saved cost matrices from the output directory instead of resolving them")
	fs.StringVar(&o.cities, "cities", "", "comma separated cities, overrides the configuration")
	fs.IntVar(&o.workers, "workers", 0, "concurrent routing requests, overrides the configuration")
	fs.IntVar(&o.budget, "budget", -1, "new AEDs per city, overrides the configuration")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

func (o options) apply(cfg *config.Config) {
	if o.cities != "" {
		var cities []string
		for _, c := range strings.Split(o.cities, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cities = append(cities, c)
			}
		}
		cfg.Cities = cities
	}
	if o.workers > 0 {
		cfg.ResolveWorkers = o.workers
	}
	if o.budget >= 0 {
		cfg.Budget = o.budget
	}
	if o.reuse {
		cfg.ReuseCostMatrix = true
	}
}

// run executes one pipeline run. resolver replaces the routing client when
// non-nil.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, resolver costmatrix.CostResolver) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return exitUsage
	}

	// Logs go to stderr so the confirmation prompt stays readable.
	if err := logger.InitWithWriter(stderr); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging:", err)
		return exitFailure
	}
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return exitFailure
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}

	if resolver == nil {
		client, err := app.NewRoutingClient(cfg)
		if err != nil {
			log.Error(ctx, "routing client unavailable", logger.Error(err))
			return exitFailure
		}
		resolver = client
	}

	var confirmer costmatrix.Confirmer = console.NewConfirmer(stdin, stdout)
	if opts.yes {
		confirmer = console.Always{}
	}

	manifest, err := app.NewPipeline(cfg, resolver, confirmer).Run(ctx)
	if err != nil {
		log.Error(ctx, "pipeline failed", logger.Error(err))
		return exitFailure
	}
	for _, c := range manifest.Cities {
		if c.Skipped {
			fmt.Fprintf(stdout, "%s: skipped\n", c.Name)
			continue
		}
		fmt.Fprintf(stdout, "%s: %d new AEDs, coverage %.2f%% -> %.2f%%\n", c.Name, c.Selected, c.OldCoverage, c.NewCoverage)
	}
	return exitOK
}

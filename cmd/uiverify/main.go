// Command uiverify drives a headless browser through a checklist of UI
// steps against a locally running web app and reports pass or fail.
//
// Usage:
//
//	uiverify [--url http://localhost:4321] [--checklist smoke|project-rename|file.yaml]
//
// Exit status is 0 when the checklist passes, 1 when it fails and 2 for
// usage or configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/uiverify/internal/artifacts"
	"github.com/kuitang/uiverify/internal/browser"
	"github.com/kuitang/uiverify/internal/checklist"
	"github.com/kuitang/uiverify/internal/config"
	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/obs"
	"github.com/kuitang/uiverify/internal/report"
	"github.com/kuitang/uiverify/internal/runner"
	"github.com/kuitang/uiverify/internal/s3client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, launcherFor)
	stop()
	os.Exit(code)
}

// launcherFor returns the Playwright-backed launcher for opts.
func launcherFor(opts browser.Options) runner.Launcher {
	return runner.LaunchFunc(func(ctx context.Context) (runner.Driver, error) {
		s, err := browser.Launch(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, newLauncher func(browser.Options) runner.Launcher) int {
	flags, err := config.ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errs.ExitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return errs.ExitUsage
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return errs.ExitCodeOf(err)
	}
	obs.Configure(stderr, cfg.LogFormat, cfg.Debug)
	log := obs.Pkg("main")

	if cfg.List {
		for _, name := range checklist.BuiltinNames() {
			c, _ := checklist.Builtin(name)
			fmt.Fprintf(stdout, "%-16s %s\n", name, c.Description)
		}
		return errs.ExitOK
	}

	c, err := checklist.Resolve(cfg.Checklist)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return errs.ExitCodeOf(err)
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("artifact store setup failed", "error", err)
		return errs.ExitCodeOf(err)
	}

	cfg.PrintStartupSummary(stderr)

	r := runner.New(runner.Options{
		Launcher: newLauncher(cfg.BrowserOptions()),
		Store:    store,
		BaseURL:  cfg.BaseURL,
	})
	res, runErr := r.Run(ctx, c)

	if cfg.Report {
		// Detached so an interrupted run still leaves its report behind.
		location, err := report.Write(context.WithoutCancel(ctx), store, res)
		if err != nil {
			log.Warn("report write failed", "error", err)
		} else {
			log.Info("report saved", "location", location)
		}
	}

	printSummary(stdout, res)
	return errs.ExitCodeOf(runErr)
}

// buildStore returns the local artifact directory, mirrored to S3 when a
// bucket is configured.
func buildStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	local, err := artifacts.NewFileStore(cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}
	if !cfg.S3Enabled() {
		return local, nil
	}
	client, err := s3client.New(ctx, cfg.S3Config())
	if err != nil {
		return nil, errs.Wrap(errs.Artifact, "create s3 client", err)
	}
	return artifacts.NewMirror(local, artifacts.NewS3Store(client, cfg.ArtifactPrefix)), nil
}

func printSummary(w io.Writer, res *runner.Result) {
	outcome := "PASS"
	if !res.Passed() {
		outcome = "FAIL"
	}
	fmt.Fprintf(w, "%s %s: %d steps in %s", outcome, res.Checklist, len(res.Steps), res.Duration().Round(time.Millisecond))
	if n := res.Count(runner.StatusAbsent); n > 0 {
		fmt.Fprintf(w, ", %d optional element(s) absent", n)
	}
	if n := res.Count(runner.StatusHidden); n > 0 {
		fmt.Fprintf(w, ", %d element(s) not visible", n)
	}
	fmt.Fprintln(w)
	if res.Err != nil {
		fmt.Fprintf(w, "  error (%s): %v\n", errs.CodeOf(res.Err), res.Err)
	}
	for _, a := range res.Artifacts {
		fmt.Fprintf(w, "  %s -> %s\n", a.Name, a.Location)
	}
}

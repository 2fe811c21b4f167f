// Package runner executes a checklist against a browser session and
// reports pass or fail.
//
// A run owns exactly one session. The session is launched at the start
// and closed exactly once when the run ends, whatever the outcome. The
// first fault stops the checklist, is logged once, and triggers a single
// failure screenshot before the session is released.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kuitang/uiverify/internal/artifacts"
	"github.com/kuitang/uiverify/internal/checklist"
	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/logutil"
	"github.com/kuitang/uiverify/internal/obs"
	"github.com/kuitang/uiverify/internal/urlutil"
)

// Driver is the browser page a run drives.
type Driver interface {
	Goto(url string, timeout time.Duration) error
	WaitFor(q checklist.Query, timeout time.Duration) error
	IsVisible(q checklist.Query) (bool, error)
	Hover(q checklist.Query, timeout time.Duration) error
	Click(q checklist.Query, timeout time.Duration, force bool) error
	Fill(q checklist.Query, value string, timeout time.Duration) error
	Press(q checklist.Query, key string, timeout time.Duration) error
	Screenshot(fullPage bool) ([]byte, error)
	Close() error
}

// Launcher starts a session for one run.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LaunchFunc adapts a function to Launcher.
type LaunchFunc func(ctx context.Context) (Driver, error)

// Launch calls f.
func (f LaunchFunc) Launch(ctx context.Context) (Driver, error) {
	return f(ctx)
}

// Options configures a Runner.
type Options struct {
	Launcher Launcher
	Store    artifacts.Store
	BaseURL  string
}

// Runner executes checklists.
type Runner struct {
	launcher Launcher
	store    artifacts.Store
	baseURL  string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Runner.
func New(opts Options) *Runner {
	return &Runner{
		launcher: opts.Launcher,
		store:    opts.Store,
		baseURL:  urlutil.NormalizeBaseURL(opts.BaseURL),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Run executes c and returns its result. The returned error is the fault
// that stopped the run, or nil when every step completed. The result is
// never nil.
func (r *Runner) Run(ctx context.Context, c *checklist.Checklist) (res *Result, err error) {
	ctx = obs.WithCorrelation(ctx, obs.Correlation{
		RunID:     obs.NewRunID(),
		Checklist: c.Name,
		BaseURL:   r.baseURL,
	})
	log := obs.From(ctx).With("pkg", "runner")

	res = &Result{
		RunID:     obs.RunIDFromContext(ctx),
		Checklist: c.Name,
		BaseURL:   r.baseURL,
		Started:   r.now(),
	}
	defer func() {
		res.Finished = r.now()
		res.Err = err
	}()

	if err := c.Validate(); err != nil {
		log.Error("Verification failed", "error", err)
		return res, err
	}

	log.Info("verification started", "steps", len(c.Steps))

	driver, err := r.launcher.Launch(ctx)
	if err != nil {
		log.Error("Verification failed", "error", err)
		return res, err
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			log.Warn("browser session close failed", "error", cerr)
		}
	}()

	for i, step := range c.Steps {
		if cerr := ctx.Err(); cerr != nil {
			err = errs.Wrap(errs.Canceled, fmt.Sprintf("step %d %q", i+1, step.Name), cerr)
			log.Error("Verification failed", "step", i+1, "error", err)
			r.captureFailure(ctx, log, driver, c, res)
			return res, err
		}

		sr, serr := r.runStep(ctx, log, driver, i, step)
		res.Steps = append(res.Steps, sr)
		if sr.Artifact != "" {
			res.Artifacts = append(res.Artifacts, Artifact{Name: artifactName(step), Location: sr.Artifact})
		}
		if serr != nil {
			err = fmt.Errorf("step %d %q: %w", i+1, step.Name, serr)
			log.Error("Verification failed", "step", i+1, "code", errs.CodeOf(serr), "error", serr)
			r.captureFailure(ctx, log, driver, c, res)
			return res, err
		}
	}

	log.Info("verification passed",
		"steps", len(res.Steps),
		"absent", res.Count(StatusAbsent),
		"hidden", res.Count(StatusHidden),
	)
	return res, nil
}

func artifactName(step checklist.Step) string {
	if step.Kind == checklist.KindCapture {
		return step.Artifact
	}
	return step.DebugArtifact
}

// runStep executes one step. A panic inside the driver is converted into
// an internal fault so the run still reaches its cleanup.
func (r *Runner) runStep(ctx context.Context, log *slog.Logger, d Driver, idx int, step checklist.Step) (sr StepResult, err error) {
	sr = StepResult{Index: idx + 1, Name: step.Name, Kind: step.Kind, Status: StatusOK}
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			err = errs.New(errs.Internal, fmt.Sprintf("panic: %v", p))
		}
		if err != nil {
			sr.Status = StatusFailed
			sr.Detail = err.Error()
		}
		sr.Duration = r.now().Sub(start)
	}()

	stepLog := log.With("step", idx+1, "kind", string(step.Kind))
	stepLog.Info(step.Name)

	timeout := step.EffectiveTimeout()

	switch step.Kind {
	case checklist.KindNavigate:
		target := urlutil.BuildAbsolute(r.baseURL, step.Path)
		sr.Detail = target
		return sr, d.Goto(target, timeout)

	case checklist.KindWait:
		err := d.WaitFor(step.Query, timeout)
		if err == nil {
			stepLog.Info(step.Subject()+" found", "query", step.Query.String())
			return sr, nil
		}
		if step.ContinueOnTimeout() && errs.Recoverable(err) {
			sr.Status = StatusAbsent
			sr.Detail = err.Error()
			stepLog.Warn(step.Subject()+" not found, continuing", "timeout", timeout, "error", err)
			if step.DebugArtifact != "" {
				sr.Artifact = r.capture(ctx, stepLog, d, step.DebugArtifact)
			}
			return sr, nil
		}
		return sr, err

	case checklist.KindAssertVisible:
		visible, err := d.IsVisible(step.Query)
		if err != nil {
			return sr, err
		}
		if visible {
			sr.Status = StatusVisible
			stepLog.Info(step.Subject() + " visible")
		} else {
			sr.Status = StatusHidden
			stepLog.Warn(step.Subject() + " not visible")
		}
		return sr, nil

	case checklist.KindHover:
		return sr, d.Hover(step.Query, timeout)

	case checklist.KindClick:
		return sr, d.Click(step.Query, timeout, step.Force)

	case checklist.KindFill:
		shown := logutil.RedactValue(step.Query.String(), step.Value, step.Sensitive)
		sr.Detail = shown
		stepLog.Debug("filling", "query", step.Query.String(), "value", shown)
		return sr, d.Fill(step.Query, step.Value, timeout)

	case checklist.KindPress:
		sr.Detail = step.Key
		return sr, d.Press(step.Query, step.Key, timeout)

	case checklist.KindCapture:
		data, err := d.Screenshot(true)
		if err != nil {
			return sr, err
		}
		location, err := r.store.Put(ctx, step.Artifact, data)
		if err != nil {
			return sr, err
		}
		sr.Artifact = location
		stepLog.Info("screenshot saved", "artifact", location)
		return sr, nil

	case checklist.KindPause:
		return sr, r.sleep(ctx, step.Delay)

	default:
		return sr, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown step kind %q", step.Kind))
	}
}

// capture stores a diagnostic screenshot and returns its location, or
// "" when it could not be taken. Failures are logged, not returned.
func (r *Runner) capture(ctx context.Context, log *slog.Logger, d Driver, name string) string {
	data, err := d.Screenshot(true)
	if err != nil {
		log.Warn("screenshot failed", "artifact", name, "error", err)
		return ""
	}
	location, err := r.store.Put(ctx, name, data)
	if err != nil {
		log.Warn("screenshot failed", "artifact", name, "error", err)
		return ""
	}
	log.Info("screenshot saved", "artifact", location)
	return location
}

// captureFailure writes the checklist's failure screenshot. It runs on a
// context detached from cancellation so an interrupted run still leaves
// evidence behind.
func (r *Runner) captureFailure(ctx context.Context, log *slog.Logger, d Driver, c *checklist.Checklist, res *Result) {
	name := c.FailureArtifactName()
	location := r.capture(context.WithoutCancel(ctx), log, d, name)
	if location != "" {
		res.Artifacts = append(res.Artifacts, Artifact{Name: name, Location: location})
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errs.Wrap(errs.Canceled, "pause", ctx.Err())
	case <-t.C:
		return nil
	}
}

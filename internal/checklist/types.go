// Package checklist defines the ordered steps a verification run executes
// and the element queries those steps target.
package checklist

import (
	"strings"
	"time"
)

// Kind identifies what a step does.
type Kind string

const (
	KindNavigate      Kind = "navigate"
	KindWait          Kind = "wait"
	KindAssertVisible Kind = "assert_visible"
	KindHover         Kind = "hover"
	KindClick         Kind = "click"
	KindFill          Kind = "fill"
	KindPress         Kind = "press"
	KindCapture       Kind = "capture"
	KindPause         Kind = "pause"
)

// TimeoutPolicy decides what a timed-out wait does to the run.
type TimeoutPolicy string

const (
	// OnTimeoutFail turns a timeout into a run fault. This is the default.
	OnTimeoutFail TimeoutPolicy = "fail"
	// OnTimeoutContinue logs the timeout and moves on to the next step.
	OnTimeoutContinue TimeoutPolicy = "continue"
)

// Default bounds applied when a step leaves Timeout at zero.
const (
	DefaultWaitTimeout       = 30 * time.Second
	DefaultActionTimeout     = 30 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
)

// DefaultFailureArtifact is used when a checklist names no failure screenshot.
const DefaultFailureArtifact = "error_screenshot.png"

// Query locates an element. Exactly one of Selector, Role or Text is set.
type Query struct {
	// Selector is a Playwright selector, e.g. "aside" or "text=draw2ui".
	Selector string `yaml:"selector,omitempty"`
	// Role and Name match an element by accessible role and name.
	Role string `yaml:"role,omitempty"`
	Name string `yaml:"name,omitempty"`
	// Text matches an element by its visible text.
	Text string `yaml:"text,omitempty"`

	HasText string `yaml:"has_text,omitempty"`
	First   bool   `yaml:"first,omitempty"`
	Within  *Query `yaml:"within,omitempty"`
}

// String renders the query for log lines.
func (q Query) String() string {
	var b strings.Builder
	if q.Within != nil {
		b.WriteString(q.Within.String())
		b.WriteString(" >> ")
	}
	switch {
	case q.Selector != "":
		b.WriteString(q.Selector)
	case q.Role != "":
		b.WriteString("role=")
		b.WriteString(q.Role)
		if q.Name != "" {
			b.WriteString("[name=\"")
			b.WriteString(q.Name)
			b.WriteString("\"]")
		}
	case q.Text != "":
		b.WriteString("text=\"")
		b.WriteString(q.Text)
		b.WriteString("\"")
	}
	if q.HasText != "" {
		b.WriteString(" has-text=\"")
		b.WriteString(q.HasText)
		b.WriteString("\"")
	}
	if q.First {
		b.WriteString(" >> first")
	}
	return b.String()
}

// IsZero reports whether the query has no primary lookup.
func (q Query) IsZero() bool {
	return q.Selector == "" && q.Role == "" && q.Text == ""
}

// Step is one action in a checklist.
type Step struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	Path  string `yaml:"path,omitempty"`
	Query Query  `yaml:"query,omitempty"`
	Value string `yaml:"value,omitempty"`
	Key   string `yaml:"key,omitempty"`
	Force bool   `yaml:"force,omitempty"`
	Label string `yaml:"label,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty"`
	Delay   time.Duration `yaml:"delay,omitempty"`

	Artifact      string        `yaml:"artifact,omitempty"`
	OnTimeout     TimeoutPolicy `yaml:"on_timeout,omitempty"`
	DebugArtifact string        `yaml:"debug_artifact,omitempty"`
	Sensitive     bool          `yaml:"sensitive,omitempty"`
}

// EffectiveTimeout returns the step timeout or the default for its kind.
func (s Step) EffectiveTimeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	switch s.Kind {
	case KindNavigate:
		return DefaultNavigationTimeout
	case KindWait:
		return DefaultWaitTimeout
	default:
		return DefaultActionTimeout
	}
}

// ContinueOnTimeout reports whether a timeout in this step is absorbed.
func (s Step) ContinueOnTimeout() bool {
	return s.OnTimeout == OnTimeoutContinue
}

// Subject is the noun used in visibility log lines.
func (s Step) Subject() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Query.String()
}

// Checklist is a named ordered list of steps.
type Checklist struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description,omitempty"`
	FailureArtifact string `yaml:"failure_artifact,omitempty"`
	Steps           []Step `yaml:"steps"`
}

// FailureArtifactName returns the screenshot name written when the run faults.
func (c *Checklist) FailureArtifactName() string {
	if c.FailureArtifact != "" {
		return c.FailureArtifact
	}
	return DefaultFailureArtifact
}

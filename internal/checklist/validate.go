package checklist

import (
	"fmt"
	"strings"

	"github.com/kuitang/uiverify/internal/errs"
)

// ValidationError lists every problem found in a checklist.
type ValidationError struct {
	Checklist string
	Errors    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checklist %q is invalid:\n  - %s", e.Checklist, strings.Join(e.Errors, "\n  - "))
}

// Validate checks the checklist and returns an errs.InvalidArgument error
// wrapping a *ValidationError when anything is wrong.
func (c *Checklist) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Name) == "" {
		problems = append(problems, "name is required")
	}
	if len(c.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}
	if c.FailureArtifact != "" {
		if msg := checkArtifactName(c.FailureArtifact); msg != "" {
			problems = append(problems, "failure_artifact "+msg)
		}
	}

	for i, step := range c.Steps {
		for _, msg := range step.problems() {
			problems = append(problems, fmt.Sprintf("step %d (%s): %s", i+1, step.describe(), msg))
		}
	}

	if len(problems) > 0 {
		return errs.Wrap(errs.InvalidArgument, "invalid checklist", &ValidationError{Checklist: c.Name, Errors: problems})
	}
	return nil
}

func (s Step) describe() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Kind != "" {
		return string(s.Kind)
	}
	return "unnamed"
}

func (s Step) problems() []string {
	var out []string

	if s.Timeout < 0 {
		out = append(out, "timeout must not be negative")
	}
	if s.Delay < 0 {
		out = append(out, "delay must not be negative")
	}

	switch s.OnTimeout {
	case "", OnTimeoutFail, OnTimeoutContinue:
	default:
		out = append(out, fmt.Sprintf("unknown on_timeout %q (want fail or continue)", s.OnTimeout))
	}
	if s.DebugArtifact != "" {
		if !s.ContinueOnTimeout() {
			out = append(out, "debug_artifact requires on_timeout: continue")
		}
		if msg := checkArtifactName(s.DebugArtifact); msg != "" {
			out = append(out, "debug_artifact "+msg)
		}
	}

	switch s.Kind {
	case KindNavigate:
		// An empty path opens the base URL.
	case KindWait, KindAssertVisible, KindHover, KindClick:
		out = append(out, s.Query.problems("query")...)
	case KindFill:
		out = append(out, s.Query.problems("query")...)
		if s.Value == "" {
			out = append(out, "fill requires a value")
		}
	case KindPress:
		out = append(out, s.Query.problems("query")...)
		if strings.TrimSpace(s.Key) == "" {
			out = append(out, "press requires a key")
		}
	case KindCapture:
		if s.Artifact == "" {
			out = append(out, "capture requires an artifact name")
		} else if msg := checkArtifactName(s.Artifact); msg != "" {
			out = append(out, "artifact "+msg)
		}
	case KindPause:
		if s.Delay == 0 {
			out = append(out, "pause requires a delay")
		}
	case "":
		out = append(out, "kind is required")
	default:
		out = append(out, fmt.Sprintf("unknown kind %q", s.Kind))
	}

	if s.ContinueOnTimeout() && s.Kind != KindWait {
		out = append(out, "on_timeout: continue is only allowed on wait steps")
	}
	return out
}

func (q Query) problems(field string) []string {
	var out []string
	primaries := 0
	if q.Selector != "" {
		primaries++
	}
	if q.Role != "" {
		primaries++
	}
	if q.Text != "" {
		primaries++
	}
	switch primaries {
	case 0:
		out = append(out, field+" needs one of selector, role or text")
	case 1:
	default:
		out = append(out, field+" must set only one of selector, role or text")
	}
	if q.Name != "" && q.Role == "" {
		out = append(out, field+" name is only valid with role")
	}
	if q.Within != nil {
		out = append(out, q.Within.problems(field+".within")...)
	}
	return out
}

func checkArtifactName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "must not be blank"
	case strings.ContainsAny(name, `/\`):
		return fmt.Sprintf("%q must be a plain file name", name)
	case name == "." || name == "..":
		return fmt.Sprintf("%q must be a plain file name", name)
	}
	return ""
}

package checklist

import (
	"sort"
	"time"
)

// Names of the built-in checklists.
const (
	Smoke         = "smoke"
	ProjectRename = "project-rename"
)

var builtins = map[string]func() *Checklist{
	Smoke:         smokeChecklist,
	ProjectRename: projectRenameChecklist,
}

// Builtin returns a fresh copy of the named built-in checklist.
func Builtin(name string) (*Checklist, bool) {
	build, ok := builtins[name]
	if !ok {
		return nil, false
	}
	return build(), true
}

// BuiltinNames returns the built-in checklist names in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// smokeChecklist checks that the editor shell renders: title, sidebar,
// drawing canvas and the generate button.
func smokeChecklist() *Checklist {
	return &Checklist{
		Name:            Smoke,
		Description:     "Editor shell renders title, sidebar, canvas and generate button",
		FailureArtifact: "error_screenshot.png",
		Steps: []Step{
			{Name: "Navigating to app...", Kind: KindNavigate, Path: "/"},
			{
				Name:    "Waiting for title...",
				Kind:    KindWait,
				Query:   Query{Selector: "text=draw2ui"},
				Timeout: 10 * time.Second,
			},
			{
				Name:  "Checking Sidebar...",
				Kind:  KindAssertVisible,
				Query: Query{Selector: "aside"},
				Label: "Sidebar",
			},
			{
				// The canvas loads client-side only and may lag behind the shell.
				Name:          "Checking Excalidraw...",
				Kind:          KindWait,
				Query:         Query{Selector: ".excalidraw"},
				Timeout:       15 * time.Second,
				Label:         "Excalidraw",
				OnTimeout:     OnTimeoutContinue,
				DebugArtifact: "debug_excalidraw.png",
			},
			{
				Name:  "Checking Generate Button...",
				Kind:  KindAssertVisible,
				Query: Query{Role: "button", Name: "Generar UI"},
				Label: "Generate button",
			},
			{Name: "Taking screenshot...", Kind: KindCapture, Artifact: "frontend_verification.png"},
		},
	}
}

// projectRenameChecklist creates a project and renames it through the
// sidebar's inline rename control.
func projectRenameChecklist() *Checklist {
	projectItem := Query{
		Selector: "div[role='button']",
		HasText:  "Project 1",
		First:    true,
	}
	return &Checklist{
		Name:            ProjectRename,
		Description:     "Create a project and rename it from the sidebar",
		FailureArtifact: "error_screenshot_2.png",
		Steps: []Step{
			{Name: "Navigating to app", Kind: KindNavigate, Path: "/"},
			{
				Name:    "Waiting for New Project button",
				Kind:    KindWait,
				Query:   Query{Text: "New Project"},
				Timeout: 30 * time.Second,
			},
			{Name: "Letting the project list settle", Kind: KindPause, Delay: 2 * time.Second},
			{Name: "Creating project", Kind: KindClick, Query: Query{Text: "New Project"}},
			{
				Name:    "Waiting for project item",
				Kind:    KindWait,
				Query:   Query{Selector: "text=Project 1"},
				Timeout: 10 * time.Second,
			},
			{Name: "Hovering project", Kind: KindHover, Query: projectItem},
			{
				// The rename button only becomes actionable on hover.
				Name:  "Clicking rename",
				Kind:  KindClick,
				Query: Query{Selector: "button[title='Rename']", Within: &projectItem},
				Force: true,
			},
			{
				Name:  "Waiting for input",
				Kind:  KindWait,
				Query: Query{Selector: "input", Within: &projectItem},
			},
			{
				Name:  "Typing new name",
				Kind:  KindFill,
				Query: Query{Selector: "input", Within: &projectItem},
				Value: "Renamed Project Font Test",
			},
			{
				Name:  "Submitting new name",
				Kind:  KindPress,
				Query: Query{Selector: "input", Within: &projectItem},
				Key:   "Enter",
			},
			{
				Name:  "Verifying new name",
				Kind:  KindWait,
				Query: Query{Selector: "text=Renamed Project Font Test"},
			},
			{Name: "Taking screenshot", Kind: KindCapture, Artifact: "verification_screenshot_2.png"},
		},
	}
}

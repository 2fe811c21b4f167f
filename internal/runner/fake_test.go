package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kuitang/uiverify/internal/checklist"
	"github.com/kuitang/uiverify/internal/errs"
)

// fakeDriver records every call and returns scripted errors keyed by
// "<method> <target>", e.g. "wait .excalidraw" or "goto http://...".
type fakeDriver struct {
	mu          sync.Mutex
	calls       []string
	failures    map[string]error
	visible     map[string]bool
	panics      map[string]bool
	shotErr     error
	screenshots int
	closes      int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		failures: map[string]error{},
		visible:  map[string]bool{},
		panics:   map[string]bool{},
	}
}

func (f *fakeDriver) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.panics[call] {
		panic("driver exploded on " + call)
	}
	return f.failures[call]
}

func (f *fakeDriver) Goto(url string, _ time.Duration) error {
	return f.record("goto " + url)
}

func (f *fakeDriver) WaitFor(q checklist.Query, _ time.Duration) error {
	return f.record("wait " + q.String())
}

func (f *fakeDriver) IsVisible(q checklist.Query) (bool, error) {
	if err := f.record("visible " + q.String()); err != nil {
		return false, err
	}
	return f.visible[q.String()], nil
}

func (f *fakeDriver) Hover(q checklist.Query, _ time.Duration) error {
	return f.record("hover " + q.String())
}

func (f *fakeDriver) Click(q checklist.Query, _ time.Duration, force bool) error {
	return f.record(fmt.Sprintf("click %s force=%v", q.String(), force))
}

func (f *fakeDriver) Fill(q checklist.Query, value string, _ time.Duration) error {
	return f.record("fill " + q.String() + " " + value)
}

func (f *fakeDriver) Press(q checklist.Query, key string, _ time.Duration) error {
	return f.record("press " + q.String() + " " + key)
}

func (f *fakeDriver) Screenshot(bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "screenshot")
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	f.screenshots++
	return []byte(fmt.Sprintf("png-%d", f.screenshots)), nil
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeDriver) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func launcherFor(d *fakeDriver) LaunchFunc {
	return func(context.Context) (Driver, error) {
		return d, nil
	}
}

// memStore is an in-memory artifacts.Store.
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	puts  map[string]int
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}, puts: map[string]int{}}
}

func (m *memStore) Put(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = append([]byte(nil), data...)
	m.puts[name]++
	return "mem://" + name, nil
}

func (m *memStore) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[name]
}

func timeoutErr(what string) error {
	return errs.Wrap(errs.Timeout, "wait for "+what, fmt.Errorf("timeout: Timeout exceeded"))
}

func newTestRunner(d *fakeDriver, store *memStore) *Runner {
	r := New(Options{
		Launcher: launcherFor(d),
		Store:    store,
		BaseURL:  "http://localhost:4321/",
	})
	r.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
	return r
}

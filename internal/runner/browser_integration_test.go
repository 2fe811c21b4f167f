package runner

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/uiverify/internal/artifacts"
	"github.com/kuitang/uiverify/internal/browser"
	"github.com/kuitang/uiverify/internal/checklist"
	"github.com/kuitang/uiverify/internal/errs"
)

// fixtureApp mimics the editor shell closely enough for both built-in
// checklists: title, sidebar, canvas container, generate button and a
// project list with inline rename.
const fixtureApp = `<!DOCTYPE html>
<html>
<head><title>draw2ui</title>
<style>
  .item .rename { visibility: hidden; }
  .item:hover .rename { visibility: visible; }
</style>
</head>
<body>
  <aside>
    <h1>draw2ui</h1>
    <button id="new">New Project</button>
    <div id="projects"></div>
  </aside>
  <main>
    <div class="excalidraw" style="width:400px;height:300px">canvas</div>
    <button>Generar UI</button>
  </main>
  <script>
    let count = 0;
    document.getElementById('new').addEventListener('click', () => {
      count++;
      const item = document.createElement('div');
      item.className = 'item';
      item.setAttribute('role', 'button');
      const label = document.createElement('span');
      label.textContent = 'Project ' + count;
      const rename = document.createElement('button');
      rename.className = 'rename';
      rename.title = 'Rename';
      rename.textContent = 'Rename';
      rename.addEventListener('click', (e) => {
        e.stopPropagation();
        const input = document.createElement('input');
        input.value = label.textContent;
        input.addEventListener('keydown', (ev) => {
          if (ev.key === 'Enter') {
            label.textContent = input.value;
            input.remove();
            label.hidden = false;
          }
        });
        label.hidden = true;
        item.appendChild(input);
      });
      item.append(label, rename);
      document.getElementById('projects').appendChild(item);
    });
  </script>
</body>
</html>`

func launchOrSkip(t *testing.T) Launcher {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	probe, err := browser.Launch(context.Background(), browser.DefaultOptions())
	if err != nil {
		t.Skip("Playwright not available:", err)
	}
	_ = probe.Close()

	return LaunchFunc(func(ctx context.Context) (Driver, error) {
		s, err := browser.Launch(ctx, browser.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fixtureApp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBrowser_BuiltinChecklistsPass(t *testing.T) {
	launcher := launchOrSkip(t)
	srv := fixtureServer(t)

	for _, name := range checklist.BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			store, err := artifacts.NewFileStore(dir)
			require.NoError(t, err)
			c, _ := checklist.Builtin(name)

			res, err := New(Options{Launcher: launcher, Store: store, BaseURL: srv.URL}).Run(context.Background(), c)
			require.NoError(t, err, "steps: %+v", res.Steps)
			assert.Zero(t, res.Count(StatusHidden))
			assert.Zero(t, res.Count(StatusAbsent))

			_, err = os.Stat(filepath.Join(dir, c.FailureArtifactName()))
			assert.True(t, os.IsNotExist(err), "no failure screenshot on a passing run")
			require.NotEmpty(t, res.Artifacts)
			data, err := os.ReadFile(res.Artifacts[len(res.Artifacts)-1].Location)
			require.NoError(t, err)
			assert.Equal(t, "\x89PNG", string(data[:4]))
		})
	}
}

func TestBrowser_ConnectionRefused(t *testing.T) {
	launcher := launchOrSkip(t)

	// Reserve a port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	dir := t.TempDir()
	store, err := artifacts.NewFileStore(dir)
	require.NoError(t, err)

	res, err := New(Options{Launcher: launcher, Store: store, BaseURL: "http://" + addr}).Run(context.Background(), smoke(t))
	require.Error(t, err)
	assert.Equal(t, errs.Navigation, errs.CodeOf(err))
	assert.Len(t, res.Steps, 1)

	_, err = os.Stat(filepath.Join(dir, "error_screenshot.png"))
	assert.NoError(t, err)
}

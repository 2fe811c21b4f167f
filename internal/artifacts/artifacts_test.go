package artifacts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/uiverify/internal/errs"
	"github.com/kuitang/uiverify/internal/obs"
	"github.com/kuitang/uiverify/internal/s3client"
)

func TestFileStore_OverwritesFixedNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.SampledFrom([]string{"frontend_verification.png", "error_screenshot.png"}).Draw(rt, "name")
		payload := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(rt, "payload")

		location, err := store.Put(context.Background(), name, payload)
		if err != nil {
			rt.Fatalf("put: %v", err)
		}
		got, err := os.ReadFile(location)
		if err != nil {
			rt.Fatalf("read back: %v", err)
		}
		if !bytes.Equal(got, payload) {
			rt.Fatalf("content mismatch for %s", name)
		}
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// Repeated runs never add files beyond one per checkpoint, and no temp files linger.
	for _, n := range names {
		assert.Contains(t, []string{"frontend_verification.png", "error_screenshot.png"}, n)
	}
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "nested", "shots")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	location, err := store.Put(context.Background(), "a.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.png"), location)
}

func TestFileStore_RejectsPathNames(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../x.png", `sub\x.png`, "sub/x.png"} {
		_, err := store.Put(context.Background(), name, []byte("x"))
		require.Error(t, err, name)
		assert.Equal(t, errs.InvalidArgument, errs.CodeOf(err), name)
	}
}

func TestS3Store_UsesFixedKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := s3client.TestClient(t, "shots")
	store := NewS3Store(client, "/uiverify/smoke/")

	assert.Equal(t, "uiverify/smoke/a.png", store.Key("a.png"))
	assert.Equal(t, "a.png", NewS3Store(client, "").Key("a.png"))

	for i := 0; i < 3; i++ {
		location, err := store.Put(ctx, "a.png", []byte{byte(i)})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(location, "/shots/uiverify/smoke/a.png"), location)
	}

	keys, err := client.ListKeys(ctx, "uiverify/")
	require.NoError(t, err)
	assert.Equal(t, []string{"uiverify/smoke/a.png"}, keys)

	got, err := client.GetObject(ctx, "uiverify/smoke/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got)
}

type failingStore struct{ calls int }

func (f *failingStore) Put(context.Context, string, []byte) (string, error) {
	f.calls++
	return "", errs.New(errs.Artifact, "disk full")
}

func TestMirror_SecondaryFailureIsNotFatal(t *testing.T) {
	var logs bytes.Buffer
	restore := obs.SetOutputForTests(&logs)
	defer restore()

	primary, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	broken := &failingStore{}

	location, err := NewMirror(primary, broken).Put(context.Background(), "a.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(primary.Dir(), "a.png"), location)
	assert.Equal(t, 1, broken.calls)
	assert.Contains(t, logs.String(), "artifact mirror failed")
}

func TestMirror_PrimaryFailureStopsCopies(t *testing.T) {
	t.Parallel()
	broken := &failingStore{}
	secondary := &failingStore{}

	_, err := NewMirror(broken, secondary).Put(context.Background(), "a.png", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, errs.Artifact, errs.CodeOf(err))
	assert.Zero(t, secondary.calls)
}

func TestContentType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "image/png", ContentType("a.png"))
	assert.True(t, strings.HasPrefix(ContentType("report.html"), "text/html"))
	assert.Equal(t, "application/octet-stream", ContentType("blob"))
}

package s3client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutObject_OverwritesSameKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := TestClient(t, "artifacts")

	require.NoError(t, client.PutObject(ctx, "runs/smoke/shot.png", []byte("first"), "image/png"))
	require.NoError(t, client.PutObject(ctx, "runs/smoke/shot.png", []byte("second"), "image/png"))

	got, err := client.GetObject(ctx, "runs/smoke/shot.png")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	keys, err := client.ListKeys(ctx, "runs/smoke/")
	require.NoError(t, err)
	assert.Equal(t, []string{"runs/smoke/shot.png"}, keys)
}

func TestGetObject_NotFound(t *testing.T) {
	t.Parallel()
	client := TestClient(t, "artifacts")

	_, err := client.GetObject(context.Background(), "missing.png")
	assert.True(t, errors.Is(err, ErrObjectNotFound), "got %v", err)
}

func TestObjectURL(t *testing.T) {
	t.Parallel()
	withPublic := NewFromS3Client(nil, "bucket", "https://cdn.example.test/bucket/")
	assert.Equal(t, "https://cdn.example.test/bucket/a/b.png", withPublic.ObjectURL("/a/b.png"))

	bare := NewFromS3Client(nil, "bucket", "")
	assert.Equal(t, "s3://bucket/a.png", bare.ObjectURL("a.png"))
	assert.Equal(t, "bucket", bare.BucketName())
}

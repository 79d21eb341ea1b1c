package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverletter-backend/internal/shared/storage/object"
)

func TestPutAndOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	obj, err := store.Put(ctx, "guest:abc", "resume.txt", strings.NewReader("Go developer, 6 years"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("Go developer, 6 years")), obj.SizeBytes)
	assert.True(t, strings.HasPrefix(obj.MimeType, "text/plain"))
	assert.True(t, strings.HasSuffix(obj.Key, "_resume.txt"))

	rc, err := store.Open(ctx, obj.Key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Go developer, 6 years", string(body))
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Open(context.Background(), "../etc/passwd")
	require.Error(t, err)
}

func TestPutConfinesTraversalName(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	ctx := context.Background()

	obj, err := store.Put(ctx, "owner", "../../x.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(obj.Key, "_x.txt"))
	assert.NotContains(t, obj.Key, "..")

	_, err = store.Put(ctx, "owner", "..", strings.NewReader("x"))
	require.ErrorIs(t, err, object.ErrInvalidName)
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	obj, err := store.Put(context.Background(), "owner", "cv.txt", strings.NewReader("Go"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(filepath.Join(dir, filepath.FromSlash(obj.Key))))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".upload-"))
}

func TestDeleteRemovesObjectAndToleratesMissing(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	obj, err := store.Put(ctx, "guest:abc", "resume.txt", strings.NewReader("Go developer"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, obj.Key))
	_, err = store.Open(ctx, obj.Key)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, store.Delete(ctx, obj.Key))
	require.Error(t, store.Delete(ctx, "../outside.txt"))
}

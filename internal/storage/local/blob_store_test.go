package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "pages/abc.html", "text/html", strings.NewReader("<html>snapshot</html>"))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "pages", "abc.html"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "pages", "abc.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>snapshot</html>", string(data))
}

func TestPutObjectRejectsEscapingPaths(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../outside.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)

	_, err = store.PutObject(context.Background(), "", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestPutObjectCanceledContext(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.PutObject(ctx, "pages/a.html", "text/html", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"tickets/t-1/photo.jpg", "tickets/t-1/photo.jpg", false},
		{"/tickets//t-1/photo.jpg", "tickets/t-1/photo.jpg", false},
		{"../etc/passwd", "", true},
		{"tickets/../../x", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalStorage_UploadExistsDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	key, err := store.Upload(ctx, strings.NewReader("jpeg bytes"), "tickets/t-1/a.jpg", "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "tickets/t-1/a.jpg", key)
	assert.Equal(t, "http://localhost:8080/uploads/tickets/t-1/a.jpg", store.URL(key))

	content, err := os.ReadFile(filepath.Join(dir, "tickets", "t-1", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), strings.NewReader("x"), "../escape.txt", "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

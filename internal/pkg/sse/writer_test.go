package sse

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainWriter struct{ header http.Header }

func (p *plainWriter) Header() http.Header        { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(int)             {}

func TestWriter_Send(t *testing.T) {
	rec := httptest.NewRecorder()

	w, err := NewWriter(rec)
	require.NoError(t, err)
	require.NoError(t, w.Send("notification", map[string]string{"id": "n-1"}))
	require.NoError(t, w.Send("ping", map[string]int64{"timestamp": 42}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)
	assert.Equal(t,
		"event: notification\ndata: {\"id\":\"n-1\"}\n\nevent: ping\ndata: {\"timestamp\":42}\n\n",
		rec.Body.String())
}

func TestWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(&plainWriter{header: http.Header{}})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/opencode/pkg/types"
)

// nonFlushingWriter implements http.ResponseWriter but not http.Flusher,
// to exercise newSSEWriter's streaming-support check.
type nonFlushingWriter struct{}

func (nonFlushingWriter) Header() http.Header        { return http.Header{} }
func (nonFlushingWriter) Write(b []byte) (int, error) { return len(b), nil }
func (nonFlushingWriter) WriteHeader(int)             {}

func TestSSEWriterFramesDataPrefixAndBlankLine(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newSSEWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.writeEvent(types.Event{
		Type: types.EventSession,
		Data: types.SessionPayload{SessionID: "sess-1"},
	}))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "data: "))
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	assert.Contains(t, body, `"type":"session"`)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

func TestSSEWriterRejectsNonFlusher(t *testing.T) {
	_, err := newSSEWriter(nonFlushingWriter{})
	assert.Error(t, err)
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/code11"
	"github.com/stretchr/testify/require"
)

// sampleLabels carries the correct check character "6".
var sampleLabels = []string{"S/S", "1", "2", "3", "4", "-", "5", "6", "7", "8", "6", "S/S"}

func testConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         8080,
		CORSOrigin:   "*",
		MaxBodyKB:    64,
		TimeoutSec:   5,
		Defaults:     barcode.DefaultOptions(),
		BatchWorkers: 2,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(testConfig())
	require.NoError(t, err)
	return s
}

func patternsOf(t *testing.T, labels []string) []string {
	t.Helper()
	out := make([]string, len(labels))
	for i, l := range labels {
		sym, err := code11.CharToSymbol(l)
		require.NoError(t, err)
		out[i] = sym.String()
	}
	return out
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{messageType: messageType, data: data})
	return nil
}

package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"kitchen-backoffice/internal/domain"
	"kitchen-backoffice/internal/observability"

	"github.com/stretchr/testify/require"
)

// captureLogs routes the global logger into a buffer for the duration of
// the test. Tests using it must not run in parallel.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	var buf bytes.Buffer
	observability.SetLogger(observability.NewLogger(&buf, "debug", "json"))
	t.Cleanup(func() { observability.SetLogger(prev) })
	return &buf
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e), sc.Text())
		entries = append(entries, e)
	}
	return entries
}

func findEntry(entries []map[string]any, msg string) (map[string]any, bool) {
	for _, e := range entries {
		if e["msg"] == msg {
			return e, true
		}
	}
	return nil, false
}

// withTracker attaches a fresh tracker as the correlation stage would.
func withTracker(r *http.Request) (*http.Request, *Tracker) {
	tr := newTracker()
	return r.WithContext(WithTracker(r.Context(), tr)), tr
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

type stubResolver struct {
	principal domain.Principal
	err       error
	seen      http.Header
}

func (s *stubResolver) Resolve(r *http.Request) (domain.Principal, error) {
	s.seen = r.Header.Clone()
	return s.principal, s.err
}

type stubNonces struct {
	nonce string
	err   error
}

func (s stubNonces) Generate() (string, error) {
	return s.nonce, s.err
}

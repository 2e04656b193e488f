package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// responseWriter captures the status code and body size. It is installed
// once by the audit stage; every later stage reads the status from the
// request Tracker.
type responseWriter struct {
	http.ResponseWriter
	tracker    *Tracker
	statusCode int
	bytes      int
	written    bool
}

func newResponseWriter(w http.ResponseWriter, t *Tracker) *responseWriter {
	return &responseWriter{ResponseWriter: w, tracker: t, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		if rw.tracker != nil {
			rw.tracker.setStatus(statusCode)
		}
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("responsewriter does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

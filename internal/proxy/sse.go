package proxy

import (
	"errors"
	"net/http"
)

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// sseSink flushes after every write so each event reaches the client as it
// is produced. Close flushes once more and refuses further writes.
type sseSink struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	closed bool
}

var errSinkClosed = errors.New("stream already closed")

func newSSESink(w http.ResponseWriter) *sseSink {
	return &sseSink{w: w, rc: http.NewResponseController(w)}
}

func (s *sseSink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errSinkClosed
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, err
	}
	s.flush()
	return n, nil
}

func (s *sseSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.flush()
	return nil
}

func (s *sseSink) flush() {
	// Writers without flush support still deliver everything when the
	// handler returns.
	_ = s.rc.Flush()
}

// Package testutil provides an instrumented HTTP file server for tests.
package testutil

import (
	"crypto/sha1" //nolint:gosec // matches the digests published by manifests
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Server serves in-memory files and records how it was used.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	files      map[string][]byte
	failures   map[string]failure
	requests   map[string]int
	userAgents []string
	delay      time.Duration

	active atomic.Int64
	peak   atomic.Int64
}

type failure struct {
	remaining int // negative fails forever
	status    int
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		files:    make(map[string][]byte),
		failures: make(map[string]failure),
		requests: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddFile registers content under path and returns its URL.
func (s *Server) AddFile(path string, content []byte) string {
	path = "/" + strings.TrimPrefix(path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
	return s.URL + path
}

// FailTimes makes the next n requests for path answer status. A negative n
// fails every request.
func (s *Server) FailTimes(path string, n, status int) {
	path = "/" + strings.TrimPrefix(path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{remaining: n, status: status}
}

// SetDelay holds every response for d, or until the client goes away.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns the number of requests seen for path.
func (s *Server) Requests(path string) int {
	path = "/" + strings.TrimPrefix(path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of requests seen for all paths.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// UserAgents returns the User-Agent header of every request, in arrival order.
func (s *Server) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

// PeakConcurrency is the highest number of simultaneously open requests.
func (s *Server) PeakConcurrency() int64 {
	return s.peak.Load()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	cur := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	s.mu.Lock()
	s.requests[r.URL.Path]++
	s.userAgents = append(s.userAgents, r.UserAgent())
	delay := s.delay
	content, ok := s.files[r.URL.Path]
	fail, failing := s.failures[r.URL.Path]
	if failing && fail.remaining != 0 {
		if fail.remaining > 0 {
			fail.remaining--
		}
		s.failures[r.URL.Path] = fail
	} else {
		failing = false
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(delay):
		}
	}

	switch {
	case failing:
		w.WriteHeader(fail.status)
	case !ok:
		http.NotFound(w, r)
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}

// SHA1Hex returns the hex SHA-1 of b.
func SHA1Hex(b []byte) string {
	sum := sha1.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Package webstats exposes the live statistics of a set of registered
// cache nodes over HTTP, as a lightweight alternative to the text
// reporter for an operator who wants to watch a running simulation.
package webstats

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"

	"github.com/sarchlab/cachesim/cache"
)

// Server registers a set of named caches and exposes GET /stats (every
// registered cache) and GET /stats/{name} (one cache) as JSON.
type Server struct {
	port int

	mu     sync.Mutex
	caches map[string]*cache.Cache
}

// NewServer creates a Server listening on port. A port of 0 selects any
// free port, discoverable from the log line StartServer prints.
func NewServer(port int) *Server {
	return &Server{port: port, caches: make(map[string]*cache.Cache)}
}

// Register adds c to the set of caches the server reports on, keyed by
// its own Name. A later Register under the same name replaces the
// earlier one.
func (s *Server) Register(c *cache.Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches[c.Name()] = c
}

// StartServer binds a listener and serves in a background goroutine,
// mirroring the pack's monitoring server: it logs the chosen URL to
// stderr and returns immediately rather than blocking the caller. It
// returns the bound port, useful when the Server was constructed with
// port 0.
func (s *Server) StartServer() (int, error) {
	r := mux.NewRouter()
	r.HandleFunc("/stats", s.listStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/{name}", s.statForName).Methods(http.MethodGet)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return 0, fmt.Errorf("webstats: binding listener: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr, "Serving cache statistics at http://localhost:%d/stats\n", port)

	go func() {
		if err := http.Serve(listener, r); err != nil {
			fmt.Fprintf(os.Stderr, "webstats: server stopped: %s\n", err)
		}
	}()

	return port, nil
}

// OpenBrowser launches the system's default browser at the server's
// /stats endpoint. Call it with the port StartServer returned.
func (s *Server) OpenBrowser(port int) error {
	return browser.OpenURL(fmt.Sprintf("http://localhost:%d/stats", port))
}

func (s *Server) listStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	snapshot := make([]cache.Stats, 0, len(s.caches))
	for _, c := range s.caches {
		snapshot = append(snapshot, c.Stats())
	}
	s.mu.Unlock()

	writeJSON(w, snapshot)
}

func (s *Server) statForName(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.Lock()
	c, ok := s.caches[name]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "cache %q not registered", name)
		return
	}

	writeJSON(w, c.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "webstats: encoding response: %s\n", err)
	}
}

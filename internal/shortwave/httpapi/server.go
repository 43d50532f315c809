// Package httpapi exposes the node's registry, now-playing, and audio state
// over plain net/http. Streaming endpoints (SSE and /stream) follow the
// channel-per-client relay pattern in arung-agamani-denpa-radio's
// internal/radio.StreamHandler: each request subscribes to a Broadcast Hub
// topic and copies chunks to the response until the client goes away.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/alxayo/shortwave/internal/bufpool"
	"github.com/alxayo/shortwave/internal/shortwave/blocklist"
	"github.com/alxayo/shortwave/internal/shortwave/broadcast"
	"github.com/alxayo/shortwave/internal/shortwave/freq"
	"github.com/alxayo/shortwave/internal/shortwave/nowplaying"
	"github.com/alxayo/shortwave/internal/shortwave/registry"
)

// Server wires the registry, now-playing store, blocklist, and audio hub
// into one http.Handler.
type Server struct {
	registry    *registry.Registry
	nowPlaying  *nowplaying.Store
	blocklist   *blocklist.Store
	hub         *broadcast.Hub
	sourceToken string
	log         *slog.Logger

	nodeID     string
	apiBaseURL string
	version    string

	mux http.Handler
}

// New builds the routed handler. sourceToken, if non-empty, is required as
// a Bearer token on PUT /api/v1/source; an empty token disables auth on
// that endpoint (spec §6.1 treats this as operator-opted-in). nodeID,
// apiBaseURL, and version are reported verbatim by GET /api/v1/healthz.
func New(reg *registry.Registry, np *nowplaying.Store, bl *blocklist.Store, hub *broadcast.Hub, sourceToken, nodeID, apiBaseURL, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		registry:    reg,
		nowPlaying:  np,
		blocklist:   bl,
		hub:         hub,
		sourceToken: sourceToken,
		nodeID:      nodeID,
		apiBaseURL:  apiBaseURL,
		version:     version,
		log:         log.With("component", "httpapi"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/v1/stations", s.handleStations)
	mux.HandleFunc("GET /api/v1/stations/{frequency}", s.handleStation)
	mux.HandleFunc("GET /api/v1/events", s.handleRegistryEvents)
	mux.HandleFunc("GET /api/v1/now", s.handleNow)
	mux.HandleFunc("GET /api/v1/now/events", s.handleNowEvents)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("PUT /api/v1/source", s.handleSource)

	s.mux = s.withBlocklist(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// withBlocklist rejects any request whose remote IP is in the blocklist
// before it reaches routing, per spec §6.1.
func (s *Server) withBlocklist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.blocklist != nil {
			if addr, err := clientAddr(r); err == nil && s.blocklist.Contains(addr) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "blocked"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func clientAddr(r *http.Request) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return netip.ParseAddr(host)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"node_id":      s.nodeID,
		"api_base_url": s.apiBaseURL,
		"version":      s.version,
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshot())
}

func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("frequency")
	key, err := freq.NormalizeString(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid frequency"})
		return
	}
	assignment, ok := s.registry.Get(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}

func (s *Server) handleRegistryEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sub := s.hub.Registry.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.C():
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	np, ok := s.nowPlaying.Get()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, np)
}

func (s *Server) handleNowEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sub := s.hub.NowPlaying.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if current, ok := s.nowPlaying.Get(); ok {
		if err := writeSSE(w, current); err != nil {
			return
		}
		flusher.Flush()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case np, open := <-sub.C():
			if !open {
				return
			}
			if err := writeSSE(w, np); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("content_type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.hub.Audio.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, open := <-sub.C():
			if !open {
				return
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if s.sourceToken != "" {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.sourceToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	buf := bufpool.Get(16 * 1024)
	defer bufpool.Put(buf)

	for {
		n, err := r.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.hub.Audio.Publish(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.log.Warn("source stream read error", "error", err)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("data: " + string(data) + "\n\n"))
	return err
}

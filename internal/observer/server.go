// Package observer streams closed cascades and periodic statistics to local
// websocket clients.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sandpile/internal/sims/sandpile"
)

// Message types sent on /ws.
const (
	TypeCascade = "CASCADE"
	TypeStats   = "STATS"
)

// Bootstrap is the /bootstrap response.
type Bootstrap struct {
	Run      string `json:"run"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	PeriodMs int64  `json:"period_ms"`
}

// CascadeMsg announces one closed cascade.
type CascadeMsg struct {
	Type string `json:"type"`
	Run  string `json:"run"`
	sandpile.Cascade
}

// StatsMsg carries the statistics windows.
type StatsMsg struct {
	Type     string `json:"type"`
	Tick     uint64 `json:"tick"`
	Recent   []int  `json:"recent"`
	Top      []int  `json:"top"`
	Open     int    `json:"open"`
	PeriodMs int64  `json:"period_ms"`
}

const clientBuffer = 256

// Server fans messages out to connected clients. Publishing never blocks;
// a client whose buffer is full misses messages.
type Server struct {
	info   Bootstrap
	logger *slog.Logger
	period atomic.Int64

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped atomic.Uint64
}

type client struct {
	out chan []byte
}

// New returns a server describing the given run.
func New(info Bootstrap, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		info:    info,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.period.Store(info.PeriodMs)
	return s
}

// SetPeriod updates the period reported by /bootstrap.
func (s *Server) SetPeriod(d time.Duration) { s.period.Store(d.Milliseconds()) }

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many per-client messages were discarded.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// RecordCascade implements sandpile.Sink.
func (s *Server) RecordCascade(c sandpile.Cascade) {
	s.publish(CascadeMsg{Type: TypeCascade, Run: s.info.Run, Cascade: c})
}

// PublishStats sends a STATS message. The slices are marshalled before
// return so callers may reuse them.
func (s *Server) PublishStats(m StatsMsg) {
	m.Type = TypeStats
	s.publish(m)
}

func (s *Server) publish(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("observer marshal failed", "err", err)
		return
	}
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Handler serves /bootstrap and /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap", s.bootstrap)
	mux.HandleFunc("/ws", s.ws)
	return mux
}

// Start listens on addr and serves until ctx is cancelled. It returns the
// bound address.
func (s *Server) Start(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observer stopped", "err", err)
		}
	}()
	s.logger.Info("observer listening", "addr", ln.Addr().String())
	return ln.Addr(), nil
}

func (s *Server) bootstrap(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	resp := s.info
	resp.PeriodMs = s.period.Load()
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(resp)
}

func (s *Server) ws(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{out: make(chan []byte, clientBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("observer client joined", "remote", r.RemoteAddr)
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		s.logger.Debug("observer client left", "remote", r.RemoteAddr)
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

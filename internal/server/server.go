// Package server exposes the command engine to a remote agent over HTTP and
// websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"canvas-cli/internal/args"
	"canvas-cli/internal/engine"
	"canvas-cli/internal/grounding"
)

type Config struct {
	Addr      string
	AssetsDir string
	Logger    *zap.Logger
	// Gatherer backs /metrics; the default registry when nil.
	Gatherer prometheus.Gatherer
}

type Server struct {
	cfg Config
	eng *engine.Engine
	log *zap.Logger
}

func New(eng *engine.Engine, cfg Config) (*Server, error) {
	if eng == nil {
		return nil, errors.New("server: missing engine")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("server: missing addr")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{cfg: cfg, eng: eng, log: cfg.Logger}, nil
}

func (s *Server) Addr() string { return strings.TrimSpace(s.cfg.Addr) }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /commands", s.handleCommands)
	mux.HandleFunc("POST /commands/{name}", s.handleDispatch)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /digest", s.handleDigest)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	if dir := strings.TrimSpace(s.cfg.AssetsDir); dir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(dir))))
	}
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Commands())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Snapshot())
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(grounding.Build(s.eng.State())))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.eng.Reset()
	writeJSON(w, http.StatusOK, s.eng.Snapshot())
}

// CommandResponse answers one command over HTTP or websocket.
type CommandResponse struct {
	Type       string          `json:"type,omitempty"`
	ID         string          `json:"id,omitempty"`
	Result     *engine.Result  `json:"result,omitempty"`
	LastAction string          `json:"lastAction,omitempty"`
	Error      string          `json:"error,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a := args.Args{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeJSON(w, http.StatusBadRequest, CommandResponse{Error: "invalid JSON body: " + err.Error()})
			return
		}
	}
	resp, code := s.dispatch(r.Context(), "", name, a)
	writeJSON(w, code, resp)
}

func (s *Server) dispatch(ctx context.Context, id, name string, a args.Args) (CommandResponse, int) {
	res, err := s.eng.Dispatch(ctx, name, a)
	resp := CommandResponse{Type: "result", ID: id}
	if err != nil {
		resp.Error = err.Error()
		if errors.Is(err, engine.ErrUnknownCommand) {
			return resp, http.StatusNotFound
		}
		return resp, http.StatusBadRequest
	}
	resp.Result = &res
	resp.LastAction = s.eng.Snapshot().LastAction
	return resp, http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

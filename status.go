package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Tutortoise/live-spotter/spotter"
)

// statusServer exposes run statistics while the session is running. It
// never carries frames or detections.
type statusServer struct {
	session *spotter.Session
	logger  *slog.Logger
	srv     *http.Server
}

type metricsResponse struct {
	Frames         int64             `json:"frames"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	FPS            float64           `json:"fps"`
	Counters       spotter.Counters  `json:"counters"`
	Pool           spotter.PoolStats `json:"pool"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func newStatusServer(addr string, session *spotter.Session, logger *slog.Logger) *statusServer {
	s := &statusServer{session: session, logger: logger}

	r := mux.NewRouter()
	s.addMonitoringRoutes(r)

	s.srv = &http.Server{
		Handler:      r,
		Addr:         addr,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return s
}

func (s *statusServer) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

func (s *statusServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	st := s.session.Stats()
	response := metricsResponse{
		Frames:         st.Frames(),
		ElapsedSeconds: st.Elapsed().Seconds(),
		FPS:            st.FPS(),
		Counters:       s.session.Counters(),
		Pool:           s.session.Pool().GetMetrics(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *statusServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status, code := "ok", http.StatusOK
	if s.session.Stats().Stopped() {
		status, code = "stopped", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(healthResponse{Status: status})
}

// start binds the listener synchronously so a bad address fails startup.
func (s *statusServer) start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info(MsgStatusServer, "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", "error", err)
		}
	}()
	return nil
}

func (s *statusServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

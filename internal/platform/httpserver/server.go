package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	votingdao "votingdao/contexts/governance/voting-dao"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "votingdao/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	voting votingdao.Module
}

func New(voting votingdao.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		voting: voting,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server stopping",
			"event", "http_server_stopping",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"addr", s.addr,
		)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /v1/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/votes", s.handleListVotes)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/votes/{voter_id}", s.handleHasVoted)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/active", s.handleActive)
}

// writeJSON encodes before writing the header so an unencodable payload
// becomes a 500 instead of a success status with an empty body.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("response encode failed",
			"event", "http_response_encode_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"status", status,
			"error", err.Error(),
		)
		status = http.StatusInternalServerError
		body = []byte(`{"code":"internal_error","message":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

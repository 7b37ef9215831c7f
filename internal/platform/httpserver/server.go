package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	ballotengine "quorum/contexts/governance/ballot-engine"
	ballotdomainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	ballothttp "quorum/contexts/governance/ballot-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ballot ballotengine.Module
}

func New(ballot ballotengine.Module, logger *slog.Logger, addr string) *Server {
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
		ballot: ballot,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/elections", s.handleCreateElection)
	s.mux.HandleFunc("GET /v1/elections/{election_id}", s.handleGetElection)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/voters", s.handleRegisterVoter)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/proposals", s.handleAddProposal)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/start", s.handleStartVoting)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/close", s.handleCloseVoting)
	s.mux.HandleFunc("POST /v1/elections/{election_id}/ballots", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/status", s.handleStatus)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/voters/{voter_id}", s.handleVoterDetails)
	s.mux.HandleFunc("GET /v1/elections/{election_id}/winner", s.handleWinner)
}

func (s *Server) handleCreateElection(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.CreateElectionHandler(r.Context(), callerID, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetElection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.GetElectionHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.RegisterVoterHandler(r.Context(), callerID, r.PathValue("election_id"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAddProposal(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.AddProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.AddProposalHandler(r.Context(), callerID, r.PathValue("election_id"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStartVoting(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.StartVotingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.StartVotingHandler(r.Context(), callerID, r.PathValue("election_id"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCloseVoting(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	resp, err := s.ballot.Handler.CloseVotingHandler(r.Context(), callerID, r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	callerID := resolveCallerID(r)
	if callerID == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req ballothttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.CastVoteHandler(r.Context(), callerID, r.PathValue("election_id"), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.StatusHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.ListProposalsHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterDetails(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.VoterDetailsHandler(r.Context(), r.PathValue("election_id"), r.PathValue("voter_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWinner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ballot.Handler.WinnerHandler(r.Context(), r.PathValue("election_id"))
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeBallotDomainError maps domain sentinels to transport statuses. Errors
// that are not domain sentinels are infrastructure failures and surface as an
// opaque 500 without interpretation.
func writeBallotDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrElectionNotFound):
		writeBallotError(w, http.StatusNotFound, "election_not_found", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrUnauthorized):
		writeBallotError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVoterNotRegistered):
		writeBallotError(w, http.StatusForbidden, "voter_not_registered", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyRegistered):
		writeBallotError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyStarted):
		writeBallotError(w, http.StatusConflict, "already_started", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyClosed):
		writeBallotError(w, http.StatusConflict, "already_closed", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrAlreadyVoted):
		writeBallotError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVotingNotActive):
		writeBallotError(w, http.StatusConflict, "voting_not_active", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrVotingNotEnded):
		writeBallotError(w, http.StatusConflict, "voting_not_ended", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidProposal):
		writeBallotError(w, http.StatusUnprocessableEntity, "invalid_proposal", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrConflict):
		writeBallotError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ballotdomainerrors.ErrInvalidInput):
		writeBallotError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeBallotError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// resolveCallerID extracts the pre-authenticated principal. The engine never
// authenticates; upstream middleware owns identity verification.
func resolveCallerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

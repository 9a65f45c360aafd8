// Package http implements the REST API for the SIPORTS networking match engine.
package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/epitaphe360/siport-sub000/internal/application/command"
	"github.com/epitaphe360/siport-sub000/internal/application/query"
	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
	"github.com/epitaphe360/siport-sub000/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "SIPORTS Networking Match Engine API",
		"version":     "v1",
		"description": "Compatibility scoring, recommendations, and connection lifecycle for salon participants",
		"endpoints": map[string]string{
			"health":          "/health",
			"search":          "/api/v1/participants",
			"recommendations": "/api/v1/participants/{id}/recommendations",
			"compatibility":   "/api/v1/participants/{id}/compatibility/{other}",
			"connections":     "/api/v1/participants/{id}/connections",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
// NewServer guarantees a HealthChecker (noop when none is configured).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// MATCHING HANDLERS (READ SIDE)
// ══════════════════════════════════════════════════════════════════════════════

// handleGetRecommendations handles GET /api/v1/participants/{id}/recommendations
func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("id")
	if viewerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Participant ID is required")
		return
	}

	if s.deps.GetRecommendationsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Recommendations handler not configured")
		return
	}

	// Default applies only when the limit parameter is absent; an explicit
	// limit=0 must reach validation and be rejected.
	q := query.GetRecommendationsQuery{
		ViewerID:    viewerID,
		Limit:       getQueryParamInt(r, "limit", matching.DefaultRecommendationLimit),
		BypassCache: getQueryParamBool(r, "refresh"),
	}

	result, err := s.deps.GetRecommendationsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get recommendations")
		return
	}

	meta := &ResponseMeta{
		TotalCount: len(result.Recommendations),
		FromCache:  result.FromCache,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleSearchParticipants handles GET /api/v1/participants
func (s *Server) handleSearchParticipants(w http.ResponseWriter, r *http.Request) {
	if s.deps.SearchParticipantsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Search handler not configured")
		return
	}

	q := query.SearchParticipantsQuery{
		ViewerID:         getQueryParam(r, "viewer", ""),
		Kind:             getQueryParam(r, "kind", ""),
		Sectors:          getQueryParamList(r, "sectors"),
		Regions:          getQueryParamList(r, "regions"),
		CompanySizeBands: getQueryParamList(r, "company_sizes"),
		Keyword:          getQueryParam(r, "q", ""),
		Limit:            getQueryParamInt(r, "limit", 0),
	}

	if err := q.Validate(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.SearchParticipantsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to search participants")
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.TotalMatched,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleGetCompatibility handles GET /api/v1/participants/{id}/compatibility/{other}
func (s *Server) handleGetCompatibility(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("id")
	candidateID := r.PathValue("other")
	if viewerID == "" || candidateID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Both participant IDs are required")
		return
	}

	if s.deps.GetCompatibilityHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Compatibility handler not configured")
		return
	}

	q := query.GetCompatibilityQuery{
		ViewerID:    viewerID,
		CandidateID: candidateID,
	}

	result, err := s.deps.GetCompatibilityHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to compute compatibility")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetConnections handles GET /api/v1/participants/{id}/connections
func (s *Server) handleGetConnections(w http.ResponseWriter, r *http.Request) {
	viewerID := r.PathValue("id")
	if viewerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Participant ID is required")
		return
	}

	if s.deps.GetConnectionsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Connections handler not configured")
		return
	}

	q := query.GetConnectionsQuery{ViewerID: viewerID}

	result, err := s.deps.GetConnectionsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to get connections")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION LIFECYCLE HANDLERS (WRITE SIDE)
// ══════════════════════════════════════════════════════════════════════════════

// connectionRequestBody is the JSON body for connection lifecycle commands.
type connectionRequestBody struct {
	ViewerID string `json:"viewer_id"`
	OtherID  string `json:"other_id"`
}

// handleSendConnectionRequest handles POST /api/v1/connections/request
func (s *Server) handleSendConnectionRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.SendConnectionRequestHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Connection handler not configured")
		return
	}

	body, ok := s.decodeConnectionBody(w, r)
	if !ok {
		return
	}

	cmd := command.SendConnectionRequestCommand{
		ViewerID:      body.ViewerID,
		CandidateID:   body.OtherID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.SendConnectionRequestHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to send connection request")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleAcceptConnectionRequest handles POST /api/v1/connections/accept
func (s *Server) handleAcceptConnectionRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.AcceptConnectionRequestHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Connection handler not configured")
		return
	}

	body, ok := s.decodeConnectionBody(w, r)
	if !ok {
		return
	}

	cmd := command.AcceptConnectionRequestCommand{
		ViewerID:      body.ViewerID,
		RequesterID:   body.OtherID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.AcceptConnectionRequestHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to accept connection request")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleRejectConnectionRequest handles POST /api/v1/connections/reject
// The same endpoint serves a requester withdrawing their own pending request.
func (s *Server) handleRejectConnectionRequest(w http.ResponseWriter, r *http.Request) {
	if s.deps.RejectConnectionRequestHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Connection handler not configured")
		return
	}

	body, ok := s.decodeConnectionBody(w, r)
	if !ok {
		return
	}

	cmd := command.RejectConnectionRequestCommand{
		ViewerID:      body.ViewerID,
		OtherID:       body.OtherID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RejectConnectionRequestHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to reject connection request")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAddFavorite handles PUT /api/v1/participants/{id}/favorites/{candidate}
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.handleFavorite(w, r, true)
}

// handleRemoveFavorite handles DELETE /api/v1/participants/{id}/favorites/{candidate}
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.handleFavorite(w, r, false)
}

func (s *Server) handleFavorite(w http.ResponseWriter, r *http.Request, favorited bool) {
	viewerID := r.PathValue("id")
	candidateID := r.PathValue("candidate")
	if viewerID == "" || candidateID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Both participant IDs are required")
		return
	}

	if s.deps.FavoriteParticipantHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Favorite handler not configured")
		return
	}

	cmd := command.FavoriteParticipantCommand{
		ViewerID:      viewerID,
		CandidateID:   candidateID,
		Favorited:     favorited,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.FavoriteParticipantHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err, "failed to update favorite")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeConnectionBody reads and validates the shared lifecycle request body.
func (s *Server) decodeConnectionBody(w http.ResponseWriter, r *http.Request) (connectionRequestBody, bool) {
	var body connectionRequestBody

	// Body size is already capped by RequestSizeLimitMiddleware.
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return body, false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(data, &body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return body, false
	}

	if body.ViewerID == "" || body.OtherID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "viewer_id and other_id are required")
		return body, false
	}

	return body, true
}

// writeDomainError maps domain errors to HTTP status codes by their
// shared.DomainError kind: not-found is 404, illegal transitions are 409,
// validation is 400, unreachable collaborators are 503.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsStateTransition(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case shared.IsExternalService(err):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", "A dependent service is unavailable")
	default:
		s.logger.Error(logMsg,
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

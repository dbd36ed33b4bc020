package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/axonote/pipeline/ent/processingjob"
	"github.com/axonote/pipeline/pkg/models"
)

// getSessionHandler handles GET /api/v1/sessions/:id.
func (s *Server) getSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		abortWithError(c, newAPIError(http.StatusBadRequest, "session id is required"))
		return
	}

	session, err := s.sessionService.GetSession(c.Request.Context(), sessionID, true)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusOK, session)
}

// listSessionsHandler handles GET /api/v1/sessions.
func (s *Server) listSessionsHandler(c *gin.Context) {
	filters := models.SessionFilters{
		PipelineState: c.Query("pipeline_state"),
		Subject:       c.Query("subject"),
		LecturerName:  c.Query("lecturer_name"),
		Limit:         20,
	}

	if v := c.Query("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 100 {
			filters.Limit = limit
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}
	if v := c.Query("include_deleted"); v == "true" {
		filters.IncludeDeleted = true
	}
	if v := c.Query("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			abortWithError(c, newAPIError(http.StatusBadRequest, "invalid created_after: must be RFC3339"))
			return
		}
		filters.CreatedAfter = &t
	}
	if v := c.Query("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			abortWithError(c, newAPIError(http.StatusBadRequest, "invalid created_before: must be RFC3339"))
			return
		}
		filters.CreatedBefore = &t
	}

	result, err := s.sessionService.ListSessions(c.Request.Context(), filters)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// searchSessionsHandler handles GET /api/v1/sessions/search.
func (s *Server) searchSessionsHandler(c *gin.Context) {
	query := c.Query("q")
	if len(query) < 3 {
		abortWithError(c, newAPIError(http.StatusBadRequest, "search query must be at least 3 characters"))
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	sessions, err := s.sessionService.SearchSessions(c.Request.Context(), query, limit)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// cancelSessionHandler handles POST /api/v1/sessions/:id/cancel.
func (s *Server) cancelSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		abortWithError(c, newAPIError(http.StatusBadRequest, "session id is required"))
		return
	}

	job, err := s.sessionService.CancelActiveJob(c.Request.Context(), sessionID)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	// Cancel in-flight work on this pod, if this worker pool owns the job.
	if s.workerPool != nil {
		s.workerPool.CancelJob(job.ID)
	}

	c.JSON(http.StatusOK, &CancelResponse{
		SessionID: sessionID,
		Message:   "job cancellation requested",
	})
}

// retryJobHandler handles POST /api/v1/sessions/:id/retry.
func (s *Server) retryJobHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		abortWithError(c, newAPIError(http.StatusBadRequest, "session id is required"))
		return
	}

	kindParam := c.Query("kind")
	if kindParam == "" {
		kindParam = string(processingjob.RequestedKindFull)
	}
	kind := processingjob.RequestedKind(kindParam)
	if err := processingjob.RequestedKindValidator(kind); err != nil {
		abortWithError(c, newAPIError(http.StatusBadRequest, "invalid kind: "+kindParam))
		return
	}

	job, err := s.sessionService.RetryJob(c.Request.Context(), sessionID, kind)
	if err != nil {
		abortWithError(c, mapServiceError(err))
		return
	}

	c.JSON(http.StatusCreated, job)
}

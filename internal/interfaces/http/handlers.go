package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/spend-approval/internal/application/service"
	"github.com/garyjia/spend-approval/internal/domain/entity"
	"github.com/garyjia/spend-approval/internal/domain/workflow"
)

const defaultStatsWindowDays = 30

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DecisionRequest is the body of POST /api/approvals/:id/decision
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comments string `json:"comments"`
	Override bool   `json:"override"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// ResolveRoute handles POST /api/routes/resolve. It previews a route without persisting anything.
func (h *Handlers) ResolveRoute(c *gin.Context) {
	var req service.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	route, err := h.services.Routes.Resolve(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: route})
}

// GetRequest handles GET /api/requests/:kind/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	ref, ok := h.subjectRef(c)
	if !ok {
		return
	}

	req, err := h.services.Approval.GetRequest(c.Request.Context(), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// SubmitRequest handles POST /api/requests/:kind/:id/submit
func (h *Handlers) SubmitRequest(c *gin.Context) {
	ref, ok := h.subjectRef(c)
	if !ok {
		return
	}

	result, err := h.services.Approval.Submit(c.Request.Context(), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ListApprovals handles GET /api/requests/:kind/:id/approvals
func (h *Handlers) ListApprovals(c *gin.Context) {
	ref, ok := h.subjectRef(c)
	if !ok {
		return
	}

	records, err := h.services.Approval.ListApprovals(c.Request.Context(), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// Decide handles POST /api/approvals/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var body DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	decision, err := parseDecision(body.Decision)
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}

	out, err := h.services.Approval.Decide(c.Request.Context(), service.Decision{
		ApprovalID: id,
		Decision:   decision,
		Comments:   body.Comments,
		IsOverride: body.Override,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: out})
}

// ApproverStats handles GET /api/approvers/:id/stats?window_days=30
func (h *Handlers) ApproverStats(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	window := defaultStatsWindowDays
	if raw := c.Query("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.badRequest(c, "window_days must be a positive integer")
			return
		}
		window = n
	}

	stats, err := h.services.Stats.Stats(c.Request.Context(), id, window)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

func (h *Handlers) subjectRef(c *gin.Context) (entity.SubjectRef, bool) {
	ref, err := entity.ParseSubjectRef(c.Param("kind"), c.Param("id"))
	if err != nil {
		h.badRequest(c, err.Error())
		return entity.SubjectRef{}, false
	}
	return ref, true
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func parseDecision(s string) (entity.ApprovalStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVED", "APPROVE":
		return entity.ApprovalStatusApproved, nil
	case "REJECTED", "REJECT":
		return entity.ApprovalStatusRejected, nil
	}
	return "", errors.New("decision must be APPROVED or REJECTED")
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps service errors onto HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		msg = "internal server error"
	}
	c.JSON(status, Response{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoRouteFound), errors.Is(err, service.ErrUnresolvedApprover):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrConcurrencyConflict),
		errors.Is(err, service.ErrLevelOrder),
		errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hotelpms/hotel-backend/internal/middleware"
)

const (
	defaultMismatchLimit = 50
	maxMismatchLimit     = 500
)

// AdminHandler handles admin-only HTTP requests: the payment audit trail
// and the maintenance jobs
type AdminHandler struct {
	audits    AuditReader
	scheduler JobScheduler
	purge     PurgeCounter
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(audits AuditReader, scheduler JobScheduler, purge PurgeCounter, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		audits:    audits,
		scheduler: scheduler,
		purge:     purge,
		logger:    logger,
	}
}

// JobStatusResponse reports the scheduler and the purge backlog
type JobStatusResponse struct {
	Jobs          map[string]interface{} `json:"jobs"`
	PendingPurges int64                  `json:"pending_purges"`
}

// GetAmountMismatches handles GET /api/admin/payment-audits/mismatches?limit=
func (h *AdminHandler) GetAmountMismatches(c *gin.Context) {
	limit := defaultMismatchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxMismatchLimit {
		limit = maxMismatchLimit
	}

	audits, err := h.audits.AmountMismatches(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

// GetAuditsByIMPUID handles GET /api/admin/payment-audits/imp/:impUid
func (h *AdminHandler) GetAuditsByIMPUID(c *gin.Context) {
	audits, err := h.audits.ByIMPUID(c.Request.Context(), c.Param("impUid"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

// GetAuditsByReservation handles GET /api/admin/payment-audits/reservation/:id
func (h *AdminHandler) GetAuditsByReservation(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	audits, err := h.audits.ByReservation(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, audits)
}

// GetJobStatus handles GET /api/admin/jobs
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	pending, err := h.purge.CountExpired(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, JobStatusResponse{
		Jobs:          h.scheduler.GetJobStatus(),
		PendingPurges: pending,
	})
}

// RunUserPurge handles POST /api/admin/jobs/user-purge
func (h *AdminHandler) RunUserPurge(c *gin.Context) {
	h.logger.WithField("admin_id", middleware.MustGetUserContext(c).UserID).Info("Manual user purge requested")

	h.scheduler.RunUserPurgeNow()
	c.JSON(http.StatusOK, MessageResponse{Message: "User purge completed"})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haperez86/EduPay/internal/models"
	"github.com/haperez86/EduPay/internal/service"
	"github.com/haperez86/EduPay/pkg/response"
)

type reconciliationTrigger interface {
	TriggerNow(actor models.Actor) (string, error)
	LastRun() *service.ReconciliationRun
}

// ReconciliationHandler lets operators run the drift sweep on demand.
type ReconciliationHandler struct {
	reconciler reconciliationTrigger
}

// NewReconciliationHandler constructs the handler.
func NewReconciliationHandler(reconciler reconciliationTrigger) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// Trigger godoc
// @Summary Queue a reconciliation sweep
// @Tags Admin
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /reconciliation/runs [post]
func (h *ReconciliationHandler) Trigger(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, err := h.reconciler.TriggerNow(actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": id}, nil)
}

// Last godoc
// @Summary Latest completed reconciliation sweep
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reconciliation/runs/latest [get]
func (h *ReconciliationHandler) Last(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reconciler.LastRun(), nil)
}

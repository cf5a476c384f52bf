package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vetclinic-server/internal/models"
	"vetclinic-server/internal/store"
	"vetclinic-server/internal/utils"
)

// ClinicHandler exposes the clinic's open/close switch.
type ClinicHandler struct {
	Store *store.ClinicStore
	Log   zerolog.Logger
}

// NewClinicHandler creates a new ClinicHandler.
func NewClinicHandler(st *store.ClinicStore, logger zerolog.Logger) *ClinicHandler {
	return &ClinicHandler{Store: st, Log: logger}
}

// GetClinicStatus handles reading the current clinic status. Public: clients
// check this before trying to book.
func (h *ClinicHandler) GetClinicStatus(c *gin.Context) {
	status, err := h.Store.Get(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("read clinic status")
		utils.InternalServerError(c, "Failed to read clinic status")
		return
	}
	utils.Success(c, "Clinic status fetched successfully", status)
}

// UpdateClinicStatusRequest represents the request body for changing the
// clinic status.
type UpdateClinicStatusRequest struct {
	Status models.ClinicStatusValue `json:"status" binding:"required,oneof=open close closing_soon"`
}

// UpdateClinicStatus handles changing the clinic status (admin only).
func (h *ClinicHandler) UpdateClinicStatus(c *gin.Context) {
	var req UpdateClinicStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	status, err := h.Store.Set(c.Request.Context(), req.Status)
	if err != nil {
		h.Log.Error().Err(err).Msg("update clinic status")
		utils.InternalServerError(c, "Failed to update clinic status")
		return
	}
	utils.Success(c, "Clinic status updated successfully", status)
}

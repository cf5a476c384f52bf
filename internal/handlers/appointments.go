package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vetclinic-server/internal/models"
	"vetclinic-server/internal/scheduling"
	"vetclinic-server/internal/utils"
)

// AppointmentHandler exposes the scheduling engine over HTTP. All business
// rules live in the engine; the handler only marshals requests and maps
// engine failures to status codes.
type AppointmentHandler struct {
	Engine *scheduling.Engine
	Log    zerolog.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(engine *scheduling.Engine, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{Engine: engine, Log: logger}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PetID       string    `json:"petId" binding:"required,uuid"`
	StartTime   time.Time `json:"startTime" binding:"required"`
	ServiceType string    `json:"serviceType" binding:"required,oneof=vaccination routine surgery emergency"`
	Notes       string    `json:"notes"`
}

// CreateAppointment handles booking a new appointment.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Engine.Book(c.Request.Context(), scheduling.BookRequest{
		PetID:       req.PetID,
		Start:       req.StartTime,
		ServiceType: scheduling.ServiceType(req.ServiceType),
		Notes:       req.Notes,
	}, actor)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appt)
}

// GetAppointments handles listing appointments for the caller, with optional
// status/from/to filters. Admins see everything; pet owners only their own.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var filter scheduling.ListFilter
	if s := c.Query("status"); s != "" {
		status := models.AppointmentStatus(s)
		filter.Status = &status
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.BadRequest(c, "Invalid 'from' date, expected RFC 3339")
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.BadRequest(c, "Invalid 'to' date, expected RFC 3339")
			return
		}
		filter.To = &t
	}

	appts, err := h.Engine.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID handles fetching a single appointment.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	appt, err := h.Engine.GetByID(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=confirmed completed cancelled"`
}

// UpdateAppointmentStatus handles a status transition. Confirm/complete are
// staff-only; owners may cancel their own appointments.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Engine.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, actor)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", appt)
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
// Both times are required; only the times of the appointment change.
type RescheduleAppointmentRequest struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

// RescheduleAppointment handles moving an active appointment to a new time range.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Engine.Reschedule(c.Request.Context(), c.Param("id"), actor, req.StartTime, req.EndTime)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appt)
}

// DeleteAppointment handles cancel-by-removal of an appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.Engine.Cancel(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Appointment cancelled successfully", nil)
}

// GetAvailableSlots handles listing free slots for a date and service type.
// No authentication required; anyone can check availability.
func (h *AppointmentHandler) GetAvailableSlots(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		utils.BadRequest(c, "Query parameter 'date' is required (YYYY-MM-DD)")
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		utils.BadRequest(c, "Invalid 'date', expected YYYY-MM-DD")
		return
	}

	service := scheduling.ServiceType(c.DefaultQuery("service_type", string(scheduling.ServiceRoutine)))
	if !service.Known() {
		utils.BadRequest(c, "Unknown service_type, expected one of vaccination, routine, surgery, emergency")
		return
	}

	slots, err := h.Engine.AvailableSlots(c.Request.Context(), date, service)
	if err != nil {
		respondEngineError(c, h.Log, err)
		return
	}

	utils.Success(c, "Available slots fetched successfully", slots)
}

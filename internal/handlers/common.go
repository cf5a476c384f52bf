package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vetclinic-server/internal/middleware"
	"vetclinic-server/internal/scheduling"
	"vetclinic-server/internal/utils"
)

// actorFromContext resolves the authenticated caller set by AuthMiddleware.
func actorFromContext(c *gin.Context) (scheduling.Actor, bool) {
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return scheduling.Actor{}, false
	}
	role, ok := middleware.GetUserRoleFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User role missing from token")
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{ID: id, Role: role}, true
}

// respondEngineError translates a scheduling failure into the matching HTTP
// response. Anything outside the engine's taxonomy is an internal error and
// gets logged instead of leaked.
func respondEngineError(c *gin.Context, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, scheduling.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, scheduling.ErrInvalid):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, scheduling.ErrConflict):
		utils.Conflict(c, err.Error())
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("scheduling engine failure")
		utils.InternalServerError(c, "Internal server error")
	}
}

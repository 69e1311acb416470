package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Lobby/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	writeErrorStatus(c, statusOf(err), err)
}

func writeErrorStatus(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorBody{Error: domain.Kind(err), Message: err.Error()})
}

func badPayload(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "validation", Message: "bad payload: " + err.Error()})
}

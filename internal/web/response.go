package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kongming/internal/calendar"
	"kongming/internal/store"
	"kongming/internal/tabular"
)

// apiResponse is the envelope of every JSON reply. Code is 0 on success and
// the HTTP status otherwise.
type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Ok writes data with status 200. meta carries side data such as the event
// loaded for inline edit.
func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

// Error writes an error envelope with the given status and message.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// fail maps a command error to a response and stops the handler chain.
func fail(c *gin.Context, err error) {
	var verr *store.ValidationError
	var berr *tabular.BackendError
	switch {
	case errors.As(err, &verr):
		Error(c, http.StatusBadRequest, verr.Error(), map[string]any{"problems": verr.Problems})
	case errors.Is(err, store.ErrDuplicateManager):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, calendar.ErrNoDirectory):
		Error(c, http.StatusNotImplemented, err.Error(), nil)
	case errors.As(err, &berr):
		Error(c, http.StatusBadGateway, berr.Diagnostic(), map[string]any{"kind": berr.Kind.String()})
	default:
		Error(c, http.StatusInternalServerError, err.Error(), nil)
	}
	c.Abort()
}

package detection

import (
	"FaceTrigger/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrServoUnavailable    = response.NewError(http.StatusServiceUnavailable, "servo not attached")
	ErrPulseInProgress     = response.NewError(http.StatusConflict, "servo pulse already in progress")
)

package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/folio/internal/common"
	"github.com/dmitrijs2005/folio/internal/server/guard"
	"github.com/gin-gonic/gin"
)

const msgAuthenticationFailed = "Authentication failed"

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to a status code and a message that is safe to
// return. Internal details never reach the client.
func statusFor(err error) (int, string) {
	var ge *guard.Error
	if errors.As(err, &ge) {
		if errors.Is(ge, common.ErrForbidden) {
			return http.StatusForbidden, ge.Reason
		}
		return http.StatusUnauthorized, ge.Reason
	}

	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "Account already exists"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthenticated"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func abortWithError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

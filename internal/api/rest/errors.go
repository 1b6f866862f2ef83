package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/castindex/internal/api/apierror"
	"github.com/feral-file/castindex/internal/logger"
)

func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierror.NewBadRequestError(message, details...))
}

func respondValidationError(c *gin.Context, details string) {
	c.JSON(http.StatusBadRequest, apierror.NewValidationError(details))
}

// respondUnprocessable is used for statements that parse but are not read-only
func respondUnprocessable(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnprocessableEntity, apierror.NewQueryRejectedError(message, details...))
}

func respondServiceUnavailable(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusServiceUnavailable, apierror.NewServiceUnavailableError(message, details...))
}

// respondDatabaseError logs err and hides it from the client
func respondDatabaseError(c *gin.Context, err error, message string) {
	logger.ErrorCtx(c.Request.Context(), err)
	c.JSON(http.StatusInternalServerError, apierror.NewDatabaseError(message))
}

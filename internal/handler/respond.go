package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/middleware"
)

// respondError maps the error taxonomy onto the HTTP contract: validation
// and conflict failures are client errors, transient failures invite a
// retry, anything unclassified is a 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindConflict:
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	case apperrors.KindNotFound:
		middleware.RespondWithError(c, http.StatusNotFound, err.Error())
	case apperrors.KindTransient:
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Temporarily unable to process request")
	default:
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

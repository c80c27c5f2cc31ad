// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/i18n"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/services"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

// respondError maps a service error kind onto the response envelope.
// resource names the entity for not-found messages.
func respondError(c *gin.Context, resource string, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrValidation):
		if details := utils.GetValidationErrors(err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.ValidationErrorResponse(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, notFoundKey(resource, err)), err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.Is(err, services.ErrInsufficientStock):
		utils.InsufficientStockResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		utils.InvalidTransitionResponse(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyConflict))
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyFileUnavailable))
	default:
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"path":       c.FullPath(),
		}).WithError(err).Error("Unhandled service error")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternal))
	}
}

// notFoundKey prefers the line item's medicine over the requested resource.
func notFoundKey(resource string, err error) string {
	var itemErr *services.LineItemError
	if errors.As(err, &itemErr) {
		return i18n.KeyMedicineNotFound
	}
	return resource + ".not_found"
}

func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := utils.GetActorFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return models.Actor{}, false
	}
	return actor, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

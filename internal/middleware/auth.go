// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/medconnect-backend/internal/i18n"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		actor, ok := actorFromHeader(authHeader)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		setActor(c, actor)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := utils.GetActorFromContext(c)
		if !exists || actor.Role != models.UserRoleAdmin {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, ok := actorFromHeader(c.GetHeader("Authorization")); ok {
			setActor(c, actor)
		}
		c.Next()
	}
}

// actorFromHeader resolves "Bearer <token>" into the caller's identity.
func actorFromHeader(header string) (models.Actor, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return models.Actor{}, false
	}

	claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
	if err != nil {
		return models.Actor{}, false
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Actor{}, false
	}
	role := models.UserRole(claims.Role)
	if !role.IsValid() {
		return models.Actor{}, false
	}

	return models.Actor{ID: userID, Role: role, IsVerified: claims.IsVerified}, true
}

func setActor(c *gin.Context, actor models.Actor) {
	c.Set("user_id", actor.ID.String())
	c.Set("role", string(actor.Role))
	c.Set("actor", actor)
}

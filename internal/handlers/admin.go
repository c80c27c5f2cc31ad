// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/medconnect-backend/internal/i18n"
	"github.com/javajoker/medconnect-backend/internal/services"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/pharmacists?verified=false
func (h *AdminHandler) GetPharmacists(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var verified *bool
	if v := c.Query("verified"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			verified = &parsed
		}
	}

	params := utils.GetPaginationParams(c)
	users, total, err := h.adminService.ListPharmacists(c.Request.Context(), actor, verified, params)
	if err != nil {
		respondError(c, "user", err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// PUT /admin/pharmacists/:id/verify
func (h *AdminHandler) VerifyPharmacist(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.VerifyPharmacistRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.adminService.VerifyPharmacist(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, "user", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserVerified),
		"user":    user,
	})
}

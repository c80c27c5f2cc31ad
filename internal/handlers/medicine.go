// internal/handlers/medicine.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/medconnect-backend/internal/i18n"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/services"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

type MedicineHandler struct {
	catalogService *services.CatalogService
}

func NewMedicineHandler(catalogService *services.CatalogService) *MedicineHandler {
	return &MedicineHandler{
		catalogService: catalogService,
	}
}

// GET /medicines
func (h *MedicineHandler) GetMedicines(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	searchParams := services.MedicineSearchParams{
		PaginationParams: params,
	}

	if sellerIDStr := c.Query("seller_id"); sellerIDStr != "" {
		if sellerID, err := uuid.Parse(sellerIDStr); err == nil {
			searchParams.SellerID = &sellerID
		}
	}

	if v := c.Query("verification_status"); v != "" {
		status := models.VerificationStatus(v)
		if status.IsValid() {
			searchParams.VerificationStatus = &status
		}
	}

	if v := c.Query("status"); v != "" {
		status := models.ListingStatus(v)
		if status.IsValid() {
			searchParams.Status = &status
		}
	}

	if v := c.Query("prescription_required"); v != "" {
		if required, err := strconv.ParseBool(v); err == nil {
			searchParams.PrescriptionRequired = &required
		}
	}

	if v := c.Query("min_price"); v != "" {
		if price, err := decimal.NewFromString(v); err == nil {
			searchParams.PriceMin = &price
		}
	}

	if v := c.Query("max_price"); v != "" {
		if price, err := decimal.NewFromString(v); err == nil {
			searchParams.PriceMax = &price
		}
	}

	if v := c.Query("in_stock"); v != "" {
		if inStock, err := strconv.ParseBool(v); err == nil {
			searchParams.InStock = inStock
		}
	}

	medicines, total, err := h.catalogService.SearchMedicines(c.Request.Context(), &searchParams)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(medicines, total, params))
}

// GET /medicines/:id
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	medicine, err := h.catalogService.GetMedicine(c.Request.Context(), id)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.SuccessResponse(c, medicine)
}

// POST /medicines
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req services.CreateMedicineRequest
	if !bindJSON(c, &req) {
		return
	}

	medicine, err := h.catalogService.CreateMedicine(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyMedicineCreated),
		"medicine": medicine,
	})
}

// PUT /medicines/:id
func (h *MedicineHandler) UpdateMedicine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateMedicineRequest
	if !bindJSON(c, &req) {
		return
	}

	medicine, err := h.catalogService.UpdateMedicine(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyMedicineUpdated),
		"medicine": medicine,
	})
}

// DELETE /medicines/:id
func (h *MedicineHandler) DeleteMedicine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteMedicine(c.Request.Context(), actor, id); err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyMedicineDeleted)})
}

// GET /medicines/seller/mine
func (h *MedicineHandler) GetMyMedicines(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	medicines, total, err := h.catalogService.ListSellerMedicines(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(medicines, total, params))
}

// GET /medicines/verification/pending
func (h *MedicineHandler) GetPendingVerification(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	medicines, total, err := h.catalogService.ListPendingVerification(c.Request.Context(), actor, params)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(medicines, total, params))
}

// PUT /medicines/:id/verify
func (h *MedicineHandler) VerifyMedicine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.VerifyMedicineRequest
	if !bindJSON(c, &req) {
		return
	}

	medicine, err := h.catalogService.VerifyMedicine(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, "medicine", err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyMedicineVerified),
		"medicine": medicine,
	})
}

// internal/router/router_test.go
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/medconnect-backend/internal/config"
	"github.com/javajoker/medconnect-backend/internal/events"
	"github.com/javajoker/medconnect-backend/internal/i18n"
	"github.com/javajoker/medconnect-backend/internal/models"
	"github.com/javajoker/medconnect-backend/internal/repository"
	"github.com/javajoker/medconnect-backend/internal/repository/memory"
	"github.com/javajoker/medconnect-backend/internal/services"
	"github.com/javajoker/medconnect-backend/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type APITestSuite struct {
	suite.Suite
	engine *gin.Engine
	store  *repository.Store
	cancel context.CancelFunc
}

func (s *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize())
}

func (s *APITestSuite) SetupTest() {
	cfg := &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "router-test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Frontend: config.FrontendConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	storage, err := services.NewStorageService(config.AWSConfig{})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.store = memory.NewStore()
	s.engine = Initialize(ctx, cfg, Dependencies{
		Store:     s.store,
		Publisher: events.NewLogPublisher(),
		Storage:   storage,
	})
}

func (s *APITestSuite) TearDownTest() {
	s.cancel()
}

func (s *APITestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *APITestSuite) register(role string, extra map[string]interface{}) string {
	body := map[string]interface{}{
		"name":     role + " account",
		"email":    uuid.NewString() + "@example.com",
		"password": "Str0ng!Pass",
		"role":     role,
	}
	for k, v := range extra {
		body[k] = v
	}
	w, env := s.do(http.MethodPost, "/v1/auth/register", "", body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Require().NotEmpty(data.Token)
	return data.Token
}

func (s *APITestSuite) createListing(token string, quantity int, prescription bool) uuid.UUID {
	now := time.Now().UTC()
	body := map[string]interface{}{
		"name":                  "Amoxicillin 250mg",
		"manufacturer":          "Cipla",
		"description":           "Broad spectrum antibiotic",
		"category":              "Antibiotics",
		"composition":           "Amoxicillin trihydrate",
		"dosage_form":           "capsule",
		"strength":              "250mg",
		"package_size":          "10 capsules",
		"batch_number":          "AMX-" + uuid.NewString()[:6],
		"expiry_date":           now.AddDate(1, 0, 0).Format(time.RFC3339),
		"manufacturing_date":    now.AddDate(0, -1, 0).Format(time.RFC3339),
		"original_price":        "120.00",
		"selling_price":         "90.50",
		"quantity":              quantity,
		"prescription_required": prescription,
	}
	w, env := s.do(http.MethodPost, "/v1/medicines", token, body)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Medicine models.Medicine `json:"medicine"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	return data.Medicine.ID
}

func shipping(extra map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"shipping_address": "12 MG Road",
		"city":             "Bengaluru",
		"state":            "Karnataka",
		"zip_code":         "560001",
		"phone":            "9876543210",
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func (s *APITestSuite) TestHealth() {
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "healthy")
}

func (s *APITestSuite) TestRegisterAndLogin() {
	email := uuid.NewString() + "@example.com"
	w, _ := s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name": "Asha", "email": email, "password": "Str0ng!Pass", "role": "buyer",
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	w, env := s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name": "Asha", "email": email, "password": "Str0ng!Pass", "role": "buyer",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.False(env.Success)

	w, env = s.do(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email": email, "password": "wrong-Pass1!",
	})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", env.Error.Code)

	w, env = s.do(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
		"email": email, "password": "Str0ng!Pass",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	var data struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))

	w, _ = s.do(http.MethodGet, "/v1/auth/me", data.Token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), email)
}

func (s *APITestSuite) TestRegisterValidation() {
	w, env := s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name": "A", "email": "not-an-email", "password": "weak", "role": "buyer",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)
	s.Contains(string(env.Error.Details), "email")

	w, env = s.do(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"name": "Root", "email": uuid.NewString() + "@example.com", "password": "Str0ng!Pass", "role": "admin",
	})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN", env.Error.Code)
}

func (s *APITestSuite) TestMissingToken() {
	w, env := s.do(http.MethodPost, "/v1/orders", "", shipping(nil))
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", env.Error.Code)

	w, _ = s.do(http.MethodPost, "/v1/medicines", "garbage", map[string]interface{}{})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestOrderLifecycle() {
	seller := s.register("seller", nil)
	buyer := s.register("buyer", nil)
	listingID := s.createListing(seller, 20, false)

	w, env := s.do(http.MethodPost, "/v1/orders", buyer, shipping(map[string]interface{}{
		"items": []map[string]interface{}{{"medicine_id": listingID, "quantity": 25}},
	}))
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INSUFFICIENT_STOCK", env.Error.Code)

	w, env = s.do(http.MethodPost, "/v1/orders", buyer, shipping(map[string]interface{}{
		"medicine_id": listingID,
		"quantity":    5,
	}))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		Order models.Order `json:"order"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &placed))
	s.Equal(models.OrderStatusPending, placed.Order.Status)
	s.Equal("452.5", placed.Order.TotalAmount.String())

	w, env = s.do(http.MethodGet, "/v1/medicines/"+listingID.String(), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var listing models.Medicine
	s.Require().NoError(json.Unmarshal(env.Data, &listing))
	s.Equal(15, listing.Quantity)

	orderPath := "/v1/orders/" + placed.Order.ID.String()

	w, env = s.do(http.MethodPut, orderPath+"/status", buyer, map[string]interface{}{"status": "processing"})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN", env.Error.Code)

	w, env = s.do(http.MethodPut, orderPath+"/status", seller, map[string]interface{}{"status": "delivered"})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INVALID_TRANSITION", env.Error.Code)

	w, _ = s.do(http.MethodPut, orderPath+"/status", seller, map[string]interface{}{"status": "processing"})
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPut, orderPath+"/cancel", buyer, map[string]interface{}{"reason": "ordered twice"})
	s.Require().Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodPut, orderPath+"/cancel", buyer, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("INVALID_TRANSITION", env.Error.Code)

	w, env = s.do(http.MethodGet, "/v1/medicines/"+listingID.String(), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &listing))
	s.Equal(20, listing.Quantity)
	s.Equal(models.ListingStatusAvailable, listing.Status)
}

func (s *APITestSuite) TestPrescriptionGate() {
	seller := s.register("ngo", nil)
	buyer := s.register("buyer", nil)
	listingID := s.createListing(seller, 3, true)

	items := []map[string]interface{}{{"medicine_id": listingID, "quantity": 1}}
	w, env := s.do(http.MethodPost, "/v1/orders", buyer, shipping(map[string]interface{}{"items": items}))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", env.Error.Code)

	w, _ = s.do(http.MethodPost, "/v1/orders", buyer, shipping(map[string]interface{}{
		"items":              items,
		"prescription_image": "https://files.example.com/rx/1.pdf",
	}))
	s.Equal(http.StatusCreated, w.Code)
}

func (s *APITestSuite) TestListingOwnership() {
	sellerA := s.register("seller", nil)
	sellerB := s.register("seller", nil)
	buyer := s.register("buyer", nil)
	listingID := s.createListing(sellerB, 4, false)
	path := "/v1/medicines/" + listingID.String()

	w, env := s.do(http.MethodPut, path, sellerA, map[string]interface{}{"quantity": 1})
	s.Equal(http.StatusForbidden, w.Code)
	s.Equal("FORBIDDEN", env.Error.Code)

	w, _ = s.do(http.MethodDelete, path, sellerA, nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/v1/medicines", buyer, map[string]interface{}{"name": "x"})
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodDelete, path, sellerB, nil)
	s.Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, path, "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("NOT_FOUND", env.Error.Code)
}

func (s *APITestSuite) TestBadIdentifiers() {
	w, env := s.do(http.MethodGet, "/v1/medicines/not-a-uuid", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("BAD_REQUEST", env.Error.Code)

	w, _ = s.do(http.MethodGet, "/v1/medicines/"+uuid.NewString(), "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestPharmacistVerificationFlow() {
	seller := s.register("seller", nil)
	pharmacist := s.register("pharmacist", map[string]interface{}{"license_number": "KA-PH-2231"})
	listingID := s.createListing(seller, 10, false)
	verifyPath := "/v1/medicines/" + listingID.String() + "/verify"

	w, _ := s.do(http.MethodPut, verifyPath, pharmacist, map[string]interface{}{"status": "verified"})
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/v1/admin/pharmacists", pharmacist, nil)
	s.Equal(http.StatusForbidden, w.Code)

	admin := &models.User{Name: "Admin", Email: "admin@example.com", Role: models.UserRoleAdmin, IsVerified: true}
	s.Require().NoError(s.store.Users.Create(context.Background(), admin))
	adminToken, err := utils.GenerateJWT(admin.ID, string(admin.Role), true, 1)
	s.Require().NoError(err)

	w, env := s.do(http.MethodGet, "/v1/admin/pharmacists?verified=false", adminToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var pending []models.User
	s.Require().NoError(json.Unmarshal(env.Data, &pending))
	s.Require().Len(pending, 1)

	w, _ = s.do(http.MethodPut, "/v1/admin/pharmacists/"+pending[0].ID.String()+"/verify", adminToken,
		map[string]interface{}{"verified": true})
	s.Require().Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodPut, verifyPath, pharmacist, map[string]interface{}{"status": "verified", "notes": "batch checked"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var verified struct {
		Medicine models.Medicine `json:"medicine"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &verified))
	s.Equal(models.VerificationStatusVerified, verified.Medicine.VerificationStatus)
}

func (s *APITestSuite) TestUploadWithoutStorage() {
	seller := s.register("seller", nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "box.png")
	s.Require().NoError(err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/medicine", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+seller)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Contains(w.Body.String(), "SERVICE_UNAVAILABLE")
}

func (s *APITestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/v1/medicines", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	s.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

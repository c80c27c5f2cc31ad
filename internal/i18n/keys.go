// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess      = "success"
	KeyError        = "error"
	KeyInternal     = "error.internal"
	KeyAccessDenied = "error.access_denied"
	KeyConflict     = "error.conflict"
	KeyRateLimited  = "error.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"
	KeyUserVerified       = "user.verified"

	// Medicines
	KeyMedicineCreated    = "medicine.created"
	KeyMedicineUpdated    = "medicine.updated"
	KeyMedicineDeleted    = "medicine.deleted"
	KeyMedicineNotFound   = "medicine.not_found"
	KeyMedicineVerified   = "medicine.verified"
	KeyMedicineOutOfStock = "medicine.out_of_stock"

	// Orders
	KeyOrderPlaced            = "order.placed"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderStatusUpdated     = "order.status_updated"
	KeyOrderCancelled         = "order.cancelled"
	KeyOrderInvalidTransition = "order.invalid_transition"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileUploadSuccess = "file.upload_success"
	KeyFileUnavailable   = "file.unavailable"
)

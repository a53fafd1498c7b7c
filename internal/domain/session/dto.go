// internal/domain/session/dto.go
package session

// LoginRequest for console login
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// ChangePasswordRequest for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ForgotPasswordRequest for requesting a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest for completing a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// UserUpdate carries partial profile fields merged into the current user
// after an edit. Nil fields are left untouched. Role and permission data has
// no field here; those only ever come from the backend payload.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
	Photo     *string
}

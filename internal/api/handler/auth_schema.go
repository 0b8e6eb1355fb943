package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type signupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// loginRequest accepts a username or an email in the email field.
type loginRequest struct {
	Email    string `json:"email"    validate:"required" msg:"Email or username is required"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

// updateProfileRequest is the allow-list of self-editable fields. Unknown
// fields are rejected when decoding.
type updateProfileRequest struct {
	FirstName   *string `json:"firstName,omitempty"   validate:"omitempty,max=100"`
	LastName    *string `json:"lastName,omitempty"    validate:"omitempty,max=100"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required" msg:"Current password is required"`
	NewPassword     string `json:"newPassword"     validate:"required" msg:"New password is required"`
}

// --- Response types ---

// userResponse is the public subset returned by signup, login and the
// patient roster.
type userResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// accountResponse is the full profile shown to its owner and to admins.
type accountResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

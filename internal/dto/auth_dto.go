package dto

import "compliance-assistant-be/pkg/identity"

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RedirectTo string `json:"redirect_to"`
}

type ResendVerificationRequest struct {
	Email      string `json:"email" validate:"required,email"`
	RedirectTo string `json:"redirect_to"`
}

type SignUpResponse struct {
	User                 identity.User `json:"user"`
	VerificationRequired bool          `json:"verification_required"`
}

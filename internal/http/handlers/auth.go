package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"github.com/tasklane/server/internal/auth"
	"github.com/tasklane/server/internal/middleware"
	"github.com/tasklane/server/internal/repo"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// AuthHandler handles the account and authentication endpoints.
type AuthHandler struct {
	service *auth.Service

	// echoOtp gates whether raw codes are included in register/send-otp
	// responses. Debug affordance, off by default.
	echoOtp bool
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service *auth.Service, echoOtp bool) *AuthHandler {
	return &AuthHandler{service: service, echoOtp: echoOtp}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
	Token   string       `json:"token"`
	Otp     string       `json:"otp,omitempty"`
}

// HandleRegister handles POST /register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		errs["name"] = "name is required"
	} else if len(req.Name) > 255 {
		errs["name"] = "name must not exceed 255 characters"
	}
	validateEmailField(errs, req.Email)
	validatePasswordFields(errs, req.Password, req.PasswordConfirmation)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	user, token, code, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			respondValidationErrors(w, map[string]string{"email": "email already taken"})
			return
		}
		respondError(w, http.StatusInternalServerError, "Registration failed: "+err.Error())
		return
	}

	resp := authResponse{
		Message: "User registered successfully. Please verify your email with the OTP sent.",
		User:    toUserResponse(user),
		Token:   token,
	}
	if h.echoOtp {
		resp.Otp = code
	}
	respondJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateEmailField(errs, req.Email)
	if req.Password == "" {
		errs["password"] = "password is required"
	}
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, auth.ErrEmailNotVerified):
			respondError(w, http.StatusForbidden, "Email not verified. Please verify your email first.")
		default:
			respondError(w, http.StatusInternalServerError, "Login failed: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Message: "User logged in successfully",
		User:    toUserResponse(user),
		Token:   token,
	})
}

type sendOtpRequest struct {
	Email string `json:"email"`
}

type sendOtpResponse struct {
	Message string `json:"message"`
	Otp     string `json:"otp,omitempty"`
}

// HandleSendOtp handles POST /send-otp. Generates a password-reset code for
// the address regardless of its verification state.
func (h *AuthHandler) HandleSendOtp(w http.ResponseWriter, r *http.Request) {
	var req sendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateEmailField(errs, req.Email)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	code, err := h.service.SendOtp(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to send OTP: "+err.Error())
		return
	}

	resp := sendOtpResponse{Message: "OTP sent to email"}
	if h.echoOtp {
		resp.Otp = code
	}
	respondJSON(w, http.StatusOK, resp)
}

type resetPasswordRequest struct {
	Email                string `json:"email"`
	Otp                  string `json:"otp"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// HandleResetPassword handles POST /reset-password.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateEmailField(errs, req.Email)
	validateOtpField(errs, req.Otp)
	validatePasswordFields(errs, req.Password, req.PasswordConfirmation)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.Otp, req.Password)
	if err != nil {
		h.respondOtpFlowError(w, err, "Password reset failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Otp   string `json:"otp"`
}

// HandleVerifyEmail handles POST /verify-email.
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateEmailField(errs, req.Email)
	validateOtpField(errs, req.Otp)
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	user, token, err := h.service.VerifyEmail(r.Context(), req.Email, req.Otp)
	if err != nil {
		h.respondOtpFlowError(w, err, "Email verification failed")
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Message: "Email verified successfully",
		User:    toUserResponse(user),
		Token:   token,
	})
}

// HandleLogout handles POST /logout (protected). Revokes exactly the token
// that authenticated this request; other sessions stay valid.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	tokenString, ok := middleware.GetToken(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), tokenString); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or revoked token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// HandleUser handles GET /user (protected).
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User data retrieved successfully",
		"user":    toUserResponse(user),
	})
}

type deleteAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleDeleteAccount handles POST /delete-account (protected). The supplied
// credentials must belong to the authenticated user; deletion cascades to
// tokens and to-dos.
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req deleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	errs := map[string]string{}
	validateEmailField(errs, req.Email)
	if req.Password == "" {
		errs["password"] = "password is required"
	}
	if len(errs) > 0 {
		respondValidationErrors(w, errs)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), user, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, auth.ErrInvalidCredentials):
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			respondError(w, http.StatusInternalServerError, "Account deletion failed: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// respondOtpFlowError maps the shared failure modes of the OTP-consuming
// endpoints (verify-email, reset-password) to HTTP responses.
func (h *AuthHandler) respondOtpFlowError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrInvalidOtp):
		respondError(w, http.StatusBadRequest, "Invalid OTP")
	case errors.Is(err, auth.ErrExpiredOtp):
		respondError(w, http.StatusBadRequest, "OTP has expired")
	case errors.Is(err, auth.ErrNoOtpPending):
		respondError(w, http.StatusBadRequest, "No OTP pending")
	default:
		respondError(w, http.StatusInternalServerError, fallback+": "+err.Error())
	}
}

func validateEmailField(errs map[string]string, email string) {
	if email == "" {
		errs["email"] = "email is required"
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["email"] = "email must be a valid email address"
	}
}

func validatePasswordFields(errs map[string]string, password, confirmation string) {
	if password == "" {
		errs["password"] = "password is required"
		return
	}
	if len(password) < 8 {
		errs["password"] = "password must be at least 8 characters"
		return
	}
	if password != confirmation {
		errs["password"] = "password confirmation does not match"
	}
}

func validateOtpField(errs map[string]string, otp string) {
	if otp == "" {
		errs["otp"] = "otp is required"
		return
	}
	if !otpPattern.MatchString(otp) {
		errs["otp"] = "otp must be 6 digits"
	}
}

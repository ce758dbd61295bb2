// Package http provides the HTML handlers of StudyMate: authentication,
// password reset and owner-scoped event pages.
package http

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/studymate/studymate/internal/mail"
	"github.com/studymate/studymate/internal/models"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/session"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates an account and returns its id.
	Register(ctx context.Context, email, password string) (int64, error)
	// Authenticate returns the user owning email and password.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	// RequestPasswordReset issues a reset token; ok reports whether the
	// account exists.
	RequestPasswordReset(ctx context.Context, email string) (token string, ok bool, err error)
	// ValidateResetToken fails for unknown or expired tokens.
	ValidateResetToken(ctx context.Context, token string) error
	// ResetPassword sets a new password and burns the token.
	ResetPassword(ctx context.Context, token, password string) error
}

// AuthHandler handles login, registration, logout and password reset.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Mailer delivers the password reset email.
	Mailer mail.Sender
	// BaseURL prefixes reset links.
	BaseURL string
	Render  *Renderer
	Log     *zap.Logger
}

// authForm is the page data of the login, register and reset forms.
type authForm struct {
	Email string
	Token string
	// Field names the input Error belongs to; empty for page-level errors.
	Field string
	Error string
}

// FieldError returns the message attached to the named input.
func (f authForm) FieldError(name string) string {
	if f.Field == name {
		return f.Error
	}
	return ""
}

// GeneralError returns a message that belongs to no single input.
func (f authForm) GeneralError() string {
	if f.Field == "" {
		return f.Error
	}
	return ""
}

// Messages shown by the authentication pages.
const (
	msgRegistered      = "Registration successful! Log in to get started."
	msgEmailExists     = "This email address already exists."
	msgBadCredentials  = "Invalid email or password."
	msgLoggedOut       = "You have been logged out."
	msgPasswordChanged = "Password changed successfully! You can now log in."
	msgBadResetToken   = "This reset link is invalid or has expired."
)

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "login.html", "Log in", authForm{})
}

// Login handles POST /login. On failure it answers with a message that does
// not reveal whether the email or the password was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := h.AuthService.Authenticate(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.Render.Render(w, r, http.StatusUnauthorized, "login.html", "Log in",
				authForm{Email: email, Error: msgBadCredentials})
			return
		}
		h.Render.Error(w, r, err)
		return
	}

	if err := session.FromContext(r.Context()).Login(r.Context(), user.ID); err != nil {
		h.Render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterForm handles GET /register.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "register.html", "Register", authForm{})
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	_, err := h.AuthService.Register(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			h.Render.Render(w, r, http.StatusUnprocessableEntity, "register.html", "Register",
				authForm{Email: email, Field: verr.Field, Error: verr.Message})
		case errors.Is(err, service.ErrEmailTaken):
			h.Render.Render(w, r, http.StatusConflict, "register.html", "Register",
				authForm{Email: email, Field: "email", Error: msgEmailExists})
		default:
			h.Render.Error(w, r, err)
		}
		return
	}

	redirectWithFlash(w, r, h.Log, "/login", session.FlashSuccess, msgRegistered)
}

// ForgotPasswordForm handles GET /forgot-password.
func (h *AuthHandler) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.Render.Render(w, r, http.StatusOK, "forgot_password.html", "Forgot password", authForm{})
}

// ForgotPassword handles POST /forgot-password. The reset email is only sent
// for existing accounts, but the response is the same either way.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	token, ok, err := h.AuthService.RequestPasswordReset(r.Context(), email)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.Render.Render(w, r, http.StatusUnprocessableEntity, "forgot_password.html", "Forgot password",
				authForm{Email: email, Field: verr.Field, Error: verr.Message})
			return
		}
		h.Render.Error(w, r, err)
		return
	}

	link := mail.ResetLink(h.BaseURL, token)
	if ok {
		if err := h.Mailer.Send(r.Context(), mail.PasswordReset(service.NormalizeEmail(email), link)); err != nil {
			h.Log.Error("failed to send reset email", zap.Error(err))
		}
	}

	redirectWithFlash(w, r, h.Log, "/login", session.FlashSuccess,
		"Check your email for the reset link (simulation: "+link+").")
}

// ResetPasswordForm handles GET /reset-password?token=.
func (h *AuthHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.AuthService.ValidateResetToken(r.Context(), token); err != nil {
		h.resetFailed(w, r, err)
		return
	}
	h.Render.Render(w, r, http.StatusOK, "reset_password.html", "Reset password", authForm{Token: token})
}

// ResetPassword handles POST /reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PostFormValue("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	err := h.AuthService.ResetPassword(r.Context(), token, r.PostFormValue("password"))
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.Render.Render(w, r, http.StatusUnprocessableEntity, "reset_password.html", "Reset password",
				authForm{Token: token, Field: verr.Field, Error: verr.Message})
			return
		}
		h.resetFailed(w, r, err)
		return
	}

	redirectWithFlash(w, r, h.Log, "/login", session.FlashSuccess, msgPasswordChanged)
}

func (h *AuthHandler) resetFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidResetToken) {
		redirectWithFlash(w, r, h.Log, "/forgot-password", session.FlashDanger, msgBadResetToken)
		return
	}
	h.Render.Error(w, r, err)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := session.FromContext(r.Context()).Logout(r.Context()); err != nil {
		h.Log.Error("failed to destroy session", zap.Error(err))
	}
	redirectWithFlash(w, r, h.Log, "/login", session.FlashInfo, msgLoggedOut)
}

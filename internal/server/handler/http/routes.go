package http

import (
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/studymate/studymate/internal/middleware"
	"github.com/studymate/studymate/internal/session"
)

// RouterConfig holds the HTTP options of NewRouter.
type RouterConfig struct {
	// CSRFKey enables CSRF protection of every form when 32 bytes long.
	CSRFKey []byte
	// SecureCookies restricts cookies to HTTPS.
	SecureCookies bool
}

// NewRouter constructs and returns an HTTP handler that serves
// the StudyMate pages.
//
// Routes:
//
//	GET       /                       → redirect to /dashboard or /login
//	GET/POST  /login, /register       → authHandler (guests only)
//	GET/POST  /forgot-password        → authHandler (guests only)
//	GET/POST  /reset-password?token=  → authHandler (guests only)
//	GET       /dashboard              → eventHandler.Dashboard
//	GET/POST  /events/add             → eventHandler.AddForm / Add
//	GET/POST  /events/{id}/edit       → eventHandler.EditForm / Edit
//	GET       /events/{id}/delete     → eventHandler.Delete
//	GET       /calendar               → eventHandler.Calendar
//	GET       /calendar/events.json   → eventHandler.CalendarJSON
//	GET       /notifications          → eventHandler.Notifications
//	GET       /logout                 → authHandler.Logout
//	GET       /healthz                → "ok"
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP, Recoverer (chi)
//  2. WithRequestLogging(logger)
//  3. CSRF protection when cfg.CSRFKey is set
//  4. sessions.Middleware
//  5. RequireLogin or RedirectIfAuthenticated per route group
func NewRouter(
	authHandler *AuthHandler,
	eventHandler *EventHandler,
	sessions *session.Manager,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))

	if len(cfg.CSRFKey) > 0 {
		if !cfg.SecureCookies {
			r.Use(markPlaintext)
		}
		r.Use(csrf.Protect(cfg.CSRFKey,
			csrf.Secure(cfg.SecureCookies),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.FieldName("csrf_token"),
		))
	}

	r.Use(sessions.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsLoggedIn() {
			http.Redirect(w, r, middleware.HomePath, http.StatusFound)
			return
		}
		http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
	})

	// Guest pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.RedirectIfAuthenticated)

		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterForm)
		r.Post("/register", authHandler.Register)
		r.Get("/forgot-password", authHandler.ForgotPasswordForm)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Get("/reset-password", authHandler.ResetPasswordForm)
		r.Post("/reset-password", authHandler.ResetPassword)
	})

	// Protected group: requires a logged-in session
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin)

		r.Get("/dashboard", eventHandler.Dashboard)
		r.Route("/events", func(r chi.Router) {
			r.Get("/add", eventHandler.AddForm)
			r.Post("/add", eventHandler.Add)
			r.Get("/{id}/edit", eventHandler.EditForm)
			r.Post("/{id}/edit", eventHandler.Edit)
			r.Get("/{id}/delete", eventHandler.Delete)
		})
		r.Get("/calendar", eventHandler.Calendar)
		r.Get("/calendar/events.json", eventHandler.CalendarJSON)
		r.Get("/notifications", eventHandler.Notifications)
		r.Get("/logout", authHandler.Logout)
	})

	return r
}

// markPlaintext tells gorilla/csrf the request arrived over plain HTTP, so
// it skips the HTTPS-only Referer check.
func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

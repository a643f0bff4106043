package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tasklane/server/internal/auth"
	"github.com/tasklane/server/internal/http/handlers"
	"github.com/tasklane/server/internal/middleware"
)

// NewRouter creates the HTTP router with all routes configured. The
// credential and OTP endpoints sit behind a per-IP rate limiter; everything
// under the auth middleware receives the resolved user explicitly via the
// request context.
func NewRouter(authHandler *handlers.AuthHandler, todoHandler *handlers.TodoHandler, issuer *auth.TokenIssuer, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	// Public endpoints: the only ones an attacker can hammer without a
	// token, so they carry the rate limit.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/send-otp", authHandler.HandleSendOtp)
		r.Post("/reset-password", authHandler.HandleResetPassword)
		r.Post("/verify-email", authHandler.HandleVerifyEmail)
	})

	// Protected endpoints (require a valid, unrevoked bearer token).
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(issuer))
		r.Post("/logout", authHandler.HandleLogout)
		r.Post("/delete-account", authHandler.HandleDeleteAccount)
		r.Get("/user", authHandler.HandleUser)

		r.Route("/to-dos", func(r chi.Router) {
			r.Get("/", todoHandler.HandleList)
			r.Post("/", todoHandler.HandleCreate)
			r.Get("/{id}", todoHandler.HandleGet)
			r.Put("/{id}", todoHandler.HandleUpdate)
			r.Delete("/{id}", todoHandler.HandleDelete)
		})
	})

	return r
}

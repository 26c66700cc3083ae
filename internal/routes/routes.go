package routes

import (
	"github.com/calebmaitland/gatehouse/internal/auth"
	"github.com/calebmaitland/gatehouse/internal/handlers"
	"github.com/calebmaitland/gatehouse/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	passwordHandler *handlers.PasswordHandler,
	verificationHandler *handlers.VerificationHandler,
	accountHandler *handlers.AccountHandler,
	mfaHandler *handlers.MFAHandler,
	tokenManager *auth.TokenManager,
) {
	// Rate limiting config for credential-bearing endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/forgot-password", passwordHandler.ForgotPassword)
		r.Post("/auth/reset-password", passwordHandler.ResetPassword)
		r.Post("/auth/verify-email", verificationHandler.VerifyEmail)
		r.Post("/auth/resend-verification", verificationHandler.ResendVerification)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/logout-all", authHandler.LogoutAll)
		r.Get("/auth/sessions", authHandler.Sessions)
		r.Post("/auth/change-password", passwordHandler.ChangePassword)

		r.Get("/accounts/me", accountHandler.GetProfile)
		r.Put("/accounts/me", accountHandler.UpdateProfile)

		r.Post("/accounts/me/mfa/setup", mfaHandler.Setup)
		r.Post("/accounts/me/mfa/activate", mfaHandler.Activate)
		r.Post("/accounts/me/mfa/disable", mfaHandler.Disable)
	})
}

// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/contact-book/internal/config"
	"github.com/iliyamo/contact-book/internal/handler"
	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/middleware"
)

// Common installs the error handler and the middleware shared by every
// route.  Recover runs innermost so a panic becomes a 500 that is still
// logged and counted.
func Common(e *echo.Echo, log *zap.Logger, m *metrics.Metrics) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics(m))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
}

// RegisterRoutes registers the routes that need neither a token nor a rate
// limit: the welcome message, the health check and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/", handler.Welcome)
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(g)))
}

// RegisterAuth registers /api/auth.  Logout is the only route that needs an
// access token; refresh_token reads the refresh token from the bearer
// header itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, resolver middleware.PrincipalResolver, rl config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) {
	g := e.Group("/api/auth", middleware.NewTokenBucket(rl, rdb, log))
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.GET("/refresh_token", a.RefreshToken)
	g.POST("/logout", a.Logout, middleware.Authenticate(resolver))
	g.GET("/confirm_email/:token", a.ConfirmEmail)
	g.POST("/request_email", a.RequestEmail)
	g.POST("/password-reset", a.RequestPasswordReset)
	g.POST("/password-reset/confirm", a.ConfirmPasswordReset)
}

// RegisterUsers registers the profile routes.  Authentication runs before
// the limiter so the bucket key carries the user id.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, resolver middleware.PrincipalResolver, rl config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) {
	g := e.Group("/api/users", middleware.Authenticate(resolver), middleware.NewTokenBucket(rl, rdb, log))
	g.GET("/me", u.Me)
	g.PATCH("/avatar", u.UpdateAvatar)
}

// RegisterContacts registers the address book routes.  /birthdays is
// registered as a static segment and wins over /:id.
func RegisterContacts(e *echo.Echo, c *handler.ContactHandler, resolver middleware.PrincipalResolver, rl config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) {
	g := e.Group("/api/contacts", middleware.Authenticate(resolver), middleware.NewTokenBucket(rl, rdb, log))
	g.GET("", c.List)
	g.GET("/birthdays", c.Birthdays)
	g.GET("/:id", c.Get)
	g.POST("", c.Create)
	g.PATCH("/:id", c.Update)
	g.DELETE("/:id", c.Delete)
}

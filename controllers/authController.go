package controllers

import (
	"github.com/gin-gonic/gin"

	"SmartHealth/handlers"
)

type AuthController struct {
	Handler *handlers.AuthHandler
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler) *AuthController {
	return &AuthController{
		Handler: authHandler,
	}
}

// RegisterRoutes registers the public account routes. limiter guards the
// endpoints that accept credentials.
func (ac *AuthController) RegisterRoutes(router *gin.Engine, limiter gin.HandlerFunc) {
	router.POST("/register", limiter, ac.Handler.Register)
	router.POST("/login", limiter, ac.Handler.Login)
	router.POST("/logout", ac.Handler.Logout)

	password := router.Group("/password", limiter)
	{
		password.POST("/forgot", ac.Handler.ForgotPassword)
		password.POST("/reset", ac.Handler.ResetPassword)
	}
}

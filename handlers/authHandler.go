package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"SmartHealth/middlewares"
	"SmartHealth/models"
	"SmartHealth/services"
	"SmartHealth/utils"
)

type AuthHandler struct {
	auth          *services.AuthService
	tokens        *utils.TokenMaker
	secureCookies bool
}

func NewAuthHandler(auth *services.AuthService, tokens *utils.TokenMaker, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, secureCookies: secureCookies}
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

// Register creates the account and logs the new user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var form utils.RegistrationForm
	if !bind(c, &form) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), form)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	token, ok := h.issue(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, middlewares.Outcome{
		Level:    middlewares.LevelSuccess,
		Message:  "Registration successful.",
		Redirect: HomePath(user.Role),
		Data:     sessionResponse{AccessToken: token, User: user},
	})
}

// Login authenticates by username and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if !bind(c, &credentials) {
		return
	}
	user, err := h.auth.Authenticate(c.Request.Context(), credentials.Username, credentials.Password)
	if err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	token, ok := h.issue(c, user)
	if !ok {
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "", HomePath(user.Role), sessionResponse{AccessToken: token, User: user})
}

func (h *AuthHandler) issue(c *gin.Context, user *models.User) (string, bool) {
	token, err := h.tokens.GenerateAccessToken(user.ID, string(user.Role), user.UniqueID)
	if err != nil {
		middlewares.HttpError(c, "Failed to generate token", http.StatusInternalServerError, err)
		return "", false
	}
	utils.SetAuthCookie(c, token, h.tokens.TTL(), h.secureCookies)
	log.Info().Uint("user_id", user.ID).Str("role", string(user.Role)).Msg("user logged in")
	return token, true
}

// Logout clears the token cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	utils.ClearAuthCookie(c, h.secureCookies)
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "You have been logged out.", middlewares.LoginPath, nil)
}

// ForgotPassword emails a reset code. The response never reveals whether
// the address is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelInfo, "If the email is registered, a reset code has been sent.", "/password/reset", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email"`
		Code     string `json:"code" form:"code"`
		Password string `json:"password" form:"password"`
	}
	if !bind(c, &req) {
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		middlewares.RespondError(c, err, "")
		return
	}
	middlewares.RespondOutcome(c, middlewares.LevelSuccess, "Password changed successfully.", middlewares.LoginPath, nil)
}

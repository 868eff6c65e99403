package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const AccessTokenCookie = "accessToken"

func SetAuthCookie(c *gin.Context, accessToken string, expiry time.Duration, secure bool) {
	setCookie(c, AccessTokenCookie, accessToken, int(expiry.Seconds()), secure)
}

func ClearAuthCookie(c *gin.Context, secure bool) {
	setCookie(c, AccessTokenCookie, "", -1, secure)
}

func setCookie(c *gin.Context, name, value string, maxAge int, secure bool) {
	if gin.Mode() == gin.DebugMode { // Toggle for local dev
		secure = false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", secure, true)
}

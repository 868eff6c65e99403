package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"SmartHealth/access"
	"SmartHealth/models"
	"SmartHealth/services"
	"SmartHealth/utils"
)

const principalKey = "principal"

// TokenAuthMiddleware accepts the access token from the cookie or a Bearer
// header and stores the caller as an access.Principal.
func TokenAuthMiddleware(tokens *utils.TokenMaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			RespondError(c, services.ErrUnauthenticated, "")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			RespondError(c, services.ErrUnauthenticated, "")
			return
		}

		p := access.Principal{UserID: claims.UserID, Role: models.Role(claims.Role), UniqueID: claims.UniqueID}
		if !p.Authenticated() {
			RespondError(c, services.ErrUnauthenticated, "")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, _ := c.Cookie(utils.AccessTokenCookie)
	return token
}

// PrincipalFrom returns the authenticated caller, or the zero Principal
// which every service rejects as unauthenticated.
func PrincipalFrom(c *gin.Context) access.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(access.Principal)
	return principal
}

package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TransferDeadline replaces the server-wide read and write timeouts for
// routes that move media, so large uploads and downloads are not cut off.
func TransferDeadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		deadline := time.Now().Add(timeout)
		rc := http.NewResponseController(c.Writer)
		if err := rc.SetReadDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("failed to extend read deadline")
		}
		if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
			log.Warn().Err(err).Str("path", c.FullPath()).Msg("failed to extend write deadline")
		}
		c.Next()
	}
}

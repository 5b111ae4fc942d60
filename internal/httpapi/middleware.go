// Package httpapi is the streaming HTTP surface (spec.md §4.6):
// range-addressable direct streams, live transcode, HLS playlists and
// segments, subtitle extraction and trickplay sprites. Grounded on
// mantonx/viewra's gin-based playback handlers (internal/modules/
// playbackmodule/api/streaming_handlers.go, core/streaming/
// progressive_handler.go) for the range-serving shape, and on
// stwalsh4118/hermes's internal/server/server.go for the gin engine +
// gin-contrib/cors wiring.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eleven-am/goshl/internal/domain"
)

const principalKey = "principal"

const requestIDHeader = "X-Request-Id"

// requestID assigns a correlation id to every request, echoed back on
// the response so client-reported issues can be matched to server
// logs for that request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)
		c.Set("requestID", id)
		c.Next()
	}
}

// bearerAuth resolves the caller's principal from the Authorization
// header or, when embedding media elements cannot set custom headers,
// a `token` query parameter (spec.md §4.6).
func bearerAuth(verifier domain.BearerVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			auth := c.GetHeader("Authorization")
			token = strings.TrimPrefix(auth, "Bearer ")
		}
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		principal, err := verifier.VerifyBearer(c.Request.Context(), token)
		if err != nil || principal == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

func writeError(c *gin.Context, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	switch kind {
	case domain.KindNotFound:
		c.Status(http.StatusNotFound)
	case domain.KindInvalid:
		c.Status(http.StatusBadRequest)
	case domain.KindUnauthorised:
		c.Status(http.StatusUnauthorized)
	case domain.KindGenerationFailed, domain.KindTransient:
		c.Status(http.StatusInternalServerError)
	default:
		c.Status(http.StatusInternalServerError)
	}
}

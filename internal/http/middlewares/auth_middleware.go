package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/taskapi/internal/actorctx"
	"github.com/geocoder89/taskapi/internal/auth"
	"github.com/geocoder89/taskapi/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt  TokenVerifier
	prom *observability.Prom
}

func NewAuthMiddleware(jwt TokenVerifier, prom *observability.Prom) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, prom: prom}
}

// RequireAuth rejects requests without a bearer token with 401 and requests
// whose token fails verification with 403. On success the user id is stored
// on both the gin context and the request context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			m.prom.IncAuth("gate", "unauthenticated")
			abortWithError(c, http.StatusUnauthorized, "unauthenticated", "Missing bearer token")
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			m.prom.IncAuth("gate", "forbidden")
			abortWithError(c, http.StatusForbidden, "forbidden", "Invalid or expired token")
			return
		}

		m.prom.IncAuth("gate", "ok")

		// Stash useful bits of identity on the context
		c.Set(CtxUserID, claims.UserID)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// Optional helpers so handlers don’t need to know the magic keys.

func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func abortWithError(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	rid, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"code":      code,
		"message":   message,
		"requestId": rid,
	})
}

package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Access int

const (
	Public Access = iota
	Protected
)

// RoutePolicy maps "METHOD /route/template" to the access it requires.
type RoutePolicy map[string]Access

func PolicyKey(method, route string) string {
	return method + " " + route
}

// DefaultPolicy mirrors the deployed contract: reads of tasks and identity are
// protected, task writes are open unless protectWrites is set.
func DefaultPolicy(protectWrites bool) RoutePolicy {
	writes := Public
	if protectWrites {
		writes = Protected
	}

	return RoutePolicy{
		PolicyKey(http.MethodGet, "/"):          Public,
		PolicyKey(http.MethodGet, "/healthz"):   Public,
		PolicyKey(http.MethodGet, "/readyz"):    Public,
		PolicyKey(http.MethodGet, "/metrics"):   Public,
		PolicyKey(http.MethodPost, "/register"): Public,
		PolicyKey(http.MethodPost, "/login"):    Public,

		PolicyKey(http.MethodGet, "/me"):        Protected,
		PolicyKey(http.MethodGet, "/tasks"):     Protected,
		PolicyKey(http.MethodGet, "/tasks/:id"): Protected,

		PolicyKey(http.MethodPost, "/tasks"):       writes,
		PolicyKey(http.MethodPut, "/tasks/:id"):    writes,
		PolicyKey(http.MethodDelete, "/tasks/:id"): writes,
	}
}

// Access returns the policy for a matched route. Routes missing from the
// table are treated as protected.
func (p RoutePolicy) Access(method, route string) Access {
	a, ok := p[PolicyKey(method, route)]
	if !ok {
		return Protected
	}
	return a
}

// Gate applies the policy to every matched route. Unmatched requests fall
// through to the 404 handler.
func (m *AuthMiddleware) Gate(policy RoutePolicy) gin.HandlerFunc {
	require := m.RequireAuth()

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if policy.Access(c.Request.Method, route) == Public {
			c.Next()
			return
		}

		require(c)
	}
}

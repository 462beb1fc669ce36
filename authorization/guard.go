package authorization

import (
	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

// Guard wraps the JWT middleware for route registration in other modules.
type Guard struct {
	jwt *jwt.GinJWTMiddleware
}

// Guard returns the guard protecting mutating routes. In open mode (no
// account configured) the returned guard passes every request through.
func (m *Module) Guard() *Guard {
	if m == nil {
		return &Guard{}
	}
	return &Guard{jwt: m.jwtMiddleware}
}

// RequireAuthenticated ensures the request carries a valid session token,
// unless the module runs in open mode.
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	if g == nil || g.jwt == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return g.jwt.MiddlewareFunc()
}

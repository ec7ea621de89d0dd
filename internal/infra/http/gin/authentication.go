package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	chatservice "talenthub/internal/app/services/chat"
	domainuser "talenthub/internal/domain/user"
	"talenthub/internal/infra/security"
)

const principalContextKey = "talenthub.principal"

type principal struct {
	ID   string
	Name string
	Role string
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	return strings.ToLower(p.Role) == role
}

func (p principal) Actor() chatservice.Actor {
	return chatservice.Actor{
		ID:   domainuser.ID(p.ID),
		Role: domainuser.Role(p.Role),
	}
}

// AuthMiddleware resolves the bearer credential issued by the external auth
// service. Requests without a valid token simply carry no principal; the
// handlers decide whether that is fatal.
type AuthMiddleware struct {
	Verifier security.TokenVerifier
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := security.ExtractBearer(c.GetHeader("Authorization"))
	if token == "" {
		c.Next()
		return
	}
	claims, err := m.Verifier.Verify(token)
	if err != nil {
		c.Next()
		return
	}
	setPrincipal(c, principal{
		ID:   string(claims.UserID),
		Name: claims.DisplayName,
		Role: string(claims.Role),
	})
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}

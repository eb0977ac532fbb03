package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/interaktiv/kyra-assist/internal/content"
	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// identityKey is the gin context key the resolved caller identity is
// stored under.
const identityKey = "kyra.identity"

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), secret: []byte(secret)}
}

// Identify resolves the bearer token into a caller identity without
// ever aborting: an absent or invalid token yields the anonymous
// identity. Chat and capabilities are open to anonymous callers, so
// this runs on every route.
func (am *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString != "" {
			id, err := am.parseIdentity(tokenString)
			if err != nil {
				am.log.Debug("token rejected", "error", err)
			} else {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless Identify established a
// non-anonymous caller.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c).Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parseIdentity(tokenString string) (content.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return am.secret, nil
	})
	if err != nil || !token.Valid {
		return content.Identity{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return content.Identity{}, jwt.ErrTokenInvalidClaims
	}

	id := content.Identity{}
	if sub, _ := claims["sub"].(string); sub != "" {
		id.UserID = sub
	}
	id.Roles = rolesFromClaims(claims)
	return id, nil
}

// rolesFromClaims reads a flat "roles" claim or the Keycloak
// realm_access.roles shape.
func rolesFromClaims(claims jwt.MapClaims) []string {
	var roles []string
	appendRoles := func(raw any) {
		list, ok := raw.([]any)
		if !ok {
			return
		}
		for _, item := range list {
			if role, ok := item.(string); ok && role != "" {
				roles = append(roles, role)
			}
		}
	}
	appendRoles(claims["roles"])
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		appendRoles(realm["roles"])
	}
	return roles
}

// IdentityFrom returns the caller identity established by Identify,
// or the anonymous identity.
func IdentityFrom(c *gin.Context) content.Identity {
	if raw, ok := c.Get(identityKey); ok {
		if id, ok := raw.(content.Identity); ok {
			return id
		}
	}
	return content.Identity{}
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}

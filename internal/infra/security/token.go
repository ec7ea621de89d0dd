package security

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	domainuser "talenthub/internal/domain/user"
)

var (
	ErrTokenInvalid = errors.New("security: token invalid")
	ErrTokenMissing = errors.New("security: token missing")
)

// Claims is the identity the external auth service encodes into a bearer
// credential. Both the HTTP boundary and the gateway verify through here.
type Claims struct {
	UserID      domainuser.ID
	Role        domainuser.Role
	DisplayName string
}

// TokenVerifier validates HMAC-signed JWTs issued by the auth service.
type TokenVerifier struct {
	Secret []byte
}

func NewTokenVerifier(secret string) TokenVerifier {
	return TokenVerifier{Secret: []byte(secret)}
}

// Verify parses and validates token, extracting the caller identity.
func (v TokenVerifier) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenMissing
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return v.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenInvalid
	}

	userID, _ := mapClaims["user_id"].(string)
	if strings.TrimSpace(userID) == "" {
		// some issuers use the standard subject claim instead
		userID, _ = mapClaims["sub"].(string)
	}
	if strings.TrimSpace(userID) == "" {
		return Claims{}, ErrTokenInvalid
	}
	role, _ := mapClaims["role"].(string)
	name, _ := mapClaims["name"].(string)
	return Claims{
		UserID:      domainuser.ID(strings.TrimSpace(userID)),
		Role:        domainuser.NormalizeRole(domainuser.Role(role)),
		DisplayName: name,
	}, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

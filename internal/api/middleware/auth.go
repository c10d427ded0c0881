package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/dto"
	apperrors "github.com/gocomet/rideshare/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is the kind of principal a token was issued to
type Role string

const (
	RoleDriver    Role = "driver"
	RoleOwner     Role = "owner"
	RolePassenger Role = "passenger"
)

// IsValid validates the role
func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RoleOwner, RolePassenger:
		return true
	}
	return false
}

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Claims are the JWT claims understood by the API. Subject holds the user ID.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 bearer token and stores the caller in the context.
// The token may also be passed as the access_token query parameter, which is
// the only option for browser websocket clients.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abort(c, apperrors.ErrMissingToken)
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abort(c, apperrors.WithCause(apperrors.ErrInvalidToken, err))
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil || userID == uuid.Nil {
			abort(c, apperrors.WithCause(apperrors.ErrInvalidToken, errors.New("subject is not a user id")))
			return
		}
		if !claims.Role.IsValid() {
			abort(c, apperrors.WithCause(apperrors.ErrInvalidToken, fmt.Errorf("unknown role %q", claims.Role)))
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := RoleOf(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abort(c, apperrors.Forbidden(fmt.Sprintf("Role %q may not call this endpoint", role), nil))
	}
}

// UserID returns the authenticated user
func UserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// RoleOf returns the authenticated user's role
func RoleOf(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if role, ok := v.(Role); ok {
			return role
		}
	}
	return ""
}

// SignToken issues a token for userID. Tokens are normally minted by the
// identity service; this is used by tooling and tests.
func SignToken(secret []byte, userID uuid.UUID, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("access_token")
}

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.Status, dto.ErrorResponse{Code: err.Code, Message: err.Message})
}

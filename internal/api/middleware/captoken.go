package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evrimtas/outcomemarket/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CtxCapability is the gin context key under which CapTokenMiddleware stores
// the verified domain.ManagerCapability.
const CtxCapability = "capability"

// ──────────────────────────────────────────────────────────────────────────────
// Capability token codec
// ──────────────────────────────────────────────────────────────────────────────

// capClaims is the JWT claim set of a manager capability token.  The token
// is only a transport encoding: authorization is decided by the engine
// comparing the carried capability against the one the market currently
// holds, so a stale token fails even before it expires.
type capClaims struct {
	MarketID string `json:"mkt"`
	jwt.RegisteredClaims
}

// CapTokenCodec signs and verifies manager capability bearer tokens.
type CapTokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewCapTokenCodec creates a codec with the given HMAC secret and token TTL.
func NewCapTokenCodec(secret []byte, ttl time.Duration) *CapTokenCodec {
	return &CapTokenCodec{secret: secret, ttl: ttl}
}

// Issue encodes a capability as a signed bearer token.
func (cc *CapTokenCodec) Issue(cap domain.ManagerCapability) (string, error) {
	now := time.Now()
	claims := capClaims{
		MarketID: cap.MarketID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cap.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cc.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cc.secret)
	if err != nil {
		return "", fmt.Errorf("captoken.Issue: %w", err)
	}
	return signed, nil
}

// Parse verifies a bearer token and decodes the capability it carries.
func (cc *CapTokenCodec) Parse(tokenString string) (domain.ManagerCapability, error) {
	var claims capClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return cc.secret, nil
	})
	if err != nil {
		return domain.ManagerCapability{}, fmt.Errorf("captoken.Parse: %w", err)
	}
	capID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.ManagerCapability{}, fmt.Errorf("captoken.Parse: subject: %w", err)
	}
	marketID, err := uuid.Parse(claims.MarketID)
	if err != nil {
		return domain.ManagerCapability{}, fmt.Errorf("captoken.Parse: market id: %w", err)
	}
	return domain.ManagerCapability{ID: capID, MarketID: marketID}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CapTokenMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// CapTokenMiddleware validates the Bearer token in the Authorization header
// and stores the decoded capability in the gin context.  It does not decide
// authorization: the engine rejects capabilities that no longer match.
func CapTokenMiddleware(codec *CapTokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing capability token",
				"code":    "ERR_UNAUTHORIZED",
			})
			return
		}
		cap, err := codec.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid capability token",
				"code":    "ERR_UNAUTHORIZED",
			})
			return
		}
		c.Set(CtxCapability, cap)
		c.Next()
	}
}

// GetCapability retrieves the verified capability from the gin context.
// Returns the zero capability if the middleware was not applied.
func GetCapability(c *gin.Context) domain.ManagerCapability {
	v, exists := c.Get(CtxCapability)
	if !exists {
		return domain.ManagerCapability{}
	}
	cap, _ := v.(domain.ManagerCapability)
	return cap
}

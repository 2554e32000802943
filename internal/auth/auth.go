package auth

import (
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/golang-jwt/jwt/v5"

    "marketwatch/internal/clock"
)

const (
    RoleUser  = "user"
    RoleAdmin = "admin"

    claimsKey = "auth.claims"
)

// ErrNoSecret is returned for every token when no signing secret is configured.
var ErrNoSecret = errors.New("auth: no jwt secret configured")

// Claims is the bearer token payload.
type Claims struct {
    UserID int64  `json:"id"`
    Email  string `json:"email"`
    Role   string `json:"role"`
    jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens.
type Verifier struct {
    secret []byte
    clock  clock.Clock
}

func NewVerifier(secret string, c clock.Clock) *Verifier {
    return &Verifier{secret: []byte(secret), clock: clock.OrSystem(c)}
}

// Sign issues a token for claims valid for ttl.
func (v *Verifier) Sign(claims Claims, ttl time.Duration) (string, error) {
    if len(v.secret) == 0 { return "", ErrNoSecret }
    now := v.clock.Now()
    claims.IssuedAt = jwt.NewNumericDate(now)
    if ttl > 0 { claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl)) }
    return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates token and returns its claims.
func (v *Verifier) Parse(token string) (*Claims, error) {
    if len(v.secret) == 0 { return nil, ErrNoSecret }
    claims := &Claims{}
    _, err := jwt.ParseWithClaims(token, claims,
        func(*jwt.Token) (any, error) { return v.secret, nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithTimeFunc(v.clock.Now),
    )
    if err != nil { return nil, fmt.Errorf("auth: %w", err) }
    return claims, nil
}

func bearer(c *gin.Context) string {
    h := c.GetHeader("Authorization")
    scheme, token, ok := strings.Cut(h, " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") { return "" }
    return strings.TrimSpace(token)
}

// Required rejects requests without a valid token: 401 when missing,
// 403 when invalid or expired.
func (v *Verifier) Required() gin.HandlerFunc {
    return func(c *gin.Context) {
        token := bearer(c)
        if token == "" {
            c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token not provided"})
            return
        }
        claims, err := v.Parse(token)
        if err != nil {
            c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid or expired token"})
            return
        }
        c.Set(claimsKey, claims)
        c.Next()
    }
}

// Optional attaches claims when a valid token is present and otherwise lets
// the request through anonymously.
func (v *Verifier) Optional() gin.HandlerFunc {
    return func(c *gin.Context) {
        if token := bearer(c); token != "" {
            if claims, err := v.Parse(token); err == nil { c.Set(claimsKey, claims) }
        }
        c.Next()
    }
}

// RequireRole must run after Required.
func RequireRole(role string) gin.HandlerFunc {
    return func(c *gin.Context) {
        claims, ok := FromContext(c)
        if !ok || claims.Role != role {
            c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": role + " access required"})
            return
        }
        c.Next()
    }
}

// FromContext returns the claims attached by Required or Optional.
func FromContext(c *gin.Context) (*Claims, bool) {
    v, ok := c.Get(claimsKey)
    if !ok { return nil, false }
    claims, ok := v.(*Claims)
    return claims, ok
}

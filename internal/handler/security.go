package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/qpos/internal/domain/auth"
)

// minSecretLen is the shortest accepted HS256 signing secret.
const minSecretLen = 16

// Claims is the JWT payload identifying a staff member.
type Claims struct {
	Name string    `json:"name"`
	Role auth.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator signing with secret.
func NewAuthenticator(secret []byte) (*Authenticator, error) {
	if len(secret) < minSecretLen {
		return nil, errors.Errorf("jwt secret must be at least %d bytes", minSecretLen)
	}
	return &Authenticator{secret: secret, now: time.Now}, nil
}

// Issue returns a token for p valid for ttl.
func (a *Authenticator) Issue(p auth.Principal, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Name: p.DisplayName,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

// Verify parses token and returns the principal it names. The role claim is
// required and must be a known role.
func (a *Authenticator) Verify(token string) (auth.Principal, error) {
	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	); err != nil {
		return auth.Principal{}, errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return auth.Principal{}, errors.New("token has no subject")
	}
	role, err := auth.ParseRole(string(claims.Role))
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{ID: claims.Subject, DisplayName: claims.Name, Role: role}, nil
}

// Require authenticates the bearer token and admits principals holding one
// of roles. Admins are always admitted.
func (a *Authenticator) Require(roles ...auth.Role) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="qpos"`)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			p, err := a.Verify(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="qpos", error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			if !p.Allowed(roles...) {
				writeError(w, http.StatusForbidden, "role "+string(p.Role)+" may not access this resource")
				return
			}
			next(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

package auth

import (
	"collab-engine/domain"
	"collab-engine/errors"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"
)

const defaultIssuer = "collab-engine"

// Key derivation parameters for turning a configured passphrase into the
// HMAC signing key.
const (
	keyMemory      = 64 * 1024
	keyIterations  = 3
	keyParallelism = 2
	keyLength      = 32
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// DeriveSigningKey stretches a passphrase into a 32-byte key with argon2id.
func DeriveSigningKey(passphrase, salt string) []byte {
	return argon2.IDKey([]byte(passphrase), []byte(salt), keyIterations, keyMemory, keyParallelism, keyLength)
}

// JWTVerifier checks HS256 tokens signed with key and resolves the caller.
type JWTVerifier struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewJWTVerifier(key []byte, issuer string) *JWTVerifier {
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &JWTVerifier{key: key, issuer: issuer, now: time.Now}
}

// GenerateToken signs a token for userID. Used by the CLI and tests; token
// issuance for real users lives outside the engine.
func (v *JWTVerifier) GenerateToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &CustomClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
}

// Verify parses and validates the signature, issuer and expiration of a token.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(*jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %s", errors.ErrUnauthenticated, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Identity{}, fmt.Errorf("%w: invalid claims", errors.ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %s", errors.ErrUnauthenticated, err)
	}
	return domain.Identity{UserID: claims.UserID, Role: role}, nil
}

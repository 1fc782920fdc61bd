package service

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTService emite y valida tokens de sesion firmados.
type JWTService struct {
	secret     []byte
	sessionTTL time.Duration
	issuer     string
	revoked    RevocationStore
}

type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

const defaultSessionTTL = 24 * time.Hour

func NewJWTService(secret string, sessionTTL time.Duration) *JWTService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &JWTService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		issuer:     "taskboard",
		revoked:    NewMemoryRevocationStore(),
	}
}

func NewJWTServiceWithStore(secret string, sessionTTL time.Duration, revoked RevocationStore) *JWTService {
	svc := NewJWTService(secret, sessionTTL)
	if revoked != nil {
		svc.revoked = revoked
	}
	return svc
}

// IssueSessionToken firma un token con uid y expiracion de sesion.
func (s *JWTService) IssueSessionToken(userID int64) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseSessionToken valida firma, expiracion, issuer y revocacion.
func (s *JWTService) ParseSessionToken(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(claims.ID)
		if err != nil || revoked {
			return Claims{}, ErrTokenInvalid
		}
	}
	return claims, nil
}

// RevokeSessionToken agrega el jti del token al set de revocados hasta su
// expiracion natural. Tokens invalidos o ya revocados no producen error.
func (s *JWTService) RevokeSessionToken(tokenString string) error {
	if len(s.secret) == 0 || s.revoked == nil {
		return nil
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		// Nada que revocar: un token invalido o vencido ya no autentica.
		return nil
	}
	if !s.isValidClaims(claims) || claims.ID == "" {
		return nil
	}
	ttl := s.sessionTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(claims.ID, ttl)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if claims.UserID <= 0 {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != fmt.Sprintf("%d", claims.UserID) {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}

// GenerateResetCode produce un codigo de 6 digitos uniforme en 100000-999999.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// CompareSecret compara en tiempo constante. Con largos distintos quema una
// comparacion dummy del mismo largo antes de devolver false, para que el
// costo no delate el largo ni el prefijo coincidente.
func CompareSecret(provided, stored string) bool {
	if len(provided) != len(stored) {
		subtle.ConstantTimeCompare([]byte(stored), []byte(stored))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/netraseva/intake-api/internal/model"
)

// JWTService issues and validates the signed session tokens handed out on
// login. A token carries the account id and the single role it was approved
// for; there is no refresh flow, camp sessions are short-lived.
type JWTService interface {
	GenerateToken(account *model.Account, role model.Role) (string, time.Time, error)
	ValidateToken(token string) (*model.TokenClaims, error)
}

type Config struct {
	Secret      string
	ExpiryHours int
}

type jwtService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(cfg Config) JWTService {
	expiry := time.Duration(cfg.ExpiryHours) * time.Hour
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &jwtService{
		secret: []byte(cfg.Secret),
		expiry: expiry,
	}
}

func (s *jwtService) GenerateToken(account *model.Account, role model.Role) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.expiry)

	claims := jwt.MapClaims{
		"sub":   account.ID.String(),
		"email": account.Email,
		"role":  string(role),
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *jwtService) ValidateToken(tokenString string) (*model.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	accountID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid account ID in token")
	}

	email, _ := claims["email"].(string)
	role, ok := claims["role"].(string)
	if !ok || !model.Role(role).Valid() {
		return nil, fmt.Errorf("invalid role in token")
	}

	return &model.TokenClaims{
		AccountID: accountID,
		Email:     email,
		Role:      model.Role(role),
	}, nil
}

package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind tells which identity table a token was issued against.
// Accounts and customers live in separate id spaces.
type Kind string

const (
	KindAccount  Kind = "account"
	KindCustomer Kind = "customer"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// UserClaims represents the JWT claims for an authenticated caller
type UserClaims struct {
	Email   string `json:"email"`
	UserID  uint   `json:"user_id"`
	Kind    Kind   `json:"kind"`
	LogoURL string `json:"logo_url,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	config *JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(config *JWTConfig) *JWTUtil {
	return &JWTUtil{
		config: config,
	}
}

// GenerateAccountToken creates a token for a shop owner account.
// logoURL is optional and embedded for the storefront header.
func (j *JWTUtil) GenerateAccountToken(email string, accountID uint, logoURL string) (string, error) {
	return j.generate(UserClaims{
		Email:   email,
		UserID:  accountID,
		Kind:    KindAccount,
		LogoURL: logoURL,
	})
}

// GenerateCustomerToken creates a token for a buyer
func (j *JWTUtil) GenerateCustomerToken(email string, customerID uint) (string, error) {
	return j.generate(UserClaims{
		Email:  email,
		UserID: customerID,
		Kind:   KindCustomer,
	})
}

func (j *JWTUtil) generate(claims UserClaims) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%s:%d", claims.Kind, claims.UserID),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(j.config.ExpirationHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type JWTManager struct {
	Secret         []byte
	Issuer         string
	AccessTokenTTL time.Duration
}

// AccessSubject is what an access token asserts about its bearer.
type AccessSubject struct {
	UserID      string
	PhoneNumber string
	UserType    string
	IsStaff     bool
	IsSuperuser bool
	SessionID   string
}

type AccessClaims struct {
	UserID      string `json:"sub"`
	PhoneNumber string `json:"phone"`
	UserType    string `json:"user_type"`
	IsStaff     bool   `json:"staff,omitempty"`
	IsSuperuser bool   `json:"superuser,omitempty"`
	SessionID   string `json:"sid"`
	jwt.RegisteredClaims
}

func (m JWTManager) IssueAccessToken(subject AccessSubject) (string, time.Duration, error) {
	ttl := m.AccessTokenTTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	now := time.Now()
	claims := AccessClaims{
		UserID:      subject.UserID,
		PhoneNumber: subject.PhoneNumber,
		UserType:    subject.UserType,
		IsStaff:     subject.IsStaff,
		IsSuperuser: subject.IsSuperuser,
		SessionID:   subject.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.Issuer,
			Subject:   subject.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.Secret)
	if err != nil {
		return "", 0, err
	}
	return signed, ttl, nil
}

func (m JWTManager) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if m.Issuer != "" && claims.Issuer != m.Issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

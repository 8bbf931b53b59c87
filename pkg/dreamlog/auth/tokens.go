package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 2 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// ErrInvalidToken is returned for malformed, expired, or wrong-kind tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenPair is one issued access/refresh pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenIssuer mints and verifies JWT pairs.
type TokenIssuer struct {
	auth       *jwtauth.JWTAuth
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates an issuer signing with HS256.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		auth:       jwtauth.New("HS256", []byte(secret), nil),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
}

// JWTAuth exposes the underlying verifier for router middleware.
func (i *TokenIssuer) JWTAuth() *jwtauth.JWTAuth {
	return i.auth
}

// Issue mints a fresh token pair for a user.
func (i *TokenIssuer) Issue(userID uuid.UUID, username string) (*TokenPair, error) {
	now := time.Now().UTC()
	accessExpiry := now.Add(i.accessTTL)
	refreshExpiry := now.Add(i.refreshTTL)

	_, access, err := i.auth.Encode(map[string]interface{}{
		"sub":      userID.String(),
		"username": username,
		"kind":     tokenKindAccess,
		"iat":      now.Unix(),
		"exp":      accessExpiry.Unix(),
	})
	if err != nil {
		return nil, err
	}

	_, refresh, err := i.auth.Encode(map[string]interface{}{
		"sub":  userID.String(),
		"kind": tokenKindRefresh,
		"iat":  now.Unix(),
		"exp":  refreshExpiry.Unix(),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

// VerifyRefresh validates a refresh token and returns the subject user id.
func (i *TokenIssuer) VerifyRefresh(tokenString string) (uuid.UUID, error) {
	token, err := jwtauth.VerifyToken(i.auth, tokenString)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	if kind, _ := claims["kind"].(string); kind != tokenKindRefresh {
		return uuid.Nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// SubjectFromClaims extracts the user id from verified middleware claims.
func SubjectFromClaims(claims map[string]interface{}) (uuid.UUID, error) {
	if kind, _ := claims["kind"].(string); kind != tokenKindAccess {
		return uuid.Nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

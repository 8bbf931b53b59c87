package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// Authenticator ties registration and login to the journal service.
type Authenticator struct {
	service dreamlog.Service
	tokens  *TokenIssuer
	codes   *CodeService
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(service dreamlog.Service, tokens *TokenIssuer, codes *CodeService) *Authenticator {
	return &Authenticator{service: service, tokens: tokens, codes: codes}
}

// Codes exposes the verification code service for send-code endpoints.
func (a *Authenticator) Codes() *CodeService {
	return a.codes
}

// Tokens exposes the token issuer for router middleware.
func (a *Authenticator) Tokens() *TokenIssuer {
	return a.tokens
}

// Register verifies the SMS code, creates the account with a hashed
// password, and issues a token pair.
func (a *Authenticator) Register(ctx context.Context, req dreamlog.RegisterUserRequest, password, code string) (*dreamlog.User, *TokenPair, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if err := a.codes.VerifySMSCode(ctx, req.PhoneNumber, code); err != nil {
		return nil, nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	req.PasswordHash = hash

	user, err := a.service.RegisterUser(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	pair, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// LoginWithPassword authenticates a username/password pair.
func (a *Authenticator) LoginWithPassword(ctx context.Context, username, password string) (*dreamlog.User, *TokenPair, error) {
	user, err := a.service.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, dreamlog.ErrUserNotFound) {
			return nil, nil, dreamlog.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !CheckPassword(password, user.PasswordHash) {
		return nil, nil, dreamlog.ErrInvalidCredentials
	}

	pair, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// LoginWithSMSCode authenticates a phone number with a verification code.
func (a *Authenticator) LoginWithSMSCode(ctx context.Context, phone, code string) (*dreamlog.User, *TokenPair, error) {
	if err := a.codes.VerifySMSCode(ctx, phone, code); err != nil {
		return nil, nil, err
	}

	user, err := a.service.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, dreamlog.ErrUserNotFound) {
			return nil, nil, dreamlog.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	pair, err := a.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := a.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := a.service.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.tokens.Issue(user.ID, user.Username)
}

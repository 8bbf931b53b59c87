package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/zhanpoint/dream-log/pkg/dreamlog/cache"
)

const (
	codeLength = 6
	codeTTL    = 5 * time.Minute

	smsCodeKeyPrefix   = "sms_code:"
	emailCodeKeyPrefix = "email_code:"
)

// ErrCodeMismatch is returned when a submitted code is wrong or expired.
var ErrCodeMismatch = errors.New("auth: verification code mismatch")

// ErrCodeThrottled is returned when a code was requested again too soon.
var ErrCodeThrottled = errors.New("auth: verification code recently sent")

// SMSSender delivers a verification code to a phone number.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code string) error
}

// EmailSender delivers a verification code to an email address.
type EmailSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogSender writes codes to the log instead of delivering them. Development
// and test environments use it in place of a real gateway.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendCode(ctx context.Context, destination, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("verification code issued", "destination", destination, "code", code)
	return nil
}

// CodeService issues and checks short-lived verification codes backed by the
// cache. A code may only be requested again after a cooldown, is checked at
// most against one submission, and is deleted on successful verification.
type CodeService struct {
	cache    cache.Cache
	sms      SMSSender
	email    EmailSender
	cooldown time.Duration
}

// NewCodeService creates a code service.
func NewCodeService(c cache.Cache, sms SMSSender, email EmailSender) *CodeService {
	return &CodeService{
		cache:    c,
		sms:      sms,
		email:    email,
		cooldown: time.Minute,
	}
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}

func (s *CodeService) issue(ctx context.Context, key string) (string, error) {
	// Reject a new code while the previous one is still fresh.
	if ttl, err := s.cache.TTL(ctx, key); err == nil && ttl > codeTTL-s.cooldown {
		return "", ErrCodeThrottled
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, code, codeTTL); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// SendSMSCode issues a code for a phone number and delivers it.
func (s *CodeService) SendSMSCode(ctx context.Context, phone string) error {
	code, err := s.issue(ctx, smsCodeKeyPrefix+phone)
	if err != nil {
		return err
	}
	return s.sms.SendCode(ctx, phone, code)
}

// SendEmailCode issues a code for an email address and delivers it.
func (s *CodeService) SendEmailCode(ctx context.Context, email string) error {
	code, err := s.issue(ctx, emailCodeKeyPrefix+email)
	if err != nil {
		return err
	}
	return s.email.SendCode(ctx, email, code)
}

func (s *CodeService) verify(ctx context.Context, key, code string) error {
	stored, err := s.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}
	if stored != code {
		return ErrCodeMismatch
	}
	// One-shot: a verified code cannot be replayed.
	_ = s.cache.Delete(ctx, key)
	return nil
}

// VerifySMSCode checks a code sent to a phone number.
func (s *CodeService) VerifySMSCode(ctx context.Context, phone, code string) error {
	return s.verify(ctx, smsCodeKeyPrefix+phone, code)
}

// VerifyEmailCode checks a code sent to an email address.
func (s *CodeService) VerifyEmailCode(ctx context.Context, email, code string) error {
	return s.verify(ctx, emailCodeKeyPrefix+email, code)
}

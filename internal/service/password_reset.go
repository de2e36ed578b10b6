package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
)

// PasswordResetTokenManager issues single-use password reset tokens. A consumed
// record is kept for the retention period and never verifies again.
type PasswordResetTokenManager struct {
	store     *StoreClient
	ttl       time.Duration
	retention time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

func NewPasswordResetTokenManager(store *StoreClient, ttl, retention time.Duration, logger *logger.Logger) *PasswordResetTokenManager {
	return &PasswordResetTokenManager{
		store:     store,
		ttl:       ttl,
		retention: retention,
		logger:    logger.Component("password_reset"),
		now:       time.Now,
	}
}

// Generate stores a new unused reset token for email.
func (m *PasswordResetTokenManager) Generate(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", model.ErrValidation)
	}

	resetToken, err := newSecureToken(secureTokenBytes)
	if err != nil {
		return "", err
	}

	record := model.PasswordResetToken{
		Email:     email,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.SetJSON(ctx, passwordResetKey(resetToken), record, m.ttl); err != nil {
		m.logger.Error("Password reset: failed to store token", "error", err.Error())
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	metrics.PasswordResets.WithLabelValues(metrics.EventGenerated).Inc()
	m.logger.Info("Password reset: token generated")

	return resetToken, nil
}

// Verify returns the unused record behind resetToken, or ErrResetTokenInvalid.
func (m *PasswordResetTokenManager) Verify(ctx context.Context, resetToken string) (model.PasswordResetToken, error) {
	record, _, err := m.load(ctx, resetToken)
	if err != nil {
		return model.PasswordResetToken{}, err
	}
	if record.Used {
		return model.PasswordResetToken{}, model.ErrResetTokenInvalid
	}
	return record, nil
}

// Consume marks the token used with a compare-and-swap against the exact unused record.
// Exactly one of any number of concurrent callers gets true.
//
// If the swap was applied but its reply lost and the retried swap then fails, the caller
// sees false and the token is spent.
func (m *PasswordResetTokenManager) Consume(ctx context.Context, resetToken string) (bool, error) {
	record, raw, err := m.load(ctx, resetToken)
	if errors.Is(err, model.ErrResetTokenInvalid) {
		metrics.PasswordResets.WithLabelValues(metrics.EventRejected).Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if record.Used {
		metrics.PasswordResets.WithLabelValues(metrics.EventRejected).Inc()
		return false, nil
	}

	record.Used = true
	next, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal reset token: %w", err)
	}

	swapped, err := m.store.CompareAndSwap(ctx, passwordResetKey(resetToken), raw, next, m.retention)
	if err != nil {
		m.logger.Error("Password reset: failed to consume token", "error", err.Error())
		return false, fmt.Errorf("failed to consume reset token: %w", err)
	}

	if !swapped {
		metrics.PasswordResets.WithLabelValues(metrics.EventRejected).Inc()
		return false, nil
	}

	metrics.PasswordResets.WithLabelValues(metrics.EventConsumed).Inc()
	m.logger.Info("Password reset: token consumed")
	return true, nil
}

func (m *PasswordResetTokenManager) load(ctx context.Context, resetToken string) (model.PasswordResetToken, []byte, error) {
	if resetToken == "" {
		return model.PasswordResetToken{}, nil, model.ErrResetTokenInvalid
	}

	var record model.PasswordResetToken
	raw, err := m.store.GetJSON(ctx, passwordResetKey(resetToken), &record)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		return model.PasswordResetToken{}, nil, model.ErrResetTokenInvalid
	case errors.Is(err, model.ErrStorage):
		return model.PasswordResetToken{}, nil, fmt.Errorf("failed to get reset token: %w", err)
	default:
		return model.PasswordResetToken{}, nil, model.ErrResetTokenInvalid
	}

	record.Token = resetToken
	return record, raw, nil
}

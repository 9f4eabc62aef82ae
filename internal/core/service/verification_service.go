package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
	"github.com/roombook/booking-system/internal/pkg/metrics"
)

const codeDigits = 6

var codeSpace = big.NewInt(1_000_000)

// VerificationService issues six-digit codes into the shared cache and redeems
// them exactly once.
type VerificationService struct {
	cache    ports.CacheStore
	notifier ports.Notifier
	log      zerolog.Logger
	generate func() (string, error)
}

func NewVerificationService(cache ports.CacheStore, notifier ports.Notifier, log zerolog.Logger) *VerificationService {
	return &VerificationService{
		cache:    cache,
		notifier: notifier,
		log:      log,
		generate: generateCode,
	}
}

// Issue stores a new code for (purpose, address), replacing any unconsumed one,
// and hands it to the notifier. The code itself is never returned.
func (s *VerificationService) Issue(ctx context.Context, purpose domain.CodePurpose, address string) error {
	if !purpose.Valid() {
		return fmt.Errorf("issue code: unknown purpose %q", purpose)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return errors.New("issue code: address is required")
	}

	code, err := s.generate()
	if err != nil {
		return fmt.Errorf("issue code: generate: %w", err)
	}

	if err := s.cache.Set(ctx, purpose.Key(address), code, purpose.TTL()); err != nil {
		return fmt.Errorf("issue code: store: %w", err)
	}

	msg := ports.Message{
		To:      address,
		Subject: purpose.Subject(),
		HTML:    fmt.Sprintf("<p>Your %s verification code is <b>%s</b>. It expires in %d minutes.</p>", purpose.Label(), code, int(purpose.TTL().Minutes())),
		Text:    fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.", purpose.Label(), code, int(purpose.TTL().Minutes())),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("issue code: notify: %w", err)
	}

	metrics.CodesIssuedTotal.WithLabelValues(string(purpose)).Inc()
	s.log.Info().Str("purpose", string(purpose)).Str("address", address).Msg("verification code issued")
	return nil
}

// ValidateAndConsume redeems code for (purpose, address). Missing, expired and
// mismatched codes are indistinguishable. A mismatch leaves the stored code in place.
func (s *VerificationService) ValidateAndConsume(ctx context.Context, purpose domain.CodePurpose, address, code string) error {
	if !purpose.Valid() || strings.TrimSpace(address) == "" || code == "" {
		metrics.CodesValidatedTotal.WithLabelValues(string(purpose), "invalid").Inc()
		return domain.ErrVerificationCodeInvalid
	}

	ok, err := s.cache.CompareAndDelete(ctx, purpose.Key(strings.TrimSpace(address)), code)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			metrics.CodesValidatedTotal.WithLabelValues(string(purpose), "invalid").Inc()
			return domain.ErrVerificationCodeInvalid
		}
		return fmt.Errorf("consume code: %w", err)
	}
	if !ok {
		metrics.CodesValidatedTotal.WithLabelValues(string(purpose), "invalid").Inc()
		return domain.ErrVerificationCodeInvalid
	}

	metrics.CodesValidatedTotal.WithLabelValues(string(purpose), "consumed").Inc()
	return nil
}

// generateCode returns a uniformly random zero-padded six-digit string.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

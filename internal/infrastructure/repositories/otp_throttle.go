package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/mediahub/domain"
)

// RedisOTPThrottle implements domain.OTPThrottle with two keys per account
// and purpose: otp:res:* blocks resends for the resend window and
// otp:att:* counts verification attempts against the latest challenge.
type RedisOTPThrottle struct {
	client       *redis.Client
	maxAttempts  int
	resendWindow time.Duration
	attemptTTL   time.Duration
}

// NewOTPThrottle creates a redis-backed throttle. maxAttempts <= 0 or
// resendWindow <= 0 disable the matching check.
func NewOTPThrottle(client *redis.Client, maxAttempts int, resendWindow, attemptTTL time.Duration) domain.OTPThrottle {
	return &RedisOTPThrottle{
		client:       client,
		maxAttempts:  maxAttempts,
		resendWindow: resendWindow,
		attemptTTL:   attemptTTL,
	}
}

func resendKey(accountID uint, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:res:%s:%d", purpose, accountID)
}

func attemptsKey(accountID uint, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("otp:att:%s:%d", purpose, accountID)
}

// BeginChallenge implements domain.OTPThrottle
func (t *RedisOTPThrottle) BeginChallenge(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	if t.resendWindow > 0 {
		ok, err := t.client.SetNX(ctx, resendKey(accountID, purpose), 1, t.resendWindow).Result()
		if err != nil {
			return fmt.Errorf("failed to set resend throttle: %w", err)
		}
		if !ok {
			return domain.ErrOTPResendLimit
		}
	}

	if t.maxAttempts > 0 {
		if err := t.client.Set(ctx, attemptsKey(accountID, purpose), 0, t.attemptTTL).Err(); err != nil {
			return fmt.Errorf("failed to initialize attempts counter: %w", err)
		}
	}
	return nil
}

// RecordAttempt implements domain.OTPThrottle
func (t *RedisOTPThrottle) RecordAttempt(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	if t.maxAttempts <= 0 {
		return nil
	}

	key := attemptsKey(accountID, purpose)
	attempts, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts == 1 {
		t.client.Expire(ctx, key, t.attemptTTL)
	}

	if attempts > int64(t.maxAttempts) {
		return domain.ErrOTPMaxAttempts
	}
	return nil
}

// Clear implements domain.OTPThrottle. The resend window is left running.
func (t *RedisOTPThrottle) Clear(ctx context.Context, accountID uint, purpose domain.OTPPurpose) error {
	return t.client.Del(ctx, attemptsKey(accountID, purpose)).Err()
}

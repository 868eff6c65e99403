package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"SmartHealth/cache"
)

const ResetCodeExpiry = 15 * time.Minute

// GenerateResetCode generates a random 6-digit reset code.
func GenerateResetCode(rng *rand.Rand) string {
	return fmt.Sprintf("%06d", rng.Intn(1000000))
}

// ResetCodes keeps password reset codes in Redis.
type ResetCodes struct {
	cache *cache.Cache
}

func NewResetCodes(cache *cache.Cache) *ResetCodes {
	return &ResetCodes{cache: cache}
}

func (r *ResetCodes) SetResetCode(ctx context.Context, email, code string) error {
	return r.cache.Set(ctx, resetCodeKey(email), code, ResetCodeExpiry)
}

// GetResetCode returns "" when no code is pending for the email.
func (r *ResetCodes) GetResetCode(ctx context.Context, email string) (string, error) {
	return r.cache.Get(ctx, resetCodeKey(email))
}

func (r *ResetCodes) DeleteResetCode(ctx context.Context, email string) error {
	return r.cache.Delete(ctx, resetCodeKey(email))
}

func resetCodeKey(email string) string {
	return "reset_code:" + email
}

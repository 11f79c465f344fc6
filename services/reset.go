package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const resetKeyPrefix = "pwdreset:"

// Reset flow errors surfaced to handlers.
var (
	ErrResetCodeInvalid     = errors.New("reset code invalid or expired")
	ErrResetCodeNotVerified = errors.New("reset code not verified")
)

type resetEntry struct {
	CodeHash string     `json:"codeHash"`
	Verified *time.Time `json:"verifiedAt,omitempty"`
}

// ResetService manages password-reset codes: a 6-digit code whose bcrypt
// hash lives in redis under a TTL. Issuing a new code replaces any pending
// one; consuming or expiry deletes it.
type ResetService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewResetService(redisClient *redis.Client, ttl time.Duration) *ResetService {
	return &ResetService{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Issue generates a fresh code for the user and stores its hash. The plain
// code is returned once, for the email.
func (rs *ResetService) Issue(ctx context.Context, userID uint) (string, error) {
	code, err := generate6DigitCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset code: %w", err)
	}

	entry, err := json.Marshal(resetEntry{CodeHash: string(hash)})
	if err != nil {
		return "", fmt.Errorf("failed to encode reset entry: %w", err)
	}

	if err := rs.redis.Set(ctx, resetKey(userID), entry, rs.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store reset code: %w", err)
	}

	return code, nil
}

// Verify checks a submitted code and, on match, marks the entry verified
// without extending its TTL.
func (rs *ResetService) Verify(ctx context.Context, userID uint, code string) error {
	entry, err := rs.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.CodeHash), []byte(code)); err != nil {
		return ErrResetCodeInvalid
	}

	now := time.Now()
	entry.Verified = &now

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode reset entry: %w", err)
	}
	if err := rs.redis.Set(ctx, resetKey(userID), encoded, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update reset entry: %w", err)
	}
	return nil
}

// Consume requires a previously verified code and deletes the entry so it
// cannot be reused.
func (rs *ResetService) Consume(ctx context.Context, userID uint) error {
	entry, err := rs.load(ctx, userID)
	if err != nil {
		return err
	}
	if entry.Verified == nil {
		return ErrResetCodeNotVerified
	}

	if err := rs.redis.Del(ctx, resetKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete reset entry: %w", err)
	}
	return nil
}

func (rs *ResetService) load(ctx context.Context, userID uint) (*resetEntry, error) {
	data, err := rs.redis.Get(ctx, resetKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetCodeInvalid
		}
		return nil, fmt.Errorf("failed to load reset entry: %w", err)
	}

	var entry resetEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode reset entry: %w", err)
	}
	return &entry, nil
}

func resetKey(userID uint) string {
	return resetKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func generate6DigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

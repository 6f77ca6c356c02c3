// Package captcha holds the session-scoped, single-use challenge store and
// code generation used by the gate's captcha feature.
package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoChallenge indicates no challenge is stored for the session, either
	// because none was generated or because it was already consumed.
	ErrNoChallenge = errors.New("captcha challenge not found")
	// ErrBackend indicates the challenge backend is unreachable.
	ErrBackend = errors.New("captcha backend unavailable")
)

// Store keeps at most one pending challenge per session key.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a challenge store on the given Redis client.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "agc"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) key(sessionKey string) string {
	return s.prefix + ":" + sessionKey
}

// Put stores the code for the session, replacing any pending challenge.
func (s *Store) Put(ctx context.Context, sessionKey, code string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(sessionKey), code, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// Take removes and returns the pending code for the session. Removal and read
// are one atomic GETDEL so two concurrent submissions against the same
// challenge can never both observe it.
func (s *Store) Take(ctx context.Context, sessionKey string) (string, error) {
	code, err := s.redis.GetDel(ctx, s.key(sessionKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoChallenge
		}
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return code, nil
}

// Generate draws a code of the given length from alphabet using crypto/rand.
func Generate(length int, alphabet string) (string, error) {
	if length <= 0 || len(alphabet) == 0 {
		return "", errors.New("invalid captcha code parameters")
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

package authgate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wenqiu/authgate/password"
)

// memoryAccountStore is a test double that honors the store-side contract:
// it owns the persisted attempt counter and the LOCKED flag, updating them in
// response to RecordFailedAttempt/RecordSuccess.
type memoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account

	recordedFailures map[string][]FailureReason
	successes        []string
	mutationLog      []string
	mutationErr      error
	findErr          error

	// refreshedRights, when non-nil, is what mutation refreshes Rights to,
	// simulating a partial refresh that drops session-granted capabilities.
	refreshedRights []Capability
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{
		accounts:         map[string]*Account{},
		recordedFailures: map[string][]FailureReason{},
	}
}

func (s *memoryAccountStore) put(account *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Identity] = account
}

func (s *memoryAccountStore) get(identity string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[identity]
}

func (s *memoryAccountStore) FindByIdentity(_ context.Context, identity string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	account, ok := s.accounts[identity]
	if !ok {
		return nil, nil
	}
	copied := *account
	copied.Rights = append([]Capability(nil), account.Rights...)
	return &copied, nil
}

func (s *memoryAccountStore) mutate(op string, account *Account, newValue string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutationLog = append(s.mutationLog, op)
	if s.mutationErr != nil {
		return nil, s.mutationErr
	}
	copied := *account
	if op == "force_change_password" || op == "change_password" {
		copied.CredentialHash = "digest:" + newValue
	}
	if s.refreshedRights != nil {
		copied.Rights = append([]Capability(nil), s.refreshedRights...)
	} else {
		copied.Rights = append([]Capability(nil), account.Rights...)
	}
	s.accounts[copied.Identity] = &copied
	out := copied
	return &out, nil
}

func (s *memoryAccountStore) ChangePassword(_ context.Context, account *Account, newSecret string) (*Account, error) {
	return s.mutate("change_password", account, newSecret)
}

func (s *memoryAccountStore) ForceChangePassword(_ context.Context, account *Account, newSecret string) (*Account, error) {
	return s.mutate("force_change_password", account, newSecret)
}

func (s *memoryAccountStore) ChangeMobile(_ context.Context, account *Account, newMobile string) (*Account, error) {
	return s.mutate("change_mobile", account, newMobile)
}

func (s *memoryAccountStore) ChangeEmail(_ context.Context, account *Account, newEmail string) (*Account, error) {
	return s.mutate("change_email", account, newEmail)
}

func (s *memoryAccountStore) RecordFailedAttempt(_ context.Context, identity string, reason FailureReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordedFailures[identity] = append(s.recordedFailures[identity], reason)
	if account, ok := s.accounts[identity]; ok {
		account.AttemptCount++
		account.LastAttemptTime = time.Now()
		if reason == ReasonTooManyAttempts {
			account.Status |= StatusLocked
		}
	}
	return nil
}

func (s *memoryAccountStore) RecordSuccess(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, identity)
	if account, ok := s.accounts[identity]; ok {
		account.AttemptCount = 0
		account.Status &^= StatusLocked
	}
	return nil
}

func (s *memoryAccountStore) failureCount(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recordedFailures[identity])
}

func (s *memoryAccountStore) successCount(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.successes {
		if id == identity {
			n++
		}
	}
	return n
}

// testConfig keeps argon2 parameters at their minimums so tests stay fast.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	cfg.Policy.MaxAttempts = 3
	cfg.Policy.LockingPeriod = time.Hour
	return cfg
}

func newTestGate(t *testing.T, cfg Config, store *memoryAccountStore, sink EventSink) (*Gate, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	gate, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountStore(store).
		WithEventSink(sink).
		Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("gate build failed: %v", err)
	}

	return gate, mr, func() {
		gate.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

// encodeSecret digests a plaintext with the same parameters testConfig uses.
func encodeSecret(t *testing.T, secret string) string {
	t.Helper()

	enc, err := password.NewEncoder(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("encoder init failed: %v", err)
	}
	hash, err := enc.Encode(secret)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return hash
}

func seedAccount(t *testing.T, store *memoryAccountStore, identity, secret string, status StatusFlag, rights ...Capability) *Account {
	t.Helper()
	account := &Account{
		Identity:       identity,
		CredentialHash: encodeSecret(t, secret),
		Status:         status,
		Rights:         rights,
	}
	store.put(account)
	return account
}

func mustAuthFail(t *testing.T, ctx context.Context, gate *Gate, req Request, want error) {
	t.Helper()
	outcome, err := gate.Authenticate(ctx, req)
	if outcome != nil {
		t.Fatalf("expected no outcome, got %+v", outcome)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

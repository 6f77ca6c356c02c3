package authgate

import "time"

// staticPolicy is the default [PasswordPolicyProvider], driven entirely by
// [PolicyConfig]. Hosts with per-tenant or store-backed policies supply their
// own provider through [Builder.WithPolicyProvider].
type staticPolicy struct {
	maxAttempts   int
	lockingPeriod time.Duration
	now           func() time.Time
}

// NewStaticPolicy returns a [PasswordPolicyProvider] with fixed limits.
// maxAttempts <= 0 disables the attempt limit; lockingPeriod <= 0 disables
// auto-unlock.
func NewStaticPolicy(maxAttempts int, lockingPeriod time.Duration) PasswordPolicyProvider {
	return &staticPolicy{
		maxAttempts:   maxAttempts,
		lockingPeriod: lockingPeriod,
		now:           time.Now,
	}
}

func (p *staticPolicy) MaxAttempts() int { return p.maxAttempts }

func (p *staticPolicy) LockingPeriod() time.Duration { return p.lockingPeriod }

func (p *staticPolicy) AutoUnlockEligible(lastAttemptTime time.Time) bool {
	if p.lockingPeriod <= 0 {
		return false
	}
	if lastAttemptTime.IsZero() {
		// Locked with no attempt on record: any locking period has elapsed.
		return true
	}
	return p.now().Sub(lastAttemptTime) >= p.lockingPeriod
}

// attemptFailure classifies a credential mismatch for the given account. The
// prospective count (one more than the persisted counter) is checked against
// the limit: crossing it escalates BadCredentials to TooManyAttempts, and the
// store is expected to mark the account LOCKED upon observing that reason.
func attemptFailure(policy PasswordPolicyProvider, account *Account) error {
	maxAttempts := policy.MaxAttempts()
	if maxAttempts <= 0 {
		return ErrBadCredentials
	}
	if account.AttemptCount+1 >= maxAttempts {
		return ErrTooManyAttempts
	}
	return ErrBadCredentials
}

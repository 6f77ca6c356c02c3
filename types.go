package authgate

import (
	"context"
	"time"
)

// StatusFlag is a bit set describing the lifecycle state of an [Account].
type StatusFlag uint16

const (
	// StatusEnabled marks an account that may sign on.
	StatusEnabled StatusFlag = 1 << iota
	// StatusDisabled marks an administratively disabled account.
	StatusDisabled
	// StatusLocked marks an account locked after too many failed attempts.
	StatusLocked
	// StatusExpired marks an account past its validity period.
	StatusExpired
	// StatusInactive marks an account that was never activated.
	StatusInactive
	// StatusPwdExpired marks an account whose password has expired.
	StatusPwdExpired
	// StatusPwdInitialized marks a first-login or admin-reset password that
	// must be changed before the account is usable.
	StatusPwdInitialized
)

// Has reports whether all bits of flag are set.
func (f StatusFlag) Has(flag StatusFlag) bool {
	return f&flag == flag
}

// Capability is an opaque granted-permission token held by an account.
type Capability string

// Account is the record the gate authenticates against. It is loaded fresh
// from the [AccountStore] for every authentication attempt; the gate never
// mutates the persisted record directly. AttemptCount and LastAttemptTime are
// maintained by the store in response to RecordFailedAttempt/RecordSuccess.
type Account struct {
	Identity        string
	CredentialHash  string
	Status          StatusFlag
	AttemptCount    int
	LastAttemptTime time.Time // zero value: no failed attempt on record
	Rights          []Capability
	Locale          string
}

// HasRight reports whether the account holds the given capability.
func (a *Account) HasRight(c Capability) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Rights {
		if r == c {
			return true
		}
	}
	return false
}

// Request is one authentication attempt as submitted by the host layer.
//
// Identity is trusted only for [PurposeSignon]. For every other purpose the
// gate takes the identity from Principal, the already-authenticated account,
// so a forged username field cannot redirect a profile mutation onto another
// account.
type Request struct {
	Purpose   Purpose
	Identity  string
	Principal *Account

	// Secret is the submitted password, compared against the stored digest.
	Secret string
	// Captcha is the submitted challenge answer, consumed single-use when
	// the captcha feature applies to the purpose.
	Captcha string
	// SessionKey scopes the captcha challenge to the caller's session.
	SessionKey string

	// PendingValue carries the new password, mobile number or email address
	// for the non-signon purposes.
	PendingValue string
	// ForcedChange marks a first-login or admin-reset password change, which
	// routes through AccountStore.ForceChangePassword before the general
	// ChangePassword.
	ForcedChange bool
}

// Outcome is the successful result of one gate run. Failures are reported as
// errors from [Gate.Authenticate] and classified via [Classify].
type Outcome struct {
	Account *Account
	Purpose Purpose
	// Ticket is a signed session ticket, empty unless ticket minting is
	// configured.
	Ticket string
	// AutoUnlocked reports that the account was LOCKED and the run proceeded
	// through the time-based auto-unlock bypass.
	AutoUnlocked bool
}

// AccountStore is the external account backend. The store is the single
// serialization point for per-account state: it owns the persisted attempt
// counter and the LOCKED flag, and must provide read-modify-write consistency
// per account.
//
// FindByIdentity returns (nil, nil) for an unknown identity; the gate maps
// that to [ErrUserNotFound]. Any non-nil error is treated as an
// infrastructure failure, never as a policy rejection.
type AccountStore interface {
	FindByIdentity(ctx context.Context, identity string) (*Account, error)

	ChangePassword(ctx context.Context, account *Account, newSecret string) (*Account, error)
	ForceChangePassword(ctx context.Context, account *Account, newSecret string) (*Account, error)
	ChangeMobile(ctx context.Context, account *Account, newMobile string) (*Account, error)
	ChangeEmail(ctx context.Context, account *Account, newEmail string) (*Account, error)

	// RecordFailedAttempt is invoked after a credential mismatch with the
	// classified reason (ReasonBadCredentials or ReasonTooManyAttempts). On
	// ReasonTooManyAttempts the store is expected to mark the account LOCKED
	// and stamp LastAttemptTime.
	RecordFailedAttempt(ctx context.Context, identity string, reason FailureReason) error
	// RecordSuccess is invoked once the submitted credentials have verified
	// so the store can reset the attempt counter, and, when configured,
	// clear a bypassed lock. It never fires for a run that failed before or
	// during credential comparison.
	RecordSuccess(ctx context.Context, identity string) error
}

// PasswordPolicyProvider exposes the attempt-limit policy the gate enforces.
type PasswordPolicyProvider interface {
	// MaxAttempts returns the failed-attempt threshold; zero or negative
	// means the policy has no attempt limit.
	MaxAttempts() int
	// LockingPeriod returns how long a lock holds before auto-unlock; zero
	// or negative means locks never expire.
	LockingPeriod() time.Duration
	// AutoUnlockEligible reports whether enough time has elapsed since the
	// last failed attempt for a LOCKED account to be treated as unlocked.
	AutoUnlockEligible(lastAttemptTime time.Time) bool
}

package authgate

import "errors"

var (
	// ErrGateNotReady is returned when the gate is used before Build or with
	// a missing dependency.
	ErrGateNotReady = errors.New("authentication gate not ready")
	// ErrNoPrincipal is returned when a non-signon request carries no
	// authenticated principal to resolve the identity from.
	ErrNoPrincipal = errors.New("no authenticated principal for purpose")
	// ErrUnknownPurpose is returned for a request marker outside the
	// supported purpose set.
	ErrUnknownPurpose = errors.New("unknown authentication purpose")

	// ErrBadCaptcha is returned when the captcha challenge is missing,
	// already consumed, or answered incorrectly.
	ErrBadCaptcha = errors.New("captcha verification failed")
	// ErrUserNotFound is returned when no account exists for the identity.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadCredentials is returned on a password mismatch below the attempt
	// threshold.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrTooManyAttempts is returned on the password mismatch that crosses
	// the attempt threshold; it supersedes ErrBadCredentials for that
	// comparison.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrLocked is returned for a LOCKED account that is not yet eligible
	// for auto-unlock.
	ErrLocked = errors.New("account locked")
	// ErrDisabled is returned for a disabled account.
	ErrDisabled = errors.New("account disabled")
	// ErrExpired is returned for an inactive or expired account.
	ErrExpired = errors.New("account expired")
	// ErrCredentialsExpired is returned after a correct password when the
	// password itself has expired; the verified identity is carried in the
	// failure event so the host can branch into a forced-change flow.
	ErrCredentialsExpired = errors.New("credentials expired")
	// ErrCredentialsInitialized is returned after a correct password when
	// the password is a first-login or admin-reset value that must be
	// changed before use.
	ErrCredentialsInitialized = errors.New("credentials initialized")
	// ErrMutationFailed is returned when the profile mutation step fails
	// after an otherwise successful verification.
	ErrMutationFailed = errors.New("profile mutation failed")
	// ErrThrottled is returned when the pre-gate request throttle rejects
	// the attempt before the state machine runs.
	ErrThrottled = errors.New("authentication throttled")

	// ErrCaptchaUnavailable reports a captcha backend outage. It is an
	// infrastructure failure, deliberately distinct from ErrBadCaptcha.
	ErrCaptchaUnavailable = errors.New("captcha backend unavailable")
	// ErrStoreUnavailable reports an account-store outage. It is never
	// coerced into ErrBadCredentials: an outage must not consume the
	// caller's attempt budget.
	ErrStoreUnavailable = errors.New("account store unavailable")
)

// FailureReason is the sealed classification of a failed gate run. Exactly
// one reason applies per run; the most specific one wins.
type FailureReason uint8

const (
	// ReasonUnclassified covers infrastructure and usage errors that are not
	// part of the policy taxonomy.
	ReasonUnclassified FailureReason = iota
	ReasonBadCaptcha
	ReasonUserNotFound
	ReasonBadCredentials
	ReasonTooManyAttempts
	ReasonLocked
	ReasonDisabled
	ReasonExpired
	ReasonCredentialsExpired
	ReasonCredentialsInitialized
	ReasonMutationFailed
	ReasonThrottled
)

var reasonNames = map[FailureReason]string{
	ReasonUnclassified:           "unclassified",
	ReasonBadCaptcha:             "bad_captcha",
	ReasonUserNotFound:           "user_not_found",
	ReasonBadCredentials:         "bad_credentials",
	ReasonTooManyAttempts:        "too_many_attempts",
	ReasonLocked:                 "locked",
	ReasonDisabled:               "disabled",
	ReasonExpired:                "expired",
	ReasonCredentialsExpired:     "credentials_expired",
	ReasonCredentialsInitialized: "credentials_initialized",
	ReasonMutationFailed:         "mutation_failed",
	ReasonThrottled:              "throttled",
}

func (r FailureReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unclassified"
}

// Classify maps any error returned by [Gate.Authenticate] onto the sealed
// failure taxonomy. Errors outside the taxonomy, including backend outages,
// classify as [ReasonUnclassified].
func Classify(err error) FailureReason {
	switch {
	case err == nil:
		return ReasonUnclassified
	case errors.Is(err, ErrBadCaptcha):
		return ReasonBadCaptcha
	case errors.Is(err, ErrUserNotFound):
		return ReasonUserNotFound
	case errors.Is(err, ErrTooManyAttempts):
		return ReasonTooManyAttempts
	case errors.Is(err, ErrBadCredentials):
		return ReasonBadCredentials
	case errors.Is(err, ErrLocked):
		return ReasonLocked
	case errors.Is(err, ErrDisabled):
		return ReasonDisabled
	case errors.Is(err, ErrExpired):
		return ReasonExpired
	case errors.Is(err, ErrCredentialsExpired):
		return ReasonCredentialsExpired
	case errors.Is(err, ErrCredentialsInitialized):
		return ReasonCredentialsInitialized
	case errors.Is(err, ErrMutationFailed):
		return ReasonMutationFailed
	case errors.Is(err, ErrThrottled):
		return ReasonThrottled
	default:
		return ReasonUnclassified
	}
}

package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wenqiu/authgate/internal/rate"
)

// gateState tracks progress through one authentication run. States advance
// strictly forward; any stage may terminate the run with a classified
// failure. The state a run failed in is carried on the failure event.
type gateState uint8

const (
	stateMatched gateState = iota
	statePreChecked
	stateCaptchaOK
	stateCredentialsOK
	statePostChecked
	stateMutated
)

func (s gateState) String() string {
	switch s {
	case stateMatched:
		return "matched"
	case statePreChecked:
		return "pre_checked"
	case stateCaptchaOK:
		return "captcha_ok"
	case stateCredentialsOK:
		return "credentials_ok"
	case statePostChecked:
		return "post_checked"
	case stateMutated:
		return "mutated"
	default:
		return "unknown"
	}
}

// Authenticate runs the gate state machine exactly once for req and returns
// either the sealed successful outcome or a classified error (see [Classify]).
//
// Stage order is fixed and short-circuiting: purpose/identity resolution,
// throttle, account load, status pre-check, captcha, credential comparison,
// status post-check, profile mutation. Short-circuiting is part of the
// contract: the captcha is never consumed for an account already known to be
// disabled, and account status is never evaluated for the self-service
// purposes.
func (g *Gate) Authenticate(ctx context.Context, req Request) (*Outcome, error) {
	if g == nil || g.store == nil || g.encoder == nil {
		return nil, ErrGateNotReady
	}

	identity, err := resolveIdentity(&req)
	if err != nil {
		return nil, g.fail(ctx, req.Identity, req.Purpose, stateMatched, err)
	}
	state := stateMatched

	if g.throttle != nil {
		if err := g.throttle.Check(ctx, identity, clientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrLimited) {
				g.metricInc(MetricThrottled)
				return nil, g.fail(ctx, identity, req.Purpose, state, ErrThrottled)
			}
			return nil, g.fail(ctx, identity, req.Purpose, state, fmt.Errorf("throttle check: %w", err))
		}
	}

	account, err := g.loadAccount(ctx, identity)
	if err != nil {
		return nil, g.failCounted(ctx, identity, req.Purpose, state, err)
	}

	autoUnlocked, err := g.preCheck(account, req.Purpose.checkerKind())
	if err != nil {
		if errors.Is(err, ErrLocked) {
			g.metricInc(MetricLocked)
		}
		return nil, g.failCounted(ctx, identity, req.Purpose, state, err)
	}
	if autoUnlocked {
		g.metricInc(MetricAutoUnlockBypass)
	}
	state = statePreChecked

	if g.captchaRequired(req.Purpose) {
		// A captcha failure never reaches the account attempt counter.
		if err := g.consumeCaptcha(ctx, req.SessionKey, req.Captcha); err != nil {
			if errors.Is(err, ErrBadCaptcha) {
				g.metricInc(MetricBadCaptcha)
			}
			return nil, g.failCounted(ctx, identity, req.Purpose, state, err)
		}
	}
	state = stateCaptchaOK

	matched, err := g.encoder.Matches(req.Secret, account.CredentialHash)
	if err != nil {
		return nil, g.failCounted(ctx, identity, req.Purpose, state, fmt.Errorf("verify credential: %w", err))
	}
	if !matched {
		attemptErr := attemptFailure(g.policy, account)
		reason := Classify(attemptErr)
		if reason == ReasonTooManyAttempts {
			g.metricInc(MetricTooManyAttempts)
		} else {
			g.metricInc(MetricBadCredentials)
		}
		if err := g.store.RecordFailedAttempt(ctx, identity, reason); err != nil {
			g.log.Warn("failed attempt not recorded", zap.String("identity", identity), zap.Error(err))
		}
		return nil, g.failCounted(ctx, identity, req.Purpose, state, attemptErr)
	}
	state = stateCredentialsOK

	attemptStateReset := false
	if autoUnlocked && g.config.Policy.ClearLockOnAutoUnlock {
		// Eager unlock is a policy choice: the locking period has elapsed
		// and the caller just proved the credentials, so resetting the
		// store's attempt state now lets it clear the LOCKED flag even if
		// a post-check routes this run into a forced-change flow. It never
		// fires before the credentials verify.
		if err := g.store.RecordSuccess(ctx, identity); err != nil {
			g.log.Warn("eager unlock record failed", zap.String("identity", identity), zap.Error(err))
		} else {
			attemptStateReset = true
		}
	}

	if err := g.postCheck(account, req.Purpose.checkerKind()); err != nil {
		// The password was correct: the failure still identifies the
		// principal so the host can branch into a forced-change flow.
		return nil, g.failCounted(ctx, identity, req.Purpose, state, err)
	}
	state = statePostChecked

	if req.Purpose.mutates() {
		account, err = g.applyMutation(ctx, account, &req)
		if err != nil {
			return nil, g.failCounted(ctx, identity, req.Purpose, state, err)
		}
		g.metricInc(MetricMutationApplied)
		state = stateMutated
	}

	if !attemptStateReset {
		if err := g.store.RecordSuccess(ctx, identity); err != nil {
			g.log.Warn("success not recorded", zap.String("identity", identity), zap.Error(err))
		}
	}
	if g.throttle != nil {
		if err := g.throttle.Reset(ctx, identity, clientIPFromContext(ctx)); err != nil {
			g.log.Warn("throttle reset failed", zap.String("identity", identity), zap.Error(err))
		}
	}

	outcome := &Outcome{
		Account:      account,
		Purpose:      req.Purpose,
		AutoUnlocked: autoUnlocked,
	}
	if g.tickets != nil {
		ticketValue, err := g.mintTicket(account, req.Purpose)
		if err != nil {
			g.log.Warn("ticket minting failed", zap.String("identity", identity), zap.Error(err))
		} else {
			outcome.Ticket = ticketValue
			g.metricInc(MetricTicketMinted)
		}
	}

	g.metricInc(MetricAuthSuccess)
	g.emitSuccess(ctx, identity, req.Purpose, state, autoUnlocked)
	return outcome, nil
}

// loadAccount fetches a fresh account record for the attempt. A missing
// account is ErrUserNotFound; a store error is an infrastructure failure and
// is never mapped into the credential taxonomy.
func (g *Gate) loadAccount(ctx context.Context, identity string) (*Account, error) {
	account, err := g.store.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if account == nil {
		return nil, ErrUserNotFound
	}
	return account, nil
}

// fail finalizes a failed run: failure metric and event, throttle untouched.
func (g *Gate) fail(ctx context.Context, identity string, purpose Purpose, state gateState, err error) error {
	g.metricInc(MetricAuthFailure)
	g.emitFailureAt(ctx, identity, purpose, state, err)
	return err
}

// failCounted additionally charges the pre-gate throttle for the failed run.
// Unclassified errors, which cover backend outages, stay off the throttle for
// the same reason they stay out of the credential taxonomy: an outage must not
// consume anyone's attempt budget.
func (g *Gate) failCounted(ctx context.Context, identity string, purpose Purpose, state gateState, err error) error {
	if Classify(err) == ReasonUnclassified {
		return g.fail(ctx, identity, purpose, state, err)
	}
	if g.throttle != nil {
		if incErr := g.throttle.Increment(ctx, identity, clientIPFromContext(ctx)); incErr != nil && !errors.Is(incErr, rate.ErrLimited) {
			g.log.Warn("throttle increment failed", zap.String("identity", identity), zap.Error(incErr))
		}
	}
	return g.fail(ctx, identity, purpose, state, err)
}

func (g *Gate) mintTicket(account *Account, purpose Purpose) (string, error) {
	capabilities := make([]string, 0, len(account.Rights))
	for _, r := range account.Rights {
		capabilities = append(capabilities, string(r))
	}
	return g.tickets.Mint(account.Identity, purpose.String(), capabilities, time.Now())
}

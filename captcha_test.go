package authgate

import (
	"context"
	"strings"
	"testing"
)

func captchaConfig() Config {
	cfg := testConfig()
	cfg.Captcha.Enabled = true
	cfg.Captcha.Length = 5
	return cfg
}

func TestCaptcha_SignonWithCorrectCode(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()
	challenge, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}
	if len(challenge.Code) != 5 {
		t.Fatalf("code length = %d", len(challenge.Code))
	}
	if challenge.Width <= 0 || challenge.Height <= 0 || challenge.FontSize <= 0 {
		t.Fatalf("render parameters = %+v", challenge)
	}

	if _, err := gate.Authenticate(ctx, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    challenge.Code,
	}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestCaptcha_CodeIsSingleUse(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()
	challenge, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}

	if _, err := gate.Authenticate(ctx, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    challenge.Code,
	}); err != nil {
		t.Fatalf("first use should succeed, got %v", err)
	}

	// Replaying the consumed code must fail even though it is "correct".
	mustAuthFail(t, ctx, gate, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    challenge.Code,
	}, ErrBadCaptcha)
}

func TestCaptcha_WrongCodeConsumesChallenge(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, mr, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()
	challenge, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}

	mustAuthFail(t, ctx, gate, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    "not-the-code",
	}, ErrBadCaptcha)

	// The comparison cleared the stored code regardless of the outcome.
	if mr.Exists("agc:sess-1") {
		t.Fatal("challenge should be consumed by the failed comparison")
	}
	// A retry with the original code must fail too.
	mustAuthFail(t, ctx, gate, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    challenge.Code,
	}, ErrBadCaptcha)
}

func TestCaptcha_FailureDoesNotTouchAttemptCounter(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	mustAuthFail(t, context.Background(), gate, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    "anything",
	}, ErrBadCaptcha)

	if got := store.failureCount("alice"); got != 0 {
		t.Fatalf("captcha failure must not reach the attempt counter, got %d", got)
	}
}

func TestCaptcha_NotConsumedForDoomedAccount(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled|StatusDisabled)

	gate, mr, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()
	challenge, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}

	mustAuthFail(t, ctx, gate, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    challenge.Code,
	}, ErrDisabled)

	// The pre-check failed first, so the legitimate user's challenge is
	// still intact for the next request.
	if !mr.Exists("agc:sess-1") {
		t.Fatal("challenge must survive a run that failed before the captcha stage")
	}
}

func TestCaptcha_SubmissionIsTrimmedAndCaseSensitive(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()

	challenge, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}
	if _, err := gate.Authenticate(ctx, Request{
		Purpose:    PurposeSignon,
		Identity:   "alice",
		Secret:     "correct-password-123",
		SessionKey: "sess-1",
		Captcha:    "  " + challenge.Code + "\t",
	}); err != nil {
		t.Fatalf("trimmed submission should match, got %v", err)
	}

	challenge, err = gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}
	flipped := strings.ToLower(challenge.Code)
	if flipped == challenge.Code {
		flipped = strings.ToUpper(challenge.Code)
	}
	if flipped != challenge.Code {
		mustAuthFail(t, ctx, gate, Request{
			Purpose:    PurposeSignon,
			Identity:   "alice",
			Secret:     "correct-password-123",
			SessionKey: "sess-1",
			Captcha:    flipped,
		}, ErrBadCaptcha)
	}
}

func TestCaptcha_FreshChallengeInvalidatesThePreviousOne(t *testing.T) {
	store := newMemoryAccountStore()
	seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	ctx := context.Background()
	first, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}
	second, err := gate.NewCaptcha(ctx, "sess-1")
	if err != nil {
		t.Fatalf("captcha generation failed: %v", err)
	}

	if first.Code != second.Code {
		mustAuthFail(t, ctx, gate, Request{
			Purpose:    PurposeSignon,
			Identity:   "alice",
			Secret:     "correct-password-123",
			SessionKey: "sess-1",
			Captcha:    first.Code,
		}, ErrBadCaptcha)
	}
}

func TestCaptcha_NotRequiredForSelfServicePurposes(t *testing.T) {
	store := newMemoryAccountStore()
	account := seedAccount(t, store, "alice", "correct-password-123", StatusEnabled)

	gate, _, done := newTestGate(t, captchaConfig(), store, nil)
	defer done()

	// Default captcha purposes cover signon only: a password change with no
	// challenge at all must pass.
	if _, err := gate.Authenticate(context.Background(), Request{
		Purpose:      PurposePassword,
		Principal:    account,
		Secret:       "correct-password-123",
		PendingValue: "next-password-456",
	}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

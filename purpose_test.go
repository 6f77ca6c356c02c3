package authgate

import (
	"errors"
	"testing"
)

func TestParsePurpose(t *testing.T) {
	for marker, want := range map[string]Purpose{
		MarkerSignon:   PurposeSignon,
		MarkerPassword: PurposePassword,
		MarkerMobile:   PurposeMobile,
		MarkerEmail:    PurposeEmail,
	} {
		got, err := ParsePurpose(marker)
		if err != nil || got != want {
			t.Fatalf("ParsePurpose(%q) = %v, %v", marker, got, err)
		}
		if !want.Matches(marker) {
			t.Fatalf("%v should match marker %q", want, marker)
		}
	}

	if _, err := ParsePurpose("totp"); !errors.Is(err, ErrUnknownPurpose) {
		t.Fatalf("expected ErrUnknownPurpose, got %v", err)
	}
	if PurposeSignon.Matches("password") {
		t.Fatal("signon must not match the password marker")
	}
}

func TestPurposeCheckerKinds(t *testing.T) {
	if PurposeSignon.checkerKind() != CheckerStandard {
		t.Fatal("signon runs the standard checker")
	}
	for _, p := range []Purpose{PurposePassword, PurposeMobile, PurposeEmail} {
		if p.checkerKind() != CheckerNothing {
			t.Fatalf("%v must use the nothing checker", p)
		}
		if !p.mutates() {
			t.Fatalf("%v should apply a mutation", p)
		}
	}
	if PurposeSignon.mutates() {
		t.Fatal("signon applies no mutation")
	}
}

func TestResolveIdentity(t *testing.T) {
	principal := &Account{Identity: "bob"}

	got, err := resolveIdentity(&Request{Purpose: PurposeSignon, Identity: "alice"})
	if err != nil || got != "alice" {
		t.Fatalf("signon identity = %q, %v", got, err)
	}

	// Non-signon purposes never trust the posted field.
	got, err = resolveIdentity(&Request{Purpose: PurposePassword, Identity: "alice", Principal: principal})
	if err != nil || got != "bob" {
		t.Fatalf("self-service identity = %q, %v", got, err)
	}

	if _, err := resolveIdentity(&Request{Purpose: PurposeMobile, Identity: "alice"}); !errors.Is(err, ErrNoPrincipal) {
		t.Fatalf("expected ErrNoPrincipal, got %v", err)
	}
	if _, err := resolveIdentity(&Request{Purpose: PurposeSignon}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty signon identity, got %v", err)
	}
}

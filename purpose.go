package authgate

// Purpose identifies which flow an authentication attempt belongs to. Each
// entry point in the host application sets exactly one marker; the gate is
// registered once and behaves per purpose.
type Purpose uint8

const (
	// PurposeSignon is the regular sign-on flow.
	PurposeSignon Purpose = iota
	// PurposePassword is the self-service (or forced) password change flow.
	PurposePassword
	// PurposeMobile is the mobile number change flow.
	PurposeMobile
	// PurposeEmail is the email address change flow.
	PurposeEmail
)

const (
	// MarkerSignon is the request marker for the sign-on entry point.
	MarkerSignon = "signon"
	// MarkerPassword is the request marker for the password-change entry point.
	MarkerPassword = "password"
	// MarkerMobile is the request marker for the mobile-change entry point.
	MarkerMobile = "mobile"
	// MarkerEmail is the request marker for the email-change entry point.
	MarkerEmail = "email"
)

func (p Purpose) String() string {
	switch p {
	case PurposeSignon:
		return MarkerSignon
	case PurposePassword:
		return MarkerPassword
	case PurposeMobile:
		return MarkerMobile
	case PurposeEmail:
		return MarkerEmail
	default:
		return "unknown"
	}
}

// ParsePurpose resolves a request marker set earlier in the host pipeline
// into a [Purpose].
func ParsePurpose(marker string) (Purpose, error) {
	switch marker {
	case MarkerSignon:
		return PurposeSignon, nil
	case MarkerPassword:
		return PurposePassword, nil
	case MarkerMobile:
		return PurposeMobile, nil
	case MarkerEmail:
		return PurposeEmail, nil
	default:
		return PurposeSignon, ErrUnknownPurpose
	}
}

// Matches reports whether marker selects this purpose. It lets a single gate
// registration dispatch per entry point.
func (p Purpose) Matches(marker string) bool {
	parsed, err := ParsePurpose(marker)
	return err == nil && parsed == p
}

// mutates reports whether a successful run applies a profile mutation.
func (p Purpose) mutates() bool {
	return p != PurposeSignon
}

// checkerKind selects the status checker variant for the purpose. Account
// status is deliberately not re-evaluated for the self-service purposes: the
// caller is already authenticated, and a LOCKED or PWD_EXPIRED flag must not
// block the very flow that repairs it.
func (p Purpose) checkerKind() CheckerKind {
	if p == PurposeSignon {
		return CheckerStandard
	}
	return CheckerNothing
}

// resolveIdentity returns the identity the gate authenticates. Only the
// signon purpose trusts the posted identity field.
func resolveIdentity(req *Request) (string, error) {
	if req.Purpose == PurposeSignon {
		if req.Identity == "" {
			return "", ErrUserNotFound
		}
		return req.Identity, nil
	}
	if req.Principal == nil || req.Principal.Identity == "" {
		return "", ErrNoPrincipal
	}
	return req.Principal.Identity, nil
}

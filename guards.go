package authgate

// CheckerKind selects which status checker variant a purpose runs.
// CheckerNothing is used for the self-service purposes, where the caller is
// already authenticated and account status must not be re-evaluated.
type CheckerKind uint8

const (
	// CheckerStandard runs the full pre/post status checks.
	CheckerStandard CheckerKind = iota
	// CheckerNothing performs no status checks at all.
	CheckerNothing
)

// preCheck runs the account-status checks that precede credential
// verification: locked (with auto-unlock bypass), then disabled, then expired,
// short-circuiting on the first failure. It reports whether the run
// proceeded through the auto-unlock bypass; the bypass never writes account
// state here.
func (g *Gate) preCheck(account *Account, kind CheckerKind) (autoUnlocked bool, err error) {
	if kind == CheckerNothing {
		return false, nil
	}
	if account.Status.Has(StatusLocked) {
		if !g.policy.AutoUnlockEligible(account.LastAttemptTime) {
			return false, ErrLocked
		}
		autoUnlocked = true
	}
	if account.Status.Has(StatusDisabled) {
		return autoUnlocked, ErrDisabled
	}
	if account.Status.Has(StatusInactive) || account.Status.Has(StatusExpired) {
		return autoUnlocked, ErrExpired
	}
	return autoUnlocked, nil
}

// postCheck runs the credential-state checks that follow a successful
// password comparison. Both failures identify a verified principal: the host
// is expected to branch into a forced-change flow rather than reject.
func (g *Gate) postCheck(account *Account, kind CheckerKind) error {
	if kind == CheckerNothing {
		return nil
	}
	if account.Status.Has(StatusPwdExpired) {
		return ErrCredentialsExpired
	}
	if account.Status.Has(StatusPwdInitialized) {
		return ErrCredentialsInitialized
	}
	return nil
}

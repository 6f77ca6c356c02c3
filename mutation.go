package authgate

import (
	"context"
	"fmt"
)

// applyMutation runs the profile mutation pipeline for a fully verified
// non-signon request: snapshot the rights granted so far, apply the pending
// change through the store, then union-merge the snapshot into the refreshed
// principal so capabilities granted earlier in the session survive a partial
// refresh. Any store failure surfaces as ErrMutationFailed, never silently.
func (g *Gate) applyMutation(ctx context.Context, account *Account, req *Request) (*Account, error) {
	snapshot := append([]Capability(nil), account.Rights...)
	if req.Principal != nil {
		// Session-granted capabilities live on the principal, not in the
		// store; they are part of what the merge must preserve.
		snapshot = mergeRights(snapshot, req.Principal.Rights)
	}

	var (
		refreshed *Account
		err       error
	)
	switch req.Purpose {
	case PurposePassword:
		current := account
		if req.ForcedChange {
			// First-login and admin-reset changes route through the forced
			// operation first; both run, in this order, each updating the
			// carried credential hash.
			current, err = g.store.ForceChangePassword(ctx, current, req.PendingValue)
			if err != nil {
				return nil, fmt.Errorf("%w: force change password: %v", ErrMutationFailed, err)
			}
			if current == nil {
				current = account
			}
		}
		refreshed, err = g.store.ChangePassword(ctx, current, req.PendingValue)
	case PurposeMobile:
		refreshed, err = g.store.ChangeMobile(ctx, account, req.PendingValue)
	case PurposeEmail:
		refreshed, err = g.store.ChangeEmail(ctx, account, req.PendingValue)
	default:
		return account, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMutationFailed, req.Purpose, err)
	}
	if refreshed == nil {
		refreshed = account
	}

	refreshed.Rights = mergeRights(snapshot, refreshed.Rights)
	return refreshed, nil
}

// mergeRights unions prior and current capabilities, keeping prior order
// first and dropping duplicates.
func mergeRights(prior, current []Capability) []Capability {
	merged := make([]Capability, 0, len(prior)+len(current))
	seen := make(map[Capability]struct{}, len(prior)+len(current))
	for _, set := range [][]Capability{prior, current} {
		for _, c := range set {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

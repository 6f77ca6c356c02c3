// Package authgate implements the authentication gate that decides, for every
// submitted credential set, whether a principal may transition into an
// authenticated state, and under which purpose (sign-on, forced password
// change, mobile change, email change).
//
// The gate enforces account-status invariants, a brute-force attempt policy
// with time-based auto-unlock, an optional single-use captcha challenge, and
// an atomic profile-mutation step for the self-service purposes. It is an
// embeddable library: hosts supply an [AccountStore] and receive a sealed
// outcome; translating that outcome into redirects, status codes or session
// cookies is the host's concern.
//
// A [Gate] is built once through [Builder.Build] and is safe for concurrent
// use afterwards. Each call to [Gate.Authenticate] is exactly one run of the
// authentication state machine; nothing is retried implicitly.
package authgate

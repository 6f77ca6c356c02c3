package authgate

import (
	"errors"
	"time"
)

// Config carries all gate tuning parameters. Configure it before
// [Builder.Build]; the gate treats it as immutable afterwards.
type Config struct {
	Policy   PolicyConfig
	Captcha  CaptchaConfig
	Throttle ThrottleConfig
	Cookie   CookieConfig
	Password PasswordConfig
	Ticket   TicketConfig
	Events   EventConfig
	Metrics  MetricsConfig
}

/*
====================================
ATTEMPT POLICY CONFIG
====================================
*/

// PolicyConfig describes the brute-force attempt policy.
type PolicyConfig struct {
	// MaxAttempts is the failed-attempt threshold; 0 disables the limit.
	MaxAttempts int
	// LockingPeriod is how long a lock holds before the auto-unlock bypass
	// applies; 0 means locks never expire on their own.
	LockingPeriod time.Duration
	// ClearLockOnAutoUnlock makes the gate call RecordSuccess on the store
	// once a LOCKED account traverses the auto-unlock bypass and its
	// credentials verify, so the store can clear the flag even when the run
	// then ends in a post-check failure. Off by default: the bypass alone
	// never writes account state, and an unverified request never does.
	ClearLockOnAutoUnlock bool
}

/*
====================================
CAPTCHA CONFIG
====================================
*/

// CaptchaConfig describes the single-use captcha challenge.
type CaptchaConfig struct {
	Enabled bool
	// Length of the generated code.
	Length int
	// Alphabet the code is drawn from. The default excludes visually
	// ambiguous characters (0/O, 1/l/I, o/i).
	Alphabet string
	// Purposes the challenge applies to. Defaults to signon only.
	Purposes []Purpose
	// TTL bounds how long a generated challenge stays consumable.
	TTL time.Duration
	// RedisPrefix namespaces challenge keys.
	RedisPrefix string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig describes the optional pre-gate request throttle. It sits in
// front of the account-level attempt policy and is keyed per identifier and,
// optionally, per client IP.
type ThrottleConfig struct {
	Enabled     bool
	PerIP       bool
	MaxAttempts int
	Cooldown    time.Duration
	RedisPrefix string
}

/*
====================================
COOKIE / PASSWORD / TICKET CONFIG
====================================
*/

// CookieConfig feeds [Gate.CookieDomain].
type CookieConfig struct {
	UseServerDomain bool
	SubDomainLevel  int
}

// PasswordConfig carries the argon2id digest parameters used to verify and
// re-encode credentials.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TicketConfig enables minting a signed ticket on success.
type TicketConfig struct {
	Enabled       bool
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// EventConfig tunes the success/failure event dispatcher.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

// DefaultCaptchaAlphabet is the ambiguity-free code alphabet.
const DefaultCaptchaAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz"

func defaultConfig() Config {
	return Config{
		Policy: PolicyConfig{
			MaxAttempts:   6,
			LockingPeriod: 24 * time.Hour,
		},
		Captcha: CaptchaConfig{
			Enabled:     false,
			Length:      4,
			Alphabet:    DefaultCaptchaAlphabet,
			Purposes:    []Purpose{PurposeSignon},
			TTL:         5 * time.Minute,
			RedisPrefix: "agc",
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			PerIP:       true,
			MaxAttempts: 30,
			Cooldown:    10 * time.Minute,
			RedisPrefix: "agt",
		},
		Cookie: CookieConfig{
			UseServerDomain: false,
			SubDomainLevel:  0,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Ticket: TicketConfig{
			Enabled:       false,
			TTL:           30 * time.Minute,
			SigningMethod: "hs256",
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.Policy.MaxAttempts < 0 {
		return errors.New("policy: MaxAttempts must not be negative")
	}
	if cfg.Policy.LockingPeriod < 0 {
		return errors.New("policy: LockingPeriod must not be negative")
	}
	if cfg.Captcha.Enabled {
		if cfg.Captcha.Length <= 0 {
			return errors.New("captcha: Length must be positive")
		}
		if len(cfg.Captcha.Alphabet) < 2 {
			return errors.New("captcha: Alphabet needs at least two characters")
		}
		if cfg.Captcha.TTL <= 0 {
			return errors.New("captcha: TTL must be positive")
		}
	}
	if cfg.Throttle.Enabled {
		if cfg.Throttle.MaxAttempts <= 0 {
			return errors.New("throttle: MaxAttempts must be positive")
		}
		if cfg.Throttle.Cooldown <= 0 {
			return errors.New("throttle: Cooldown must be positive")
		}
	}
	if cfg.Cookie.SubDomainLevel < 0 {
		return errors.New("cookie: SubDomainLevel must not be negative")
	}
	if cfg.Ticket.Enabled && cfg.Ticket.TTL <= 0 {
		return errors.New("ticket: TTL must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Captcha.Purposes = append([]Purpose(nil), cfg.Captcha.Purposes...)
	out.Ticket.PrivateKey = append([]byte(nil), cfg.Ticket.PrivateKey...)
	out.Ticket.PublicKey = append([]byte(nil), cfg.Ticket.PublicKey...)
	return out
}

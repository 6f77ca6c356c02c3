// Package ticket mints and parses the signed session ticket the gate can
// attach to a successful outcome. The ticket is a compact claim set for the
// host's session layer; it is not an access-control token by itself.
package ticket

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the ticket signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Config carries the ticket signing parameters.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

// Manager mints and verifies tickets. It is immutable after [NewManager].
type Manager struct {
	config Config
	edPriv ed25519.PrivateKey
	edPub  ed25519.PublicKey
}

// Claims is the ticket payload: who authenticated, for which purpose, and
// with which capabilities.
type Claims struct {
	Identity     string   `json:"idy"`
	Purpose      string   `json:"pur"`
	Capabilities []string `json:"cap,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid ticket TTL")
	}

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a private key")
		}
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.edPriv = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.edPub = pub
		} else {
			m.edPub = priv.Public().(ed25519.PublicKey)
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// Mint signs a ticket for the identity/purpose pair.
func (m *Manager) Mint(identity, purpose string, capabilities []string, now time.Time) (string, error) {
	if identity == "" {
		return "", errors.New("empty identity")
	}

	claims := Claims{
		Identity:     identity,
		Purpose:      purpose,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	switch m.config.SigningMethod {
	case MethodHS256:
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return token.SignedString(m.config.PrivateKey)
	case MethodEd25519:
		token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		return token.SignedString(m.edPriv)
	default:
		return "", errors.New("unsupported signing method")
	}
}

// Parse verifies a ticket signature and expiry and returns its claims.
func (m *Manager) Parse(ticket string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(t *jwt.Token) (interface{}, error) {
		switch m.config.SigningMethod {
		case MethodHS256:
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(m.config.PrivateKey), nil
		case MethodEd25519:
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.edPub, nil
		default:
			return nil, errors.New("unsupported signing method")
		}
	}, jwt.WithIssuer(m.config.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid ticket")
	}
	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	default:
		return nil, errors.New("ed25519 private key must be seed or full key bytes")
	}
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key size")
	}
	return ed25519.PublicKey(key), nil
}

package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wenqiu/authgate/internal/captcha"
)

// Challenge is a freshly generated captcha plus the render parameters an
// external image renderer needs. The code itself never goes to the client;
// only its drawn image does.
type Challenge struct {
	Code     string
	Width    int
	Height   int
	FontSize int
}

const (
	captchaCellWidth = 22
	captchaPadding   = 16
	captchaHeight    = 36
	captchaFontSize  = 24
)

// NewCaptcha generates a challenge for the session, replacing any pending
// one. A replaced challenge is gone: even its correct code is rejected
// afterwards.
func (g *Gate) NewCaptcha(ctx context.Context, sessionKey string) (*Challenge, error) {
	if g == nil || g.captcha == nil {
		return nil, ErrGateNotReady
	}
	if sessionKey == "" {
		return nil, errors.New("empty session key")
	}

	code, err := captcha.Generate(g.config.Captcha.Length, g.config.Captcha.Alphabet)
	if err != nil {
		return nil, err
	}
	if err := g.captcha.Put(ctx, sessionKey, code, g.config.Captcha.TTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}

	g.metricInc(MetricCaptchaIssued)
	return &Challenge{
		Code:     code,
		Width:    g.config.Captcha.Length*captchaCellWidth + captchaPadding,
		Height:   captchaHeight,
		FontSize: captchaFontSize,
	}, nil
}

// captchaRequired reports whether the captcha feature applies to purpose.
func (g *Gate) captchaRequired(purpose Purpose) bool {
	if !g.config.Captcha.Enabled || g.captcha == nil {
		return false
	}
	for _, p := range g.config.Captcha.Purposes {
		if p == purpose {
			return true
		}
	}
	return false
}

// consumeCaptcha takes the pending challenge for the session and compares the
// submitted answer exactly once. The stored code is removed before the
// comparison, so replay always fails regardless of the submitted value. The
// comparison is case-sensitive over the trimmed submission; a missing
// challenge fails.
func (g *Gate) consumeCaptcha(ctx context.Context, sessionKey, submitted string) error {
	stored, err := g.captcha.Take(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, captcha.ErrNoChallenge) {
			return ErrBadCaptcha
		}
		return fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	if strings.TrimSpace(submitted) != stored {
		return ErrBadCaptcha
	}
	return nil
}

package authgate

import (
	"context"

	"go.uber.org/zap"

	"github.com/wenqiu/authgate/internal/captcha"
	"github.com/wenqiu/authgate/internal/rate"
	"github.com/wenqiu/authgate/password"
	"github.com/wenqiu/authgate/ticket"
)

// Gate is the authentication gate. Build it once through [Builder.Build];
// it is immutable and safe for concurrent use afterwards.
type Gate struct {
	config   Config
	store    AccountStore
	policy   PasswordPolicyProvider
	encoder  *password.Encoder
	captcha  *captcha.Store
	throttle *rate.Limiter
	tickets  *ticket.Manager
	events   *eventDispatcher
	metrics  *Metrics
	log      *zap.Logger
}

// Close drains pending events and releases the gate's goroutines. The Redis
// client and account store are owned by the caller and stay open.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.events.Close()
}

// MetricsSnapshot returns a point-in-time copy of the gate counters.
func (g *Gate) MetricsSnapshot() map[MetricID]uint64 {
	if g == nil {
		return map[MetricID]uint64{}
	}
	return g.metrics.Snapshot()
}

// EventsDropped reports how many events were discarded because the dispatch
// buffer was full.
func (g *Gate) EventsDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.events.Dropped()
}

func (g *Gate) metricInc(id MetricID) {
	if g == nil {
		return
	}
	g.metrics.Inc(id)
}

func (g *Gate) emitSuccess(ctx context.Context, identity string, purpose Purpose, state gateState, autoUnlocked bool) {
	if g.events == nil {
		return
	}
	event := newEvent(EventAuthenticationSucceeded, purpose)
	event.Identity = identity
	event.ClientIP = clientIPFromContext(ctx)
	event.UserAgent = userAgentFromContext(ctx)
	event.Metadata = map[string]string{"state": state.String()}
	if autoUnlocked {
		event.Metadata["auto_unlocked"] = "true"
	}
	g.events.Emit(ctx, event)
}

func (g *Gate) emitFailureAt(ctx context.Context, identity string, purpose Purpose, state gateState, err error) {
	if g.events == nil {
		return
	}
	event := newEvent(EventAuthenticationFailed, purpose)
	event.Identity = identity
	event.Reason = Classify(err).String()
	event.ClientIP = clientIPFromContext(ctx)
	event.UserAgent = userAgentFromContext(ctx)
	event.Metadata = map[string]string{"state": state.String()}
	if err != nil {
		event.Error = err.Error()
	}
	g.events.Emit(ctx, event)
}

package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wenqiu/authgate/internal/captcha"
	"github.com/wenqiu/authgate/internal/rate"
	"github.com/wenqiu/authgate/password"
	"github.com/wenqiu/authgate/ticket"
)

// Builder assembles a [Gate]. Configure, then call [Builder.Build] exactly
// once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     AccountStore
	policy    PasswordPolicyProvider
	eventSink EventSink
	log       *zap.Logger

	built bool
}

// New returns a [Builder] seeded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the captcha challenge store and
// the pre-gate throttle. Required only when either feature is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore supplies the external account backend. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.store = store
	return b
}

// WithPolicyProvider overrides the config-driven attempt policy.
func (b *Builder) WithPolicyProvider(policy PasswordPolicyProvider) *Builder {
	b.policy = policy
	return b
}

// WithEventSink supplies the destination for success/failure events.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithLogger supplies a structured logger for non-outcome warnings. Defaults
// to a nop logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and wiring and returns the immutable
// [Gate].
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("account store is required")
	}
	if b.redis == nil && (b.config.Captcha.Enabled || b.config.Throttle.Enabled) {
		return nil, errors.New("redis client is required for captcha or throttle")
	}

	encoder, err := password.NewEncoder(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	g := &Gate{
		config:  b.config,
		store:   b.store,
		policy:  b.policy,
		encoder: encoder,
		metrics: newMetrics(b.config.Metrics),
		events:  newEventDispatcher(b.config.Events, b.eventSink, log),
		log:     log,
	}
	if g.policy == nil {
		g.policy = NewStaticPolicy(b.config.Policy.MaxAttempts, b.config.Policy.LockingPeriod)
	}

	if b.config.Captcha.Enabled {
		g.captcha = captcha.NewStore(b.redis, b.config.Captcha.RedisPrefix)
	}
	if b.config.Throttle.Enabled {
		g.throttle = rate.New(b.redis, rate.Config{
			PerIP:       b.config.Throttle.PerIP,
			MaxAttempts: b.config.Throttle.MaxAttempts,
			Cooldown:    b.config.Throttle.Cooldown,
			Prefix:      b.config.Throttle.RedisPrefix,
		})
	}
	if b.config.Ticket.Enabled {
		manager, err := ticket.NewManager(ticket.Config{
			TTL:           b.config.Ticket.TTL,
			SigningMethod: ticket.SigningMethod(b.config.Ticket.SigningMethod),
			PrivateKey:    b.config.Ticket.PrivateKey,
			PublicKey:     b.config.Ticket.PublicKey,
			Issuer:        b.config.Ticket.Issuer,
		})
		if err != nil {
			g.events.Close()
			return nil, err
		}
		g.tickets = manager
	}

	b.built = true
	return g, nil
}

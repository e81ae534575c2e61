package domwatch

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the default timeout for the wait operations.
const DefaultTimeout = 10 * time.Second

// validate is the shared validator instance.
var validate = validator.New()

// config holds the resolved options for one session or wait. Defaults are
// resolved when the session is created; the config is immutable afterwards.
type config struct {
	root            Element
	subtree         bool
	attributeFilter []string
	characterData   bool
	childList       bool
	debounce        time.Duration
	throttle        time.Duration
	once            bool
	timeout         time.Duration
	clock           clockz.Clock
	syncMode        bool
	errorHistory    int
	middleware      []pipz.Chainable[*Event]
	errHandler      pipz.Chainable[*pipz.Error[*Event]]
}

// Option configures a session or wait.
type Option func(*config)

// WithRoot sets the observation root. Nil (the default) means the
// document root.
func WithRoot(el Element) Option {
	return func(c *config) {
		c.root = el
	}
}

// WithSubtree controls whether observation and matching extend to all
// descendants of the root. Default: true.
func WithSubtree(subtree bool) Option {
	return func(c *config) {
		c.subtree = subtree
	}
}

// WithAttributeFilter narrows attribute observation to the named
// attributes. Only meaningful for WatchModified and WaitForChange.
func WithAttributeFilter(names ...string) Option {
	return func(c *config) {
		c.attributeFilter = names
	}
}

// WithCharacterData enables character-data observation for WatchModified.
func WithCharacterData() Option {
	return func(c *config) {
		c.characterData = true
	}
}

// WithChildList enables structural observation for WatchModified.
func WithChildList() Option {
	return func(c *config) {
		c.childList = true
	}
}

// WithDebounce gates callback delivery behind a quiet period: each
// qualifying match (re)starts the timer, and only the most recent match
// is delivered once d elapses without another. Mutually exclusive with
// WithThrottle.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithThrottle caps callback delivery to one execution per interval: a
// match arriving after a full interval runs immediately, a sooner one is
// deferred to a single trailing timer and supersedes any earlier deferred
// match. Mutually exclusive with WithDebounce.
func WithThrottle(d time.Duration) Option {
	return func(c *config) {
		c.throttle = d
	}
}

// WithOnce disposes the session at or before the first delivered callback.
// At most one user-visible callback ever fires.
func WithOnce() Option {
	return func(c *config) {
		c.once = true
	}
}

// WithTimeout sets the settlement deadline for the wait operations.
// Default: DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithClock sets a custom clock for timer operations.
// Use this with clockz.FakeClock for deterministic rate-limit testing.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithSyncMode disables the session goroutine. Batches and rate-limit
// timers are serviced only by explicit Process calls, making tests
// deterministic.
func WithSyncMode() Option {
	return func(c *config) {
		c.syncMode = true
	}
}

// WithErrorHistory retains up to n recent handler faults, readable via
// Session.ErrorHistory. Default 0: only LastError is retained.
func WithErrorHistory(n int) Option {
	return func(c *config) {
		c.errorHistory = n
	}
}

// WithMiddleware inserts processors ahead of the handler in the delivery
// pipeline. Processors run in order, handler last.
func WithMiddleware(processors ...pipz.Chainable[*Event]) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, processors...)
	}
}

// WithErrorHandler adds error observation to the delivery pipeline.
// Errors are passed to the handler for logging, metrics, or alerting,
// but still propagate. Use this for observability, not recovery.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Event]]) Option {
	return func(c *config) {
		c.errHandler = handler
	}
}

// newConfig resolves options against defaults.
func newConfig(clock clockz.Clock, opts []Option) (*config, error) {
	cfg := &config{
		subtree: true,
		timeout: DefaultTimeout,
		clock:   clock,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clockz.RealClock
	}

	if cfg.debounce < 0 || cfg.throttle < 0 || cfg.timeout < 0 {
		return nil, fmt.Errorf("domwatch: negative interval in options")
	}
	if cfg.debounce > 0 && cfg.throttle > 0 {
		return nil, fmt.Errorf("domwatch: debounce and throttle are mutually exclusive")
	}
	return cfg, nil
}

// Profile is a declarative observation config, typically shipped alongside
// page automation as YAML. Parse with ProfileFromYAML and expand with
// Options.
type Profile struct {
	Subtree         *bool    `yaml:"subtree"`
	AttributeFilter []string `yaml:"attribute_filter"`
	CharacterData   bool     `yaml:"character_data"`
	ChildList       bool     `yaml:"child_list"`
	DebounceMs      int      `yaml:"debounce_ms" validate:"min=0,excluded_with=ThrottleMs"`
	ThrottleMs      int      `yaml:"throttle_ms" validate:"min=0"`
	Once            bool     `yaml:"once"`
	TimeoutMs       int      `yaml:"timeout_ms" validate:"min=0"`
}

// ProfileFromYAML parses and validates a YAML observation profile.
func ProfileFromYAML(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("domwatch: parse profile: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return Profile{}, fmt.Errorf("domwatch: invalid profile: %w", err)
	}
	return p, nil
}

// Options expands the profile into the equivalent option list.
func (p Profile) Options() []Option {
	var opts []Option
	if p.Subtree != nil {
		opts = append(opts, WithSubtree(*p.Subtree))
	}
	if len(p.AttributeFilter) > 0 {
		opts = append(opts, WithAttributeFilter(p.AttributeFilter...))
	}
	if p.CharacterData {
		opts = append(opts, WithCharacterData())
	}
	if p.ChildList {
		opts = append(opts, WithChildList())
	}
	if p.DebounceMs > 0 {
		opts = append(opts, WithDebounce(time.Duration(p.DebounceMs)*time.Millisecond))
	}
	if p.ThrottleMs > 0 {
		opts = append(opts, WithThrottle(time.Duration(p.ThrottleMs)*time.Millisecond))
	}
	if p.Once {
		opts = append(opts, WithOnce())
	}
	if p.TimeoutMs > 0 {
		opts = append(opts, WithTimeout(time.Duration(p.TimeoutMs)*time.Millisecond))
	}
	return opts
}

package strata

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Option configures resolver or walker construction.
// Options implement methods for the constructors they support.
type Option interface {
	applyResolver(cfg *resolverConfig) error
	applyWalker(cfg *walkerConfig) error
}

// ErrOptionNotValidForWalker indicates an option was used with NewWalker
// that only applies to NewResolver.
var ErrOptionNotValidForWalker = errors.New("option not valid for walker")

// DefaultWalkConcurrency bounds concurrent directory listings per walk.
const DefaultWalkConcurrency = 64

type walkerConfig struct {
	concurrency int
	logger      zerolog.Logger
}

type resolverConfig struct {
	walker   walkerConfig
	strategy Strategy
}

// loggerOption implements Option for WithLogger.
type loggerOption struct {
	logger zerolog.Logger
}

// WithLogger sets the logger for resolution events. The default discards
// everything.
func WithLogger(l zerolog.Logger) Option {
	return &loggerOption{logger: l}
}

func (o *loggerOption) applyResolver(cfg *resolverConfig) error {
	cfg.walker.logger = o.logger
	return nil
}

func (o *loggerOption) applyWalker(cfg *walkerConfig) error {
	cfg.logger = o.logger
	return nil
}

// concurrencyOption implements Option for WithWalkConcurrency.
type concurrencyOption struct {
	n int
}

// WithWalkConcurrency bounds the number of directory listings in flight
// during one tree walk.
func WithWalkConcurrency(n int) Option {
	return &concurrencyOption{n: n}
}

func (o *concurrencyOption) applyResolver(cfg *resolverConfig) error {
	return o.applyWalker(&cfg.walker)
}

func (o *concurrencyOption) applyWalker(cfg *walkerConfig) error {
	if o.n < 1 {
		return fmt.Errorf("WithWalkConcurrency: %d must be positive", o.n)
	}
	cfg.concurrency = o.n
	return nil
}

// Strategy selects how dated standard descriptors are resolved.
type Strategy int

const (
	// StrategyWalk walks the date-partitioned tree and collapses fully
	// covered subtrees.
	StrategyWalk Strategy = iota

	// StrategyConstruct builds the expected folder and file names and
	// counts what exists.
	StrategyConstruct
)

func (s Strategy) String() string {
	if s == StrategyConstruct {
		return "construct"
	}
	return "walk"
}

// ParseStrategy parses "walk" or "construct".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "walk", "":
		return StrategyWalk, nil
	case "construct":
		return StrategyConstruct, nil
	default:
		return 0, fmt.Errorf("strata: unknown strategy %q", s)
	}
}

// strategyOption implements Option for WithStrategy (resolver-only).
type strategyOption struct {
	strategy Strategy
}

// WithStrategy selects the resolution strategy for dated standard datasets.
func WithStrategy(s Strategy) Option {
	return &strategyOption{strategy: s}
}

func (o *strategyOption) applyResolver(cfg *resolverConfig) error {
	cfg.strategy = o.strategy
	return nil
}

func (o *strategyOption) applyWalker(*walkerConfig) error {
	return fmt.Errorf("WithStrategy: %w", ErrOptionNotValidForWalker)
}

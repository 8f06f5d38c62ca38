package scimly

import (
	"github.com/getscimly/scimly/config"
	"github.com/getscimly/scimly/engine"
	"github.com/getscimly/scimly/ratelimit"
)

// Default types for convenience
type Kind = engine.Kind

const (
	KindUser        = engine.KindUser
	KindGroup       = engine.KindGroup
	KindEntitlement = engine.KindEntitlement
	KindRole        = engine.KindRole
)

// NewEngines builds one engine per built-in resource kind over a shared
// store and tenant configuration source.
func NewEngines(store engine.Store, tenants engine.ConfigSource, opts engine.Options) map[engine.Kind]*engine.Engine {
	engines := make(map[engine.Kind]*engine.Engine)
	for kind, desc := range engine.Descriptors() {
		engines[kind] = engine.New(desc, store, tenants, opts)
	}
	return engines
}

// NewGate builds the rate gate from the service configuration. All four
// operation classes share one window length with independent ceilings.
func NewGate(cfg *config.Config) *ratelimit.Gate {
	window := cfg.RateWindow()
	return ratelimit.NewGate(ratelimit.NewFixedWindow(), map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassCreate: {Ceiling: cfg.RateLimitCreate, Window: window},
		ratelimit.ClassRead:   {Ceiling: cfg.RateLimitRead, Window: window},
		ratelimit.ClassUpdate: {Ceiling: cfg.RateLimitUpdate, Window: window},
		ratelimit.ClassDelete: {Ceiling: cfg.RateLimitDelete, Window: window},
	})
}

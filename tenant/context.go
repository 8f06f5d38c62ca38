package tenant

import "context"

type configCtxKey struct{}

// WithConfig stores a tenant's configuration document in the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey{}, cfg)
}

// FromContext retrieves the tenant configuration stored by WithConfig.
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configCtxKey{}).(*Config)
	return cfg, ok
}

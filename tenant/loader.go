package tenant

import (
	"errors"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type documentFile struct {
	Version int      `yaml:"version"`
	Tenants []Config `yaml:"tenants"`
}

// Loader serves tenant configuration documents. Tenants without a document
// get DefaultConfig — a tenant never has to be declared before use.
type Loader struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewLoader returns a loader with no documents; every tenant runs with
// defaults.
func NewLoader() *Loader {
	return &Loader{configs: make(map[string]*Config)}
}

// LoadFile reads a versioned YAML file of tenant configuration documents.
func LoadFile(path string) (*Loader, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var df documentFile
	if err := yaml.Unmarshal(b, &df); err != nil {
		return nil, err
	}
	if df.Version != 1 {
		return nil, errors.New("tenant: unsupported configuration file version")
	}

	l := NewLoader()
	for i := range df.Tenants {
		c := df.Tenants[i]
		if err := ValidateID(c.ID); err != nil {
			return nil, err
		}
		l.configs[c.ID] = &c
	}
	return l, nil
}

// Config returns the tenant's configuration document, or defaults when the
// tenant has none.
func (l *Loader) Config(id string) *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if c, ok := l.configs[id]; ok {
		return c
	}
	return DefaultConfig(id)
}

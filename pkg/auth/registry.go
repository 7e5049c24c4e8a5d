package auth

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
)

// Factory builds a provider from its settings document. The settings
// node is the raw YAML subtree under "settings"; implementations decode
// it into their own typed configuration and must reject unknown keys.
type Factory func(settings *yaml.Node) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a provider factory selectable by name from the
// configuration document. Registering a duplicate name panics; it is a
// programming error in the embedding build.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("auth provider %q registered twice", name))
	}
	factories[name] = factory
}

// registeredNames returns the registered provider names, sorted, for
// error messages.
func registeredNames() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// config is the on-disk shape of the provider configuration document.
type config struct {
	Provider string    `yaml:"provider"`
	Settings yaml.Node `yaml:"settings"`
}

// LoadProvider reads the configuration document at path, instantiates
// the named provider, and initializes it. The path comes from the
// NTC_AUTH_CONFIG environment variable; refusing to run without one
// prevents accidentally unauthenticated deployments.
func LoadProvider(path string) (Provider, error) {
	if path == "" {
		return nil, errors.NewInvalidInputError("auth provider configuration path is required", nil)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read auth provider config %s: %w", path, err)
	}
	return loadProviderFromBytes(data)
}

func loadProviderFromBytes(data []byte) (Provider, error) {
	var cfg config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.NewInvalidInputError("invalid auth provider config", err)
	}
	if cfg.Provider == "" {
		return nil, errors.NewInvalidInputError("auth provider config must name a provider", nil)
	}

	factoriesMu.RLock()
	factory, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.NewInvalidInputError(
			fmt.Sprintf("unknown auth provider %q (registered: %v)", cfg.Provider, registeredNames()), nil)
	}

	settings := &cfg.Settings
	if settings.Kind == 0 {
		// No settings block; hand the factory an empty mapping.
		settings = &yaml.Node{Kind: yaml.MappingNode}
	}
	return factory(settings)
}

// decodeSettings strictly decodes a settings node into a provider's
// typed configuration struct. Unknown keys are a startup error.
func decodeSettings(settings *yaml.Node, out any) error {
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to re-encode settings: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// An empty settings block decodes to EOF; that's a valid document
	// for providers whose settings are all optional.
	if err := dec.Decode(out); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.NewInvalidInputError("invalid provider settings", err)
	}
	return nil
}

// Package shortcode allocates fixed-length short codes over a configurable
// alphabet and guarantees that an allocated code is not in the issued set it
// was checked against.
package shortcode

import "sync"

// Config selects the alphabet, code length and ordering strategy.
type Config struct {
	Alphabet string
	Length   int
	Driver   string
	// Seed feeds seeded drivers such as shuffle. Changing it changes the order.
	Seed uint64
	// MaxAttempts caps collision retries per allocation. Zero means the cap is
	// derived from the issued set size only.
	MaxAttempts int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Alphabet: DefaultAlphabet,
		Length:   DefaultLength,
		Driver:   DriverSequential,
	}
}

// Merge returns base with every non-zero field of override applied.
func Merge(base, override Config) Config {
	if override.Alphabet != "" {
		base.Alphabet = override.Alphabet
	}
	if override.Length != 0 {
		base.Length = override.Length
	}
	if override.Driver != "" {
		base.Driver = override.Driver
	}
	if override.Seed != 0 {
		base.Seed = override.Seed
	}
	if override.MaxAttempts != 0 {
		base.MaxAttempts = override.MaxAttempts
	}
	return base
}

// Generator is the allocation entry point. It holds no allocation state and
// is safe for concurrent use.
type Generator struct {
	cfg    Config
	alpha  *Alphabet
	driver Driver
}

// New builds a Generator from cfg merged over DefaultConfig.
func New(cfg Config) (*Generator, error) {
	cfg = Merge(DefaultConfig(), cfg)

	alpha, err := NewAlphabet(cfg.Alphabet, cfg.Length)
	if err != nil {
		return nil, err
	}
	factory, err := lookupDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	driver, err := factory(alpha, cfg)
	if err != nil {
		return nil, err
	}

	return &Generator{cfg: cfg, alpha: alpha, driver: driver}, nil
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// Alphabet returns the codec the generator encodes with.
func (g *Generator) Alphabet() *Alphabet { return g.alpha }

// DriverName returns the name of the selected driver.
func (g *Generator) DriverName() string { return g.driver.Name() }

// Allocate returns a code that follows last in driver order and is not in
// issued. An empty last, or one that is not a valid code under the current
// configuration, starts from the driver's first code. Codes in a CodeSet that
// are not valid under the current alphabet do not count as issued. Persisting
// the result is up to the caller.
func (g *Generator) Allocate(last string, issued IssuedSet) (string, error) {
	if last != "" && !g.alpha.Valid(last) {
		last = ""
	}
	if set, ok := issued.(CodeSet); ok {
		issued = set.Within(g.alpha)
	}
	return Resolve(g.driver, g.alpha.Space(), last, issued, g.cfg.MaxAttempts)
}

var (
	defaultMu   sync.Mutex
	defaultOnce = new(sync.Once)
	defaultCfg  *Config
	defaultGen  *Generator
	defaultErr  error
)

// Configure sets the process-wide configuration used by Default. The first
// call wins; later calls report false until Reset.
func Configure(cfg Config) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCfg != nil || defaultGen != nil {
		return false
	}
	defaultCfg = &cfg
	return true
}

// Default returns the process-wide Generator, building it on first use from
// the configured values or DefaultConfig.
func Default() (*Generator, error) {
	defaultMu.Lock()
	once := defaultOnce
	defaultMu.Unlock()

	once.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		cfg := Config{}
		if defaultCfg != nil {
			cfg = *defaultCfg
		} else {
			defaultCfg = &cfg
		}
		defaultGen, defaultErr = New(cfg)
	})

	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultGen, defaultErr
}

// Allocate runs Generator.Allocate on the process-wide Generator.
func Allocate(last string, issued IssuedSet) (string, error) {
	g, err := Default()
	if err != nil {
		return "", err
	}
	return g.Allocate(last, issued)
}

// Reset drops the process-wide configuration and Generator.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOnce = new(sync.Once)
	defaultCfg = nil
	defaultGen = nil
	defaultErr = nil
}

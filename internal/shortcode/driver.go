package shortcode

import (
	"fmt"
	"math/big"
	"math/bits"
	"sort"
	"strings"
	"sync"
)

const (
	// DriverSequential walks the code space in plain base-N order.
	DriverSequential = "sequential"
	// DriverShuffle walks the code space in a seeded pseudo-random order.
	DriverShuffle = "shuffle"

	// reservedDriverName is never a usable driver; it names the abstraction itself.
	reservedDriverName = "driver"
)

// Driver produces the next candidate code after last. An empty last means no
// code has been issued yet. Implementations hold no mutable state.
type Driver interface {
	Name() string
	Next(last string) (string, error)
}

// DriverFactory builds a driver over alpha using the rest of cfg as needed.
type DriverFactory func(alpha *Alphabet, cfg Config) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]DriverFactory{
		DriverSequential: newSequentialDriver,
		DriverShuffle:    newShuffleDriver,
	}
)

// RegisterDriver makes a driver available under name. Registering an existing
// name replaces it.
func RegisterDriver(name string, factory DriverFactory) error {
	name = normalizeDriverName(name)
	if name == "" || name == reservedDriverName {
		return fmt.Errorf("%w: %q cannot be registered", ErrInvalidDriver, name)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidDriver, name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
	return nil
}

// Drivers lists the registered driver names in sorted order.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (DriverFactory, error) {
	name = normalizeDriverName(name)
	if name == "" {
		name = DriverSequential
	}
	if name == reservedDriverName {
		return nil, fmt.Errorf("%w: %q is not a valid driver for shortening urls", ErrInvalidDriver, name)
	}
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid driver for shortening urls", ErrInvalidDriver, name)
	}
	return factory, nil
}

func normalizeDriverName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// sequentialDriver issues codes in increasing base-N order.
type sequentialDriver struct {
	alpha *Alphabet
}

func newSequentialDriver(alpha *Alphabet, _ Config) (Driver, error) {
	return &sequentialDriver{alpha: alpha}, nil
}

func (d *sequentialDriver) Name() string { return DriverSequential }

func (d *sequentialDriver) Next(last string) (string, error) {
	return d.alpha.Increment(last)
}

// shuffleDriver visits ordinals in the order p(0), p(1), ... where
// p(i) = (mul*i + add) mod N^L. mul is coprime to N^L, so p is a bijection and
// every code is issued exactly once before ErrExhausted.
type shuffleDriver struct {
	alpha  *Alphabet
	space  uint64
	mul    uint64
	mulInv uint64
	add    uint64
}

func newShuffleDriver(alpha *Alphabet, cfg Config) (Driver, error) {
	space := alpha.Space()

	mul := splitmix64(cfg.Seed) % space
	for mul == 0 || gcd(mul, space) != 1 {
		mul = (mul + 1) % space
	}
	inv := new(big.Int).ModInverse(new(big.Int).SetUint64(mul), new(big.Int).SetUint64(space))
	if inv == nil {
		return nil, fmt.Errorf("%w: no inverse for multiplier %d mod %d", ErrInvalidConfig, mul, space)
	}

	return &shuffleDriver{
		alpha:  alpha,
		space:  space,
		mul:    mul,
		mulInv: inv.Uint64(),
		add:    splitmix64(cfg.Seed^0x5bd1e995) % space,
	}, nil
}

func (d *shuffleDriver) Name() string { return DriverShuffle }

func (d *shuffleDriver) Next(last string) (string, error) {
	if last == "" {
		return d.alpha.Encode(d.permute(0))
	}
	ordinal, err := d.alpha.Decode(last)
	if err != nil {
		return "", err
	}
	pos := d.unpermute(ordinal)
	if pos+1 >= d.space {
		return "", ErrExhausted
	}
	return d.alpha.Encode(d.permute(pos + 1))
}

func (d *shuffleDriver) permute(pos uint64) uint64 {
	return (mulMod(d.mul, pos, d.space) + d.add) % d.space
}

func (d *shuffleDriver) unpermute(ordinal uint64) uint64 {
	return mulMod(d.mulInv, (ordinal+d.space-d.add)%d.space, d.space)
}

// mulMod returns a*b mod m without overflow. a and b must be below m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

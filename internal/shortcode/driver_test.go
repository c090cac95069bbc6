package shortcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T, symbols string, length int, name string, seed uint64) Driver {
	t.Helper()
	alpha, err := NewAlphabet(symbols, length)
	require.NoError(t, err)
	factory, err := lookupDriver(name)
	require.NoError(t, err)
	driver, err := factory(alpha, Config{Seed: seed})
	require.NoError(t, err)
	return driver
}

func TestSequentialDriver(t *testing.T) {
	driver := newTestDriver(t, "ab", 2, DriverSequential, 0)
	assert.Equal(t, DriverSequential, driver.Name())

	tests := []struct {
		last    string
		want    string
		wantErr error
	}{
		{last: "", want: "aa"},
		{last: "aa", want: "ab"},
		{last: "ab", want: "ba"},
		{last: "ba", want: "bb"},
		{last: "bb", wantErr: ErrExhausted},
		{last: "zz", wantErr: ErrInvalidCode},
	}

	for _, tt := range tests {
		t.Run("after "+tt.last, func(t *testing.T) {
			got, err := driver.Next(tt.last)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSequentialDriverFirstCodeIsStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		driver := newTestDriver(t, DefaultAlphabet, DefaultLength, DriverSequential, uint64(i))
		code, err := driver.Next("")
		require.NoError(t, err)
		assert.Equal(t, "aaaaa", code)
	}
}

func TestShuffleDriverVisitsEveryCodeOnce(t *testing.T) {
	seeds := []uint64{0, 1, 42, 1 << 40}
	for _, seed := range seeds {
		driver := newTestDriver(t, "abcd", 4, DriverShuffle, seed)
		alpha, err := NewAlphabet("abcd", 4)
		require.NoError(t, err)

		seen := make(map[string]bool)
		code := ""
		for {
			next, err := driver.Next(code)
			if err != nil {
				assert.ErrorIs(t, err, ErrExhausted)
				break
			}
			assert.True(t, alpha.Valid(next))
			assert.False(t, seen[next], "seed %d: code %q issued twice", seed, next)
			seen[next] = true
			code = next
		}
		assert.Len(t, seen, int(alpha.Space()), "seed %d", seed)
	}
}

func TestShuffleDriverDeterministic(t *testing.T) {
	a := newTestDriver(t, DefaultAlphabet, DefaultLength, DriverShuffle, 7)
	b := newTestDriver(t, DefaultAlphabet, DefaultLength, DriverShuffle, 7)
	other := newTestDriver(t, DefaultAlphabet, DefaultLength, DriverShuffle, 8)

	var codeA, codeB, codeOther string
	differs := false
	for i := 0; i < 50; i++ {
		var err error
		codeA, err = a.Next(codeA)
		require.NoError(t, err)
		codeB, err = b.Next(codeB)
		require.NoError(t, err)
		codeOther, err = other.Next(codeOther)
		require.NoError(t, err)

		assert.Equal(t, codeA, codeB)
		if codeA != codeOther {
			differs = true
		}
	}
	assert.True(t, differs, "different seeds should give different orders")
}

func TestShuffleDriverRejectsInvalidCode(t *testing.T) {
	driver := newTestDriver(t, "abc", 3, DriverShuffle, 3)
	_, err := driver.Next("abcd")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLookupDriver(t *testing.T) {
	tests := []struct {
		name     string
		driver   string
		wantName string
		wantErr  bool
	}{
		{name: "empty defaults to sequential", driver: "", wantName: DriverSequential},
		{name: "sequential", driver: "sequential", wantName: DriverSequential},
		{name: "case insensitive", driver: " Shuffle ", wantName: DriverShuffle},
		{name: "reserved sentinel", driver: "driver", wantErr: true},
		{name: "reserved sentinel capitalised", driver: "Driver", wantErr: true},
		{name: "misspelled", driver: "sequentail", wantErr: true},
	}

	alpha, err := NewAlphabet("ab", 2)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := lookupDriver(tt.driver)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDriver)
				assert.Nil(t, factory)
				return
			}
			require.NoError(t, err)
			driver, err := factory(alpha, Config{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, driver.Name())
		})
	}
}

type reverseDriver struct {
	alpha *Alphabet
}

func (d *reverseDriver) Name() string { return "reverse" }

func (d *reverseDriver) Next(last string) (string, error) {
	if last == "" {
		return d.alpha.Encode(d.alpha.Space() - 1)
	}
	ordinal, err := d.alpha.Decode(last)
	if err != nil {
		return "", err
	}
	if ordinal == 0 {
		return "", ErrExhausted
	}
	return d.alpha.Encode(ordinal - 1)
}

func TestRegisterDriver(t *testing.T) {
	err := RegisterDriver("reverse", func(alpha *Alphabet, _ Config) (Driver, error) {
		return &reverseDriver{alpha: alpha}, nil
	})
	require.NoError(t, err)
	assert.Contains(t, Drivers(), "reverse")

	gen, err := New(Config{Alphabet: "ab", Length: 2, Driver: "reverse"})
	require.NoError(t, err)
	code, err := gen.Allocate("", NewCodeSet("bb"))
	require.NoError(t, err)
	assert.Equal(t, "ba", code)

	assert.ErrorIs(t, RegisterDriver("driver", func(*Alphabet, Config) (Driver, error) { return nil, nil }), ErrInvalidDriver)
	assert.ErrorIs(t, RegisterDriver("", func(*Alphabet, Config) (Driver, error) { return nil, nil }), ErrInvalidDriver)
	assert.ErrorIs(t, RegisterDriver("nil", nil), ErrInvalidDriver)
}

func TestMulMod(t *testing.T) {
	const m = uint64(1<<62 + 57)
	a := m - 1
	// (m-1)^2 = m^2 - 2m + 1 ≡ 1 (mod m)
	assert.Equal(t, uint64(1), mulMod(a, a, m))
	assert.Equal(t, uint64(6), mulMod(2, 3, m))
}

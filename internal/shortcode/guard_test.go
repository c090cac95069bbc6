package shortcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDriver records how often Next is called.
type countingDriver struct {
	Driver
	calls int
}

func (d *countingDriver) Next(last string) (string, error) {
	d.calls++
	return d.Driver.Next(last)
}

func TestResolveSkipsIssuedCodes(t *testing.T) {
	driver := newTestDriver(t, "ab", 2, DriverSequential, 0)

	code, err := Resolve(driver, 4, "aa", NewCodeSet("aa", "ab"), 0)
	require.NoError(t, err)
	assert.Equal(t, "ba", code)
}

func TestResolveReturnsNextAfterKIssued(t *testing.T) {
	alpha, err := NewAlphabet(DefaultAlphabet, 3)
	require.NoError(t, err)
	driver := newTestDriver(t, DefaultAlphabet, 3, DriverSequential, 0)

	for _, k := range []uint64{1, 2, 64, 65, 500} {
		issued := NewCodeSet()
		for i := uint64(0); i < k; i++ {
			code, err := alpha.Encode(i)
			require.NoError(t, err)
			issued.Add(code)
		}
		last, err := alpha.Encode(k - 1)
		require.NoError(t, err)
		want, err := alpha.Encode(k)
		require.NoError(t, err)

		got, err := Resolve(driver, alpha.Space(), last, issued, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got, "k=%d", k)
	}
}

func TestResolveFromEmptyCursor(t *testing.T) {
	driver := newTestDriver(t, "ab", 2, DriverSequential, 0)

	code, err := Resolve(driver, 4, "", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "aa", code)

	code, err = Resolve(driver, 4, "", NewCodeSet("aa", "ab", "ba"), 0)
	require.NoError(t, err)
	assert.Equal(t, "bb", code)
}

func TestResolveFullSpace(t *testing.T) {
	inner := newTestDriver(t, "ab", 2, DriverSequential, 0)
	driver := &countingDriver{Driver: inner}

	_, err := Resolve(driver, 4, "bb", NewCodeSet("aa", "ab", "ba", "bb"), 0)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Zero(t, driver.calls, "a full space must fail before walking")
}

func TestResolvePropagatesExhausted(t *testing.T) {
	driver := newTestDriver(t, "ab", 2, DriverSequential, 0)

	// "aa" is still free but the sequential walk from "ba" runs off the end.
	_, err := Resolve(driver, 4, "ba", NewCodeSet("ab", "ba", "bb"), 0)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.NotErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.True(t, IsExhausted(err))
}

func TestResolveAttemptBound(t *testing.T) {
	inner := newTestDriver(t, "abc", 3, DriverSequential, 0)

	issued := NewCodeSet("aab", "aac", "aba", "abb", "abc")

	driver := &countingDriver{Driver: inner}
	code, err := Resolve(driver, 27, "aaa", issued, 0)
	require.NoError(t, err)
	assert.Equal(t, "aca", code)
	assert.Equal(t, 6, driver.calls)

	driver = &countingDriver{Driver: inner}
	_, err = Resolve(driver, 27, "aaa", issued, 3)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, 3, driver.calls)
}

func TestResolveNeverSpinsOnStaleSet(t *testing.T) {
	// A set that claims every candidate is taken but reports a small size
	// still terminates after Len()+1 attempts.
	inner := newTestDriver(t, DefaultAlphabet, DefaultLength, DriverSequential, 0)
	driver := &countingDriver{Driver: inner}

	_, err := Resolve(driver, inner.(*sequentialDriver).alpha.Space(), "", alwaysIssued{size: 10}, 0)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, 11, driver.calls)
}

type alwaysIssued struct {
	size int
}

func (s alwaysIssued) Contains(string) bool { return true }
func (s alwaysIssued) Len() int             { return s.size }

func TestCodeSet(t *testing.T) {
	set := NewCodeSet("a", "b", "a")
	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("a"))
	assert.False(t, set.Contains("c"))

	set.Add("c")
	assert.True(t, set.Contains("c"))
	assert.Equal(t, 3, set.Len())
}

func TestCodeSetWithin(t *testing.T) {
	alpha, err := NewAlphabet("ab", 2)
	require.NoError(t, err)

	all := NewCodeSet("aa", "bb")
	assert.Equal(t, all, all.Within(alpha))

	mixed := NewCodeSet("aa", "xy", "a", "abc", "bb")
	valid := mixed.Within(alpha)
	assert.Equal(t, NewCodeSet("aa", "bb"), valid)
	assert.Equal(t, 5, mixed.Len(), "source set is left untouched")
}

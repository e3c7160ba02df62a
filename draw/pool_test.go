package draw

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource always returns the same index, clamped to n.
type fixedSource int

func (f fixedSource) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"mixed delimiters", "Alice, Bob\nCarol", []string{"Alice", "Bob", "Carol"}},
		{"empty", "", []string{}},
		{"only delimiters", " ,\n, \n ", []string{}},
		{"crlf", "Alice\r\nBob\r\n", []string{"Alice", "Bob"}},
		{"duplicates kept", "Ann,Ann\nAnn", []string{"Ann", "Ann", "Ann"}},
		{"inner spaces kept", "  Mary Jane  ,Bo", []string{"Mary Jane", "Bo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.raw))
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		text    string
		want    int
		wantErr error
	}{
		{"3", 3, nil},
		{" 12 ", 12, nil},
		{"0", 0, ErrCountTooLow},
		{"-1", 0, ErrCountTooLow},
		{"", 0, ErrNonNumericCount},
		{"abc", 0, ErrNonNumericCount},
		{"2.5", 0, ErrNonNumericCount},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n, err := ParseCount(tt.text)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrInvalidCount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestDrawWithoutReplacement(t *testing.T) {
	src := Seeded(42)
	pool := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	for count := 1; count <= len(pool); count++ {
		winners, remaining, err := Draw(src, pool, count)
		require.NoError(t, err)
		require.Len(t, winners, count)
		require.Len(t, remaining, len(pool)-count)

		seen := make(map[string]bool)
		for _, w := range winners {
			assert.False(t, seen[w], "winner %q drawn twice", w)
			seen[w] = true
		}

		all := append(append([]string{}, winners...), remaining...)
		sort.Strings(all)
		assert.Equal(t, pool, all)
	}
}

func TestDrawLeavesInputUntouched(t *testing.T) {
	pool := []string{"a", "b", "c"}

	_, _, err := Draw(Seeded(1), pool, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, pool)
}

func TestDrawEntirePool(t *testing.T) {
	winners, remaining, err := Draw(Seeded(7), []string{"A", "B", "C"}, 3)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"A", "B", "C"}, winners)
	assert.Empty(t, remaining)
}

func TestDrawKeepsDuplicatesDistinct(t *testing.T) {
	winners, remaining, err := Draw(Seeded(3), []string{"Ann", "Ann", "Bo"}, 2)
	require.NoError(t, err)

	all := append(winners, remaining...)
	assert.ElementsMatch(t, []string{"Ann", "Ann", "Bo"}, all)
}

func TestDrawPreservesRemainingOrder(t *testing.T) {
	winners, remaining, err := Draw(fixedSource(1), []string{"a", "b", "c", "d"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "c"}, winners)
	assert.Equal(t, []string{"a", "d"}, remaining)
}

func TestDrawRejections(t *testing.T) {
	pool := []string{"a", "b", "c"}

	_, _, err := Draw(Seeded(1), pool, 0)
	assert.ErrorIs(t, err, ErrCountTooLow)

	_, _, err = Draw(Seeded(1), pool, -1)
	assert.ErrorIs(t, err, ErrInvalidCount)

	_, _, err = Draw(Seeded(1), pool, 5)
	require.ErrorIs(t, err, ErrInsufficientPool)

	var insufficient *InsufficientError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 3, insufficient.Available)
}

func TestDrawIsDeterministicForSeed(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e", "f"}

	first, _, err := Draw(Seeded(99), pool, 4)
	require.NoError(t, err)
	second, _, err := Draw(Seeded(99), pool, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDrawDistribution(t *testing.T) {
	rng := rand.New(rand.NewPCG(12345, 67890))
	pool := []string{"a", "b", "c", "d", "e"}
	counts := make(map[string]int)

	iterations := 10000
	for range iterations {
		winners, _, err := Draw(rng, pool, 2)
		require.NoError(t, err)
		for _, w := range winners {
			counts[w]++
		}
	}

	// Each name is a winner in 2 of 5 draws, roughly 4000 times.
	for _, name := range pool {
		assert.InDelta(t, 4000, counts[name], 400, "name %q", name)
	}
}

func TestRedraw(t *testing.T) {
	winner, remaining, err := Redraw(Seeded(5), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, "x", winner)
	assert.Empty(t, remaining)

	for range 3 {
		_, _, err = Redraw(Seeded(5), remaining)
		assert.ErrorIs(t, err, ErrPoolExhausted)
		assert.NotErrorIs(t, err, ErrInvalidCount)
	}
}

func TestPoolLoad(t *testing.T) {
	p := NewPool(Seeded(1))

	require.NoError(t, p.Load("Alice, Bob\nCarol"))
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, p.Names())
	assert.Equal(t, "Alice\nBob\nCarol", p.String())

	assert.ErrorIs(t, p.Load(" , \n"), ErrEmptyPool)
	assert.Equal(t, 3, p.Len(), "failed load must keep the previous pool")

	require.NoError(t, p.Load("Dan"))
	assert.Equal(t, []string{"Dan"}, p.Names())
}

func TestPoolDrawAndRedraw(t *testing.T) {
	p := NewPool(Seeded(11))
	require.NoError(t, p.Load("a,b,c,d,e"))

	_, err := p.Draw(6)
	require.ErrorIs(t, err, ErrInsufficientPool)
	assert.Equal(t, 5, p.Len())

	_, err = p.Draw(0)
	require.ErrorIs(t, err, ErrCountTooLow)
	assert.Equal(t, 5, p.Len())

	winners, err := p.Draw(3)
	require.NoError(t, err)
	assert.Len(t, winners, 3)
	assert.Equal(t, 2, p.Len())

	for _, w := range winners {
		assert.NotContains(t, p.Names(), w)
	}

	replacement, err := p.Redraw()
	require.NoError(t, err)
	assert.NotContains(t, winners, replacement)
	assert.NotContains(t, p.Names(), replacement)
	assert.Equal(t, 1, p.Len())

	_, err = p.Redraw()
	require.NoError(t, err)

	for range 3 {
		_, err = p.Redraw()
		assert.ErrorIs(t, err, ErrPoolExhausted)
	}
	assert.Equal(t, "", p.String())
}

func TestNewPoolDefaultsSource(t *testing.T) {
	p := NewPool(nil)
	require.NoError(t, p.Load("only"))

	winners, err := p.Draw(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, winners)
}

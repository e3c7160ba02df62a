/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package draw

import (
	"slices"
	"strconv"
	"strings"
)

// ParseNames splits raw input on newlines and commas, trims each entry and
// drops the empty ones. Duplicates are kept as distinct entries.
func ParseNames(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if name := strings.TrimSpace(f); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// ParseCount parses a requested winner count.
func ParseCount(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, ErrNonNumericCount
	}
	if n < 1 {
		return 0, ErrCountTooLow
	}

	return n, nil
}

// Draw picks count names from pool without replacement. Each pick is
// uniform over the names still remaining at that step. pool itself is
// never modified; remaining keeps the order of the names not drawn.
func Draw(src Source, pool []string, count int) (winners, remaining []string, err error) {
	if count < 1 {
		return nil, nil, ErrCountTooLow
	}
	if count > len(pool) {
		return nil, nil, &InsufficientError{Requested: count, Available: len(pool)}
	}

	remaining = slices.Clone(pool)
	winners = make([]string, 0, count)

	for range count {
		i := src.IntN(len(remaining))
		winners = append(winners, remaining[i])
		remaining = slices.Delete(remaining, i, i+1)
	}

	return winners, remaining, nil
}

// Redraw picks a single replacement name from pool.
func Redraw(src Source, pool []string) (string, []string, error) {
	if len(pool) == 0 {
		return "", pool, ErrPoolExhausted
	}

	winners, remaining, err := Draw(src, pool, 1)
	if err != nil {
		return "", pool, err
	}

	return winners[0], remaining, nil
}

// Pool is the live set of names still eligible to be drawn.
type Pool struct {
	src   Source
	names []string
}

// NewPool returns an empty pool drawing from src, or from the global
// generator when src is nil.
func NewPool(src Source) *Pool {
	if src == nil {
		src = globalSource{}
	}

	return &Pool{src: src}
}

// Load replaces the pool with the names parsed from raw. An input with no
// names is rejected and leaves the current pool as it was.
func (p *Pool) Load(raw string) error {
	names := ParseNames(raw)
	if len(names) == 0 {
		return ErrEmptyPool
	}

	p.names = names

	return nil
}

func (p *Pool) Draw(count int) ([]string, error) {
	winners, remaining, err := Draw(p.src, p.names, count)
	if err != nil {
		return nil, err
	}

	p.names = remaining

	return winners, nil
}

func (p *Pool) Redraw() (string, error) {
	winner, remaining, err := Redraw(p.src, p.names)
	if err != nil {
		return "", err
	}

	p.names = remaining

	return winner, nil
}

func (p *Pool) Len() int {
	return len(p.names)
}

// Names returns a copy of the remaining names.
func (p *Pool) Names() []string {
	return slices.Clone(p.names)
}

// String renders the pool as newline-joined text, one name per line.
func (p *Pool) String() string {
	return strings.Join(p.names, "\n")
}

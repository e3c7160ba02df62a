/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package draw

import (
	"slices"
	"sync"
)

// State is a step in the lifecycle of a draw session.
type State string

const (
	Idle         State = "idle"
	Validating   State = "validating"
	Drawing      State = "drawing"
	ResultsShown State = "results"
)

const (
	eventShuffle   = "shuffle"
	eventReject    = "reject"
	eventAccept    = "accept"
	eventResolve   = "resolve"
	eventReshuffle = "reshuffle"
	eventRedraw    = "redraw"
	eventReset     = "reset"
)

var transitions = map[State]map[string]State{
	Idle: {
		eventShuffle: Validating,
		eventReset:   Idle,
	},
	Validating: {
		eventReject: Idle,
		eventAccept: Drawing,
	},
	Drawing: {
		eventResolve: ResultsShown,
	},
	ResultsShown: {
		eventReshuffle: Drawing,
		eventRedraw:    ResultsShown,
		eventReset:     Idle,
	},
}

// Session owns the pool and the current winners for one draw session.
// Drawing is the busy state: new shuffles are refused until Resolve runs.
type Session struct {
	mu sync.Mutex

	pool    *Pool
	state   State
	pending int
	winners []string
}

func NewSession(src Source) *Session {
	return &Session{
		pool:  NewPool(src),
		state: Idle,
	}
}

// fireLocked assumes s.mu is already held.
func (s *Session) fireLocked(event string) error {
	to, ok := transitions[s.state][event]
	if !ok {
		return &TransitionError{From: s.state, Event: event}
	}

	s.state = to

	return nil
}

// Shuffle validates a fresh name list and winner count. On success the pool
// is replaced and the session enters Drawing with count pending.
func (s *Session) Shuffle(rawNames, countText string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Drawing {
		return 0, ErrBusy
	}

	if err := s.fireLocked(eventShuffle); err != nil {
		return 0, err
	}

	count, err := s.validateLocked(rawNames, countText)
	if err != nil {
		_ = s.fireLocked(eventReject)

		return 0, err
	}

	_ = s.fireLocked(eventAccept)
	s.pending = count
	s.winners = nil

	return count, nil
}

func (s *Session) validateLocked(rawNames, countText string) (int, error) {
	names := ParseNames(rawNames)
	if len(names) == 0 {
		return 0, ErrEmptyPool
	}

	count, err := ParseCount(countText)
	if err != nil {
		return 0, err
	}

	if count > len(names) {
		return 0, &InsufficientError{Requested: count, Available: len(names)}
	}

	// Load cannot fail here: names is non-empty.
	if err := s.pool.Load(rawNames); err != nil {
		return 0, err
	}

	return count, nil
}

// Reshuffle queues another draw against the remaining pool. A rejected
// reshuffle leaves the session showing its current results.
func (s *Session) Reshuffle(countText string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Drawing {
		return 0, ErrBusy
	}
	if s.state != ResultsShown {
		return 0, &TransitionError{From: s.state, Event: eventReshuffle}
	}

	if s.pool.Len() == 0 {
		return 0, ErrPoolExhausted
	}

	count, err := ParseCount(countText)
	if err != nil {
		return 0, err
	}

	if count > s.pool.Len() {
		return 0, &InsufficientError{Requested: count, Available: s.pool.Len()}
	}

	_ = s.fireLocked(eventReshuffle)
	s.pending = count
	s.winners = nil

	return count, nil
}

// Resolve performs the pending draw. This is the only point at which a
// shuffle or reshuffle consumes the pool.
func (s *Session) Resolve() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Drawing {
		return nil, &TransitionError{From: s.state, Event: eventResolve}
	}

	winners, err := s.pool.Draw(s.pending)
	s.pending = 0
	if err != nil {
		s.state = Idle

		return nil, err
	}

	_ = s.fireLocked(eventResolve)
	s.winners = winners

	return slices.Clone(winners), nil
}

// Redraw replaces the winner at slot with a fresh name from the pool. The
// replaced winner is dropped, not returned to the pool.
func (s *Session) Redraw(slot int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ResultsShown {
		return "", &TransitionError{From: s.state, Event: eventRedraw}
	}
	if slot < 0 || slot >= len(s.winners) {
		return "", ErrInvalidSlot
	}

	winner, err := s.pool.Redraw()
	if err != nil {
		return "", err
	}

	_ = s.fireLocked(eventRedraw)
	s.winners[slot] = winner

	return winner, nil
}

// Reset returns to Idle. The remaining pool is kept so its text can seed the
// next shuffle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fireLocked(eventReset); err != nil {
		return err
	}

	s.winners = nil

	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Winners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.winners)
}

func (s *Session) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Names()
}

func (s *Session) PoolText() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.String()
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pool.Len()
}

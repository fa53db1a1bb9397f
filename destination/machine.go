package destination

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNotEntering is returned when a validation is requested while one
	// is already running or the input has already been validated.
	ErrNotEntering = errors.New("destination is not being entered")

	// ErrNothingToConfirm is returned by Confirm outside of
	// StatusRequiresConfirmation.
	ErrNothingToConfirm = errors.New("destination does not require " +
		"confirmation")
)

// ResultParser parses raw input. *Parser implements it.
type ResultParser interface {
	Parse(ctx context.Context, raw string) *Result
}

// Validation is what a call to Machine.Validate produced.
type Validation struct {
	Result *Result

	// Stale is set if the input changed while the validation ran. The
	// result was then dropped and did not affect the state.
	Stale bool

	// State is the state after the result was applied.
	State State
}

// SelfPayment returns the self-payment the caller should route to the
// conversion flow, or nil.
func (v *Validation) SelfPayment() *SelfPayment {
	if v.Stale || v.Result.Outcome != OutcomeSelfPayment {
		return nil
	}

	return v.Result.SelfPayment
}

// Machine drives the destination state for one send flow. Validations run
// outside the lock and only the one matching the current generation is
// applied.
type Machine struct {
	parser   ResultParser
	contacts map[string]struct{}

	mu    sync.Mutex
	state State
}

// NewMachine returns a Machine in the entering state with empty input.
// Handles in contacts are paid without confirmation.
func NewMachine(parser ResultParser, contacts []string) *Machine {
	c := make(map[string]struct{}, len(contacts))
	for _, handle := range contacts {
		c[strings.ToLower(handle)] = struct{}{}
	}

	return &Machine{
		parser:   parser,
		contacts: c,
		state:    State{Status: StatusEntering},
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Dispatch applies an action and returns the new state.
func (m *Machine) Dispatch(a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = Reduce(m.state, a)

	return m.state
}

// SetInput records new input, dropping any earlier validation.
func (m *Machine) SetInput(raw string) State {
	return m.Dispatch(SetUnparsedDestination{Raw: raw})
}

// Validate parses the current input and applies the outcome. Only one
// validation per input is honored: calling Validate while not entering
// returns ErrNotEntering.
func (m *Machine) Validate(ctx context.Context) (*Validation, error) {
	m.mu.Lock()
	if m.state.Status != StatusEntering {
		m.mu.Unlock()
		return nil, ErrNotEntering
	}
	m.state = Reduce(m.state, SetValidating{Raw: m.state.Raw})
	raw, generation := m.state.Raw, m.state.Generation
	m.mu.Unlock()

	res := m.parser.Parse(ctx, raw)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.awaiting(raw, generation) {
		log.Debugf("Dropping stale validation of generation %d",
			generation)

		return &Validation{Result: res, Stale: true, State: m.state}, nil
	}

	m.state = Reduce(m.state, m.resultAction(res, generation))

	return &Validation{Result: res, State: m.state}, nil
}

// resultAction maps a parse result to the action that records it.
func (m *Machine) resultAction(res *Result, generation uint64) Action {
	switch res.Outcome {
	case OutcomeSelfPayment:
		// Paying oneself is a conversion between the user's wallets,
		// which the caller handles elsewhere. The input stays as is.
		return SetUnparsedDestination{Raw: res.Raw}

	case OutcomeInvalid:
		return SetInvalid{
			Raw:        res.Raw,
			Generation: generation,
			Rejection:  res.Rejection,
		}
	}

	if dest, ok := res.Destination.(Intraledger); ok {
		if _, known := m.contacts[dest.Handle]; !known {
			return SetRequiresConfirmation{
				Raw:          res.Raw,
				Generation:   generation,
				Destination:  dest,
				Confirmation: NewUsername{Handle: dest.Handle},
			}
		}
	}

	return SetValid{
		Raw:         res.Raw,
		Generation:  generation,
		Destination: res.Destination,
	}
}

// Confirm accepts the destination awaiting confirmation.
func (m *Machine) Confirm() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status != StatusRequiresConfirmation {
		return m.state, ErrNothingToConfirm
	}

	m.state = Reduce(m.state, SetValid{
		Raw:         m.state.Raw,
		Generation:  m.state.Generation,
		Destination: m.state.Destination,
	})

	return m.state, nil
}

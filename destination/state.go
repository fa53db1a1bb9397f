package destination

// Status is the phase of destination entry.
type Status string

const (
	StatusEntering             Status = "entering"
	StatusValidating           Status = "validating"
	StatusInvalid              Status = "invalid"
	StatusValid                Status = "valid"
	StatusRequiresConfirmation Status = "requires-confirmation"
)

// Confirmation is what the user must confirm before a destination is used.
type Confirmation interface {
	isConfirmation()
}

// NewUsername asks the user to confirm paying a handle that is not among
// their contacts.
type NewUsername struct {
	Handle string
}

func (NewUsername) isConfirmation() {}

// State is the state of destination entry. Raw is always the input the
// state belongs to.
type State struct {
	Status Status
	Raw    string

	// Generation identifies the validation attempt the state belongs
	// to. It is bumped every time a validation starts, and results are
	// only honored for the current generation.
	Generation uint64

	// Destination is set in StatusValid and StatusRequiresConfirmation.
	Destination Destination

	// Rejection is set in StatusInvalid.
	Rejection *Rejection

	// Confirmation is set in StatusRequiresConfirmation, and is kept once
	// the confirmed destination becomes valid.
	Confirmation Confirmation
}

// Action is an event fed to Reduce.
type Action interface {
	isAction()
}

// SetUnparsedDestination records new input. It is accepted in every state.
type SetUnparsedDestination struct {
	Raw string
}

// SetValidating starts a validation of Raw.
type SetValidating struct {
	Raw string
}

// SetInvalid reports that the validation of generation Generation failed.
type SetInvalid struct {
	Raw        string
	Generation uint64
	Rejection  *Rejection
}

// SetRequiresConfirmation reports a destination that needs confirmation.
type SetRequiresConfirmation struct {
	Raw          string
	Generation   uint64
	Destination  Destination
	Confirmation Confirmation
}

// SetValid reports a usable destination, or the user's confirmation of one.
type SetValid struct {
	Raw         string
	Generation  uint64
	Destination Destination
}

func (SetUnparsedDestination) isAction()  {}
func (SetValidating) isAction()           {}
func (SetInvalid) isAction()              {}
func (SetRequiresConfirmation) isAction() {}
func (SetValid) isAction()                {}

// Reduce returns the state that follows s after a. Actions that are not
// allowed in s, or results for a validation that is no longer current,
// leave s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetUnparsedDestination:
		return State{
			Status:     StatusEntering,
			Raw:        a.Raw,
			Generation: s.Generation,
		}

	case SetValidating:
		if s.Status != StatusEntering || a.Raw != s.Raw {
			return s
		}

		return State{
			Status:     StatusValidating,
			Raw:        a.Raw,
			Generation: s.Generation + 1,
		}

	case SetInvalid:
		if !s.awaiting(a.Raw, a.Generation) {
			return s
		}

		return State{
			Status:     StatusInvalid,
			Raw:        s.Raw,
			Generation: s.Generation,
			Rejection:  a.Rejection,
		}

	case SetRequiresConfirmation:
		if !s.awaiting(a.Raw, a.Generation) {
			return s
		}

		return State{
			Status:       StatusRequiresConfirmation,
			Raw:          s.Raw,
			Generation:   s.Generation,
			Destination:  a.Destination,
			Confirmation: a.Confirmation,
		}

	case SetValid:
		if a.Raw != s.Raw || a.Generation != s.Generation {
			return s
		}

		switch s.Status {
		case StatusValidating:
			return State{
				Status:      StatusValid,
				Raw:         s.Raw,
				Generation:  s.Generation,
				Destination: a.Destination,
			}

		case StatusRequiresConfirmation:
			return State{
				Status:       StatusValid,
				Raw:          s.Raw,
				Generation:   s.Generation,
				Destination:  s.Destination,
				Confirmation: s.Confirmation,
			}
		}
	}

	return s
}

// awaiting returns true if s is waiting for the result of the given
// validation.
func (s State) awaiting(raw string, generation uint64) bool {
	return s.Status == StatusValidating && s.Raw == raw &&
		s.Generation == generation
}

package destination

import (
	"fmt"

	"github.com/ellemouton/sendpay/money"
)

// InvalidReason says why an input could not be used as a destination.
type InvalidReason string

const (
	ReasonUnknownFormat    InvalidReason = "UnknownFormat"
	ReasonWrongNetwork     InvalidReason = "WrongNetwork"
	ReasonSelfPayment      InvalidReason = "SelfPayment"
	ReasonUnknownWallet    InvalidReason = "UnknownWallet"
	ReasonLnurlUnreachable InvalidReason = "LnurlUnreachable"
	ReasonInvoiceExpired   InvalidReason = "InvoiceExpired"
)

// Rejection is a parse failure. It is shown next to the input rather than
// raised.
type Rejection struct {
	Reason InvalidReason

	// Raw is the input that was rejected.
	Raw string

	// Err is the underlying cause, if any.
	Err error
}

func (r *Rejection) Error() string {
	if r.Err == nil {
		return fmt.Sprintf("invalid destination %q: %s", r.Raw, r.Reason)
	}

	return fmt.Sprintf("invalid destination %q: %s: %v", r.Raw, r.Reason,
		r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// SelfPayment is an input that resolved to one of the user's own wallets.
// It is routed to the conversion flow instead of being paid.
type SelfPayment struct {
	Handle   string
	WalletID money.WalletID
}

// Outcome is the kind of a parse Result.
type Outcome uint8

const (
	OutcomeInvalid Outcome = iota
	OutcomeValid
	OutcomeSelfPayment
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeSelfPayment:
		return "self-payment"
	default:
		return "invalid"
	}
}

// Result is the outcome of parsing one input. Exactly one of Destination,
// SelfPayment and Rejection is set, as named by Outcome.
type Result struct {
	Raw     string
	Outcome Outcome

	Destination Destination
	SelfPayment *SelfPayment
	Rejection   *Rejection
}

// Reason returns the reason the result can not be paid as is, or the empty
// string for a valid result.
func (r *Result) Reason() InvalidReason {
	switch r.Outcome {
	case OutcomeSelfPayment:
		return ReasonSelfPayment
	case OutcomeInvalid:
		return r.Rejection.Reason
	default:
		return ""
	}
}

func valid(raw string, dest Destination) *Result {
	return &Result{Raw: raw, Outcome: OutcomeValid, Destination: dest}
}

func invalid(raw string, reason InvalidReason, err error) *Result {
	return &Result{
		Raw:     raw,
		Outcome: OutcomeInvalid,
		Rejection: &Rejection{
			Reason: reason,
			Raw:    raw,
			Err:    err,
		},
	}
}

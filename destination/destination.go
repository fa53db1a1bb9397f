// Package destination turns what a user typed, pasted or scanned into a
// payment destination, and tracks the validation of that input.
package destination

import (
	"time"

	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
)

// PaymentType is the rail a destination is paid over.
type PaymentType string

const (
	PaymentTypeIntraledger PaymentType = "intraledger"
	PaymentTypeLightning   PaymentType = "lightning"
	PaymentTypeLnurl       PaymentType = "lnurl"
	PaymentTypeOnchain     PaymentType = "onchain"
	PaymentTypePayCode     PaymentType = "paycode"
)

// Destination is a resolved payment destination. The set of
// implementations is closed: Intraledger, Lightning, LnurlPay, OnChain and
// PayCode.
type Destination interface {
	// PaymentType returns the rail of the destination. It never changes
	// for a given value.
	PaymentType() PaymentType

	isDestination()
}

// Intraledger is a transfer to another account on the same ledger.
type Intraledger struct {
	// Handle is the lower cased username of the recipient.
	Handle string

	// WalletID is the recipient's default wallet.
	WalletID money.WalletID

	// IsSelfPayment is always false for a valid destination. Payments
	// to the user's own wallets are reported as a SelfPayment outcome.
	IsSelfPayment bool
}

// Lightning is a BOLT11 invoice.
type Lightning struct {
	PaymentRequest string

	// Amount is set if the invoice fixes the amount.
	Amount *money.Amount

	Memo string

	ExpiresAt time.Time
}

// LnurlPay is an LNURL-pay code or lightning address along with the terms
// its service advertised.
type LnurlPay struct {
	// Lnurl is the code as entered: a lightning address, a bech32 LNURL
	// or a URL.
	Lnurl string

	// URL is where the terms were fetched from.
	URL string

	Params lnurl.PayParams
}

// OnChain is a bitcoin address, possibly from a BIP21 URI.
type OnChain struct {
	Address string

	// Amount is set if the URI requested one.
	Amount *money.Amount

	Memo string
}

// PayCode is a handle taken from a scanned pay code. It is a lower
// capability variant of Intraledger that is not checked for
// self-payment.
type PayCode struct {
	Handle   string
	WalletID money.WalletID
}

func (Intraledger) PaymentType() PaymentType { return PaymentTypeIntraledger }
func (Lightning) PaymentType() PaymentType   { return PaymentTypeLightning }
func (LnurlPay) PaymentType() PaymentType    { return PaymentTypeLnurl }
func (OnChain) PaymentType() PaymentType     { return PaymentTypeOnchain }
func (PayCode) PaymentType() PaymentType     { return PaymentTypePayCode }

func (Intraledger) isDestination() {}
func (Lightning) isDestination()   {}
func (LnurlPay) isDestination()    {}
func (OnChain) isDestination()     {}
func (PayCode) isDestination()     {}

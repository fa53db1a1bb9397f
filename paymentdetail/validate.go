package paymentdetail

import (
	"time"

	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/money"
)

// AmountReason is why an amount cannot be sent.
type AmountReason string

const (
	ReasonExceedsBalance          AmountReason = "ExceedsBalance"
	ReasonExceedsWithdrawalLimit  AmountReason = "ExceedsWithdrawalLimit"
	ReasonExceedsIntraledgerLimit AmountReason = "ExceedsIntraledgerLimit"
	ReasonBelowLnurlMin           AmountReason = "BelowLnurlMin"
	ReasonAboveLnurlMax           AmountReason = "AboveLnurlMax"
)

// AmountStatus is the result of Validate. Reason is empty for a valid
// amount.
type AmountStatus struct {
	Valid  bool
	Reason AmountReason
}

// Balances are the balances of the user's wallets.
type Balances struct {
	// BTC is in satoshis.
	BTC money.Amount

	// USD is in cents.
	USD money.Amount
}

// Limits is a snapshot of a rolling send limit. Amounts are in USD cents.
type Limits struct {
	TotalLimit     money.Amount
	RemainingLimit money.Amount
	Interval       time.Duration
}

// remaining returns the remaining limit, in cents if no currency was given.
func (l *Limits) remaining() money.Amount {
	return withCurrency(l.RemainingLimit, money.USD)
}

// Validate checks the detail's amount against the LNURL service's bounds,
// the sending wallet's balance and the limit of the rail. The first failing
// check decides the reason. A nil limit has not been loaded and is not
// checked.
func Validate(d PaymentDetail, balances Balances, intraledger,
	withdrawal *Limits) AmountStatus {

	if d.PaymentType == destination.PaymentTypeLnurl &&
		d.LnurlParams != nil {

		amt := d.btcAmount()
		msat, err := amt.MilliSats()
		switch {
		case err != nil:
			log.Errorf("Could not get lnurl amount: %v", err)
			return AmountStatus{Reason: ReasonBelowLnurlMin}

		case msat < d.LnurlParams.Min:
			return AmountStatus{Reason: ReasonBelowLnurlMin}

		case msat > d.LnurlParams.Max:
			return AmountStatus{Reason: ReasonAboveLnurlMax}
		}
	}

	settlement := d.SettlementAmount
	balance := withCurrency(balances.BTC, money.BTC)
	if d.SendingWallet.Currency == money.USD {
		balance = withCurrency(balances.USD, money.USD)
	}
	if exceeds(d, settlement, balance) {
		return AmountStatus{Reason: ReasonExceedsBalance}
	}

	switch d.PaymentType {
	case destination.PaymentTypeIntraledger,
		destination.PaymentTypePayCode:

		if intraledger != nil &&
			exceeds(d, settlement, intraledger.remaining()) {

			return AmountStatus{
				Reason: ReasonExceedsIntraledgerLimit,
			}
		}

	default:
		if withdrawal != nil &&
			exceeds(d, settlement, withdrawal.remaining()) {

			return AmountStatus{
				Reason: ReasonExceedsWithdrawalLimit,
			}
		}
	}

	return AmountStatus{Valid: true}
}

// btcAmount returns the amount of the payment in satoshis.
func (d PaymentDetail) btcAmount() money.Amount {
	if fixed := d.fixedAmount(); fixed != nil {
		return *fixed
	}

	return d.Convert(d.UnitOfAccountAmount, money.BTC)
}

// exceeds returns true if amt is more than limit, converting amt into the
// currency of limit first.
func exceeds(d PaymentDetail, amt, limit money.Amount) bool {
	if amt.Currency != limit.Currency {
		amt = d.Convert(amt, limit.Currency)
	}

	return amt.Value > limit.Value
}

// withCurrency tags an amount that was given without a currency.
func withCurrency(a money.Amount, c money.Currency) money.Amount {
	if a.Currency == "" {
		a.Currency = c
	}

	return a
}

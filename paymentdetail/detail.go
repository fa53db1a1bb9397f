// Package paymentdetail holds the per-rail details of a payment while the
// user picks the amount, the sending wallet and a memo.
package paymentdetail

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
)

var (
	// ErrAmountNotSettable is returned by SetAmount on a detail whose
	// amount is fixed by the destination.
	ErrAmountNotSettable = errors.New("amount cannot be set")

	// ErrCannotSendMax is returned when sending the whole balance is
	// requested on a rail that does not support it.
	ErrCannotSendMax = errors.New("rail does not support sending max")

	// ErrMemoNotSettable is returned by SetMemo on a detail that does not
	// accept a memo.
	ErrMemoNotSettable = errors.New("memo cannot be set")

	// ErrMemoTooLong is returned when a comment exceeds the length the
	// LNURL service accepts.
	ErrMemoTooLong = errors.New("memo is too long")

	// ErrNotLnurl is returned when an LNURL only operation is applied to
	// another rail.
	ErrNotLnurl = errors.New("not an lnurl payment")
)

// Invoice is the invoice an LNURL service returned for the chosen amount.
type Invoice struct {
	PaymentRequest string

	// Amount is the BTC amount the invoice was requested and verified
	// for.
	Amount money.Amount
}

// PaymentDetail describes a payment to one destination from one of the
// user's wallets. Values are never modified in place: every setter returns
// an updated copy.
type PaymentDetail struct {
	Destination destination.Destination

	// PaymentType is the rail of Destination.
	PaymentType destination.PaymentType

	SendingWallet money.WalletDescriptor

	// Convert converts between BTC, USD and the display currency at the
	// current prices.
	Convert money.ConvertFunc

	CanSetAmount bool
	CanSendMax   bool
	IsSendingMax bool
	CanSetMemo   bool

	// UnitOfAccountAmount is the amount in the currency the user is
	// entering it in.
	UnitOfAccountAmount money.Amount

	// SettlementAmount is what is debited from the sending wallet. It is
	// always in the sending wallet's currency.
	SettlementAmount money.Amount

	Memo string

	// LnurlParams is set for the lnurl rail.
	LnurlParams *lnurl.PayParams

	// Invoice is set for the lnurl rail once an invoice has been
	// resolved.
	Invoice *Invoice
}

// Create builds the payment detail for a valid destination paid from
// sendingWallet.
func Create(dest destination.Destination,
	sendingWallet money.WalletDescriptor,
	convert money.ConvertFunc) (PaymentDetail, error) {

	if dest == nil {
		return PaymentDetail{}, errors.New("destination is required")
	}
	if convert == nil {
		return PaymentDetail{}, errors.New("convert function is required")
	}
	if err := sendingWallet.Validate(); err != nil {
		return PaymentDetail{}, fmt.Errorf("invalid sending wallet: %w",
			err)
	}

	d := PaymentDetail{
		Destination:         dest,
		PaymentType:         dest.PaymentType(),
		SendingWallet:       sendingWallet,
		Convert:             convert,
		UnitOfAccountAmount: money.Zero(money.DisplayCurrency),
		SettlementAmount:    money.Zero(sendingWallet.Currency),
	}

	switch dest := dest.(type) {
	case destination.Intraledger, destination.PayCode:
		d.CanSetAmount = true
		d.CanSendMax = true
		d.CanSetMemo = true

	case destination.Lightning:
		d.CanSetAmount = dest.Amount == nil
		d.Memo = dest.Memo

		// An invoice's own description cannot be replaced.
		d.CanSetMemo = dest.Memo == ""

	case destination.OnChain:
		d.CanSetAmount = dest.Amount == nil
		d.CanSendMax = dest.Amount == nil
		d.CanSetMemo = true
		d.Memo = dest.Memo

	case destination.LnurlPay:
		params := dest.Params
		d.LnurlParams = &params
		d.CanSetAmount = true
		d.CanSetMemo = params.CommentsAllowed()

	default:
		return PaymentDetail{}, fmt.Errorf("unknown destination %T",
			dest)
	}

	d.derive()

	return d, nil
}

// fixedAmount returns the BTC amount the destination or the resolved
// invoice fixes, or nil if the user picks the amount.
func (d PaymentDetail) fixedAmount() *money.Amount {
	if d.Invoice != nil {
		return &d.Invoice.Amount
	}

	switch dest := d.Destination.(type) {
	case destination.Lightning:
		return dest.Amount
	case destination.OnChain:
		return dest.Amount
	}

	return nil
}

// derive recomputes the amounts that follow from the fixed amount, the
// sending wallet and the prices.
func (d *PaymentDetail) derive() {
	fixed := d.fixedAmount()

	switch {
	// A resolved LNURL invoice keeps the amount as the user entered it.
	case fixed != nil && d.Invoice != nil:
		d.SettlementAmount = d.Convert(
			*fixed, d.SendingWallet.Currency,
		)

	case fixed != nil:
		d.UnitOfAccountAmount = d.Convert(
			*fixed, d.SendingWallet.Currency,
		)
		d.SettlementAmount = d.UnitOfAccountAmount

	default:
		d.SettlementAmount = d.Convert(
			d.UnitOfAccountAmount, d.SendingWallet.Currency,
		)
	}
}

// SetAmount sets the amount the user entered, in a wallet currency or the
// display currency. sendMax marks the amount as the whole balance of the
// sending wallet.
func (d PaymentDetail) SetAmount(amount money.Amount,
	sendMax bool) (PaymentDetail, error) {

	if !d.CanSetAmount {
		return d, ErrAmountNotSettable
	}
	if sendMax && !d.CanSendMax {
		return d, ErrCannotSendMax
	}
	if amount.Value < 0 {
		return d, money.ErrNegativeAmount
	}
	if !amount.Currency.IsWallet() &&
		amount.Currency != money.DisplayCurrency {

		return d, fmt.Errorf("unknown currency %q", amount.Currency)
	}

	d.UnitOfAccountAmount = amount
	d.IsSendingMax = sendMax
	d.derive()

	return d, nil
}

// SetSendingWalletDescriptor switches the wallet the payment is sent from.
// An amount entered in the previous wallet's currency is converted into
// the new one's. Display currency amounts are kept as entered.
func (d PaymentDetail) SetSendingWalletDescriptor(
	wallet money.WalletDescriptor) (PaymentDetail, error) {

	if err := wallet.Validate(); err != nil {
		return d, fmt.Errorf("invalid sending wallet: %w", err)
	}

	unit := d.UnitOfAccountAmount
	if unit.Currency.IsWallet() {
		unit = d.Convert(unit, wallet.Currency)
	}

	d.SendingWallet = wallet
	d.UnitOfAccountAmount = unit

	// The max of one wallet is not the max of the other.
	d.IsSendingMax = false
	d.derive()

	return d, nil
}

// SetConvertMoneyAmount replaces the conversion function, typically after a
// price update, and recomputes the settlement amount.
func (d PaymentDetail) SetConvertMoneyAmount(
	convert money.ConvertFunc) (PaymentDetail, error) {

	if convert == nil {
		return d, errors.New("convert function is required")
	}

	d.Convert = convert
	d.derive()

	return d, nil
}

// SetMemo sets the memo of the payment. For LNURL payments the memo is
// sent to the service as a comment and must fit its length limit.
func (d PaymentDetail) SetMemo(memo string) (PaymentDetail, error) {
	if !d.CanSetMemo {
		return d, ErrMemoNotSettable
	}

	if d.LnurlParams != nil {
		n := utf8.RuneCountInString(memo)
		if n > d.LnurlParams.CommentAllowed {
			return d, fmt.Errorf("%w: %d > %d characters",
				ErrMemoTooLong, n, d.LnurlParams.CommentAllowed)
		}

	}

	d.Memo = memo

	return d, nil
}

// SetInvoice attaches the invoice resolved for an LNURL payment. The
// returned detail is payable and its amount is fixed.
func (d PaymentDetail) SetInvoice(inv Invoice) (PaymentDetail, error) {
	if d.PaymentType != destination.PaymentTypeLnurl {
		return d, ErrNotLnurl
	}
	if inv.PaymentRequest == "" {
		return d, errors.New("payment request is required")
	}
	if inv.Amount.Currency != money.BTC {
		return d, fmt.Errorf("%w: invoice amount in %s",
			money.ErrCurrencyMismatch, inv.Amount.Currency)
	}

	d.Invoice = &inv
	d.CanSetAmount = false
	d.CanSetMemo = false
	d.derive()

	return d, nil
}

// Payment is everything needed to send the payment. It is handed to the
// component that executes payments.
type Payment struct {
	PaymentType destination.PaymentType

	SendingWallet money.WalletDescriptor

	// Amount is debited from the sending wallet, in its currency. For
	// invoices that fix their own amount it is the converted invoice
	// amount.
	Amount money.Amount

	// SendMax asks for the whole balance of the sending wallet to be
	// sent, less fees.
	SendMax bool

	// RecipientWalletID is set for intraledger and pay code payments.
	RecipientWalletID money.WalletID

	// PaymentRequest is set for lightning and lnurl payments.
	PaymentRequest string

	// Address is set for on-chain payments.
	Address string

	Memo string
}

// Payment returns the payment to execute, or nil if the detail is not
// payable yet: no amount was entered, or an LNURL payment has no invoice.
func (d PaymentDetail) Payment() *Payment {
	p := &Payment{
		PaymentType:   d.PaymentType,
		SendingWallet: d.SendingWallet,
		Amount:        d.SettlementAmount,
		SendMax:       d.IsSendingMax,
		Memo:          d.Memo,
	}

	hasAmount := !d.SettlementAmount.IsZero() || d.IsSendingMax

	switch dest := d.Destination.(type) {
	case destination.Intraledger:
		p.RecipientWalletID = dest.WalletID

	case destination.PayCode:
		p.RecipientWalletID = dest.WalletID

	case destination.Lightning:
		p.PaymentRequest = dest.PaymentRequest

		if dest.Amount != nil {
			return p
		}

	case destination.OnChain:
		p.Address = dest.Address

	case destination.LnurlPay:
		if d.Invoice == nil {
			return nil
		}
		p.PaymentRequest = d.Invoice.PaymentRequest

		return p

	default:
		return nil
	}

	if !hasAmount {
		return nil
	}

	return p
}

package paymentdetail

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ellemouton/sendpay/chain"
	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/invoice"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
	"github.com/lightningnetwork/lnd/lnwire"
)

// DefaultResolveTimeout bounds the invoice request if no timeout is
// configured.
const DefaultResolveTimeout = 30 * time.Second

// ResolveReason is why an LNURL payment could not be resolved into an
// invoice.
type ResolveReason string

const (
	// ReasonLnurlUnreachable means the service could not be reached, timed
	// out or refused the request.
	ReasonLnurlUnreachable ResolveReason = "LnurlUnreachable"

	// ReasonLnurlInvoiceIncorrectAmount means the invoice is not for
	// exactly the requested amount.
	ReasonLnurlInvoiceIncorrectAmount ResolveReason = "LnurlInvoiceIncorrectAmount"

	// ReasonLnurlInvoiceIncorrectDescription means the invoice does not
	// commit to the service's metadata.
	ReasonLnurlInvoiceIncorrectDescription ResolveReason = "" +
		"LnurlInvoiceIncorrectDescription"

	// ReasonLnurlInvoiceInvalid means the invoice could not be decoded or
	// is for another network.
	ReasonLnurlInvoiceInvalid ResolveReason = "LnurlInvoiceInvalid"
)

// ResolveError is returned by Resolve when the service did not produce a
// usable invoice. The user may retry or change the amount.
type ResolveError struct {
	Reason ResolveReason
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}

	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// InvoiceRequester requests an invoice from an LNURL-pay service.
// *lnurl.Client implements it.
type InvoiceRequester interface {
	RequestInvoice(ctx context.Context, params *lnurl.PayParams,
		amt lnwire.MilliSatoshi, comment string) (string, error)
}

// ResolverConfig holds the collaborators of a Resolver.
type ResolverConfig struct {
	Lnurl InvoiceRequester

	// Invoices decodes the returned invoice. It defaults to the zpay32
	// decoder.
	Invoices invoice.Decoder

	Network chain.Network

	// Timeout bounds each invoice request. It defaults to
	// DefaultResolveTimeout.
	Timeout time.Duration
}

// Resolver turns LNURL payment details into payable ones.
type Resolver struct {
	cfg *ResolverConfig
}

// NewResolver returns a Resolver. cfg.Lnurl is required.
func NewResolver(cfg *ResolverConfig) (*Resolver, error) {
	if cfg.Lnurl == nil {
		return nil, errors.New("an invoice requester is required")
	}

	c := *cfg
	if c.Invoices == nil {
		c.Invoices = &invoice.ZPayDecoder{}
	}
	if c.Network == "" {
		c.Network = chain.Mainnet
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultResolveTimeout
	}

	return &Resolver{cfg: &c}, nil
}

// Resolve requests an invoice for the detail's amount and checks that the
// service returned what was asked for. On success the returned detail has
// the invoice attached and is payable. d itself is left as is.
func (r *Resolver) Resolve(ctx context.Context,
	d PaymentDetail) (PaymentDetail, error) {

	if d.PaymentType != destination.PaymentTypeLnurl ||
		d.LnurlParams == nil {

		return d, ErrNotLnurl
	}

	amt := d.btcAmount()
	msat, err := amt.MilliSats()
	if err != nil {
		return d, err
	}
	if msat == 0 {
		return d, errors.New("amount is not set")
	}

	comment := ""
	if d.LnurlParams.CommentsAllowed() {
		comment = d.Memo
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	pr, err := r.cfg.Lnurl.RequestInvoice(
		ctx, d.LnurlParams, msat, comment,
	)
	if err != nil {
		return d, &ResolveError{
			Reason: ReasonLnurlUnreachable,
			Err:    err,
		}
	}

	decoded, err := r.cfg.Invoices.Decode(pr, r.cfg.Network)
	if err != nil {
		return d, &ResolveError{
			Reason: ReasonLnurlInvoiceInvalid,
			Err:    err,
		}
	}

	if decoded.Amount == nil || *decoded.Amount != msat {
		got := "no amount"
		if decoded.Amount != nil {
			got = decoded.Amount.String()
		}

		log.Warnf("LNURL service returned an invoice for %s, wanted %v",
			got, msat)

		return d, &ResolveError{
			Reason: ReasonLnurlInvoiceIncorrectAmount,
			Err: fmt.Errorf("invoice is for %s, requested %v", got,
				msat),
		}
	}

	if decoded.DescriptionHash == nil ||
		*decoded.DescriptionHash != d.LnurlParams.MetadataHash {

		log.Warnf("LNURL service returned an invoice that does not " +
			"commit to its metadata")

		return d, &ResolveError{
			Reason: ReasonLnurlInvoiceIncorrectDescription,
			Err: errors.New("description hash does not match " +
				"metadata"),
		}
	}

	log.Debugf("Resolved lnurl invoice for %v", msat)

	return d.SetInvoice(Invoice{
		PaymentRequest: decoded.PaymentRequest,
		Amount:         money.Sats(int64(msat.ToSatoshis())),
	})
}

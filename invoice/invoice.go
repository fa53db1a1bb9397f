// Package invoice decodes BOLT11 payment requests for the send flow.
package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ellemouton/sendpay/chain"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
)

const lightningScheme = "lightning:"

var (
	// ErrNotInvoice is returned for strings that do not carry a BOLT11
	// human readable part.
	ErrNotInvoice = errors.New("not a lightning invoice")

	// ErrWrongNetwork is returned when the invoice prefix names a network
	// other than the active one.
	ErrWrongNetwork = errors.New("invoice is for a different network")
)

// hrpNetworks maps invoice prefixes to the networks they may belong to.
// Longer prefixes come first so that lnbcrt is not mistaken for lnbc.
var hrpNetworks = []struct {
	prefix   string
	networks []chain.Network
}{
	{"lnbcrt", []chain.Network{chain.Regtest}},
	{"lnbc", []chain.Network{chain.Mainnet}},
	{"lntbs", []chain.Network{chain.Signet}},
	{"lntb", []chain.Network{chain.Testnet, chain.Signet}},
}

// Decoded is the subset of a BOLT11 invoice the send flow needs.
type Decoded struct {
	// PaymentRequest is the invoice string without any URI scheme.
	PaymentRequest string

	// Amount is nil for invoices that let the payer choose the amount.
	Amount *lnwire.MilliSatoshi

	Description     string
	DescriptionHash *[32]byte
	PaymentHash     *[32]byte

	Timestamp time.Time
	Expiry    time.Duration
}

// ExpiresAt returns the time after which the invoice can no longer be paid.
func (d *Decoded) ExpiresAt() time.Time {
	return d.Timestamp.Add(d.Expiry)
}

// Decoder decodes an invoice for the given network.
type Decoder interface {
	Decode(raw string, net chain.Network) (*Decoded, error)
}

// StripScheme removes a leading "lightning:" URI scheme.
func StripScheme(raw string) string {
	if strings.HasPrefix(strings.ToLower(raw), lightningScheme) {
		return raw[len(lightningScheme):]
	}

	return raw
}

// Networks returns the networks an invoice string's prefix allows, or
// ErrNotInvoice if it has no known invoice prefix.
func Networks(raw string) ([]chain.Network, error) {
	lower := strings.ToLower(StripScheme(raw))
	for _, h := range hrpNetworks {
		if strings.HasPrefix(lower, h.prefix) {
			return h.networks, nil
		}
	}

	return nil, ErrNotInvoice
}

// ZPayDecoder decodes invoices with lnd's zpay32 package.
type ZPayDecoder struct{}

// A compile time check to ensure ZPayDecoder implements Decoder.
var _ Decoder = (*ZPayDecoder)(nil)

// Decode checks that the invoice belongs to net and decodes it.
//
// NOTE: this is part of the Decoder interface.
func (z *ZPayDecoder) Decode(raw string, net chain.Network) (*Decoded,
	error) {

	pr := StripScheme(raw)

	networks, err := Networks(pr)
	if err != nil {
		return nil, err
	}

	// zpay32 only compares the segwit prefix, which would accept a
	// regtest invoice on mainnet, so the network is matched here first.
	var onNetwork bool
	for _, n := range networks {
		if n == net {
			onNetwork = true
			break
		}
	}
	if !onNetwork {
		return nil, fmt.Errorf("%w: %s invoice on %s", ErrWrongNetwork,
			networks[0], net)
	}

	inv, err := zpay32.Decode(pr, net.Params())
	if err != nil {
		return nil, fmt.Errorf("could not decode invoice: %w", err)
	}

	decoded := &Decoded{
		PaymentRequest:  pr,
		Amount:          inv.MilliSat,
		DescriptionHash: inv.DescriptionHash,
		PaymentHash:     inv.PaymentHash,
		Timestamp:       inv.Timestamp,
		Expiry:          inv.Expiry(),
	}
	if inv.Description != nil {
		decoded.Description = *inv.Description
	}

	log.Tracef("Decoded %s invoice expiring at %v", net,
		decoded.ExpiresAt())

	return decoded, nil
}

// Package invoicetest creates signed BOLT11 invoices for tests.
package invoicetest

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ellemouton/sendpay/chain"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/stretchr/testify/require"
)

// Options describe the invoice to create.
type Options struct {
	Network chain.Network

	// Amount of zero creates an amountless invoice.
	Amount lnwire.MilliSatoshi

	// Description is used when DescriptionHash is nil. It defaults to
	// "test invoice".
	Description     string
	DescriptionHash *[32]byte

	Timestamp time.Time
	Expiry    time.Duration
}

// New returns a signed invoice string.
func New(t *testing.T, opts Options) string {
	t.Helper()

	pr, err := encode(opts)
	require.NoError(t, err)

	return pr
}

func encode(opts Options) (string, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return "", err
	}

	var preimage [32]byte
	if _, err := rand.Read(preimage[:]); err != nil {
		return "", err
	}
	hash := sha256.Sum256(preimage[:])

	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}

	var options []func(*zpay32.Invoice)
	if opts.Amount != 0 {
		options = append(options, zpay32.Amount(opts.Amount))
	}
	if opts.DescriptionHash != nil {
		options = append(
			options, zpay32.DescriptionHash(*opts.DescriptionHash),
		)
	} else {
		desc := opts.Description
		if desc == "" {
			desc = "test invoice"
		}
		options = append(options, zpay32.Description(desc))
	}
	if opts.Expiry != 0 {
		options = append(options, zpay32.Expiry(opts.Expiry))
	}

	inv, err := zpay32.NewInvoice(
		opts.Network.Params(), hash, opts.Timestamp, options...,
	)
	if err != nil {
		return "", err
	}

	return inv.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return btcec.SignCompact(
				btcec.S256(), key, chainhash.HashB(msg), true,
			)
		},
	})
}

// Creator creates invoices the way lnd's AddInvoice does, without a node.
type Creator struct {
	Network chain.Network

	// AmountOverride, if set, replaces the requested amount. It lets
	// tests play a service that returns a wrong invoice.
	AmountOverride lnwire.MilliSatoshi

	// HashOverride, if set, replaces the requested description hash.
	HashOverride *[32]byte
}

// AddInvoice creates an invoice for the given data.
func (c *Creator) AddInvoice(_ context.Context,
	in *invoicesrpc.AddInvoiceData) (lntypes.Hash, string, error) {

	opts := Options{
		Network:     c.Network,
		Amount:      in.Value,
		Description: in.Memo,
	}
	if len(in.DescriptionHash) == 32 {
		var h [32]byte
		copy(h[:], in.DescriptionHash)
		opts.DescriptionHash = &h
	}
	if c.AmountOverride != 0 {
		opts.Amount = c.AmountOverride
	}
	if c.HashOverride != nil {
		opts.DescriptionHash = c.HashOverride
	}

	pr, err := encode(opts)
	if err != nil {
		return lntypes.Hash{}, "", err
	}

	return lntypes.Hash{}, pr, nil
}

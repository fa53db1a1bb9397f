package chain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/ellemouton/sendpay/money"
	"github.com/shopspring/decimal"
)

const bip21Scheme = "bitcoin:"

var (
	// ErrNotAddress is returned when a string is not a bitcoin address
	// on any known network.
	ErrNotAddress = errors.New("not a bitcoin address")

	// ErrWrongNetwork is returned when a string is a valid address, but
	// for a network other than the active one.
	ErrWrongNetwork = errors.New("address is for a different network")

	// ErrInvalidAmount is returned for a BIP21 URI with a malformed
	// amount.
	ErrInvalidAmount = errors.New("invalid bip21 amount")
)

// Payment is an on-chain payment request: a bare address or a BIP21 URI.
type Payment struct {
	// Address is the address as it appeared in the input.
	Address string

	// Amount is set if the URI requested an amount.
	Amount *money.Amount

	Label   string
	Message string

	// Lightning is the BOLT11 invoice of a unified BIP21 URI, if any.
	Lightning string
}

// Memo returns the text the payer should attach to the payment.
func (p *Payment) Memo() string {
	if p.Message != "" {
		return p.Message
	}

	return p.Label
}

// ParsePayment parses a bare address or a BIP21 URI for the given network.
func ParsePayment(raw string, net Network) (*Payment, error) {
	addr, query := raw, ""
	if strings.HasPrefix(strings.ToLower(raw), bip21Scheme) {
		addr = raw[len(bip21Scheme):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr, query = addr[:i], addr[i+1:]
		}
	}

	if err := checkAddress(addr, net); err != nil {
		return nil, err
	}

	payment := &Payment{Address: addr}
	if query == "" {
		return payment, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("invalid bip21 query: %w", err)
	}

	if amt := values.Get("amount"); amt != "" {
		amount, err := parseBTCAmount(amt)
		if err != nil {
			return nil, err
		}
		payment.Amount = &amount
	}
	payment.Label = values.Get("label")
	payment.Message = values.Get("message")
	payment.Lightning = values.Get("lightning")

	return payment, nil
}

// checkAddress makes sure addr is a payable address on net. An address that
// only decodes for another network is reported as ErrWrongNetwork.
func checkAddress(addr string, net Network) error {
	decoded, err := btcutil.DecodeAddress(addr, net.Params())
	if err != nil {
		for _, other := range Networks {
			if other == net {
				continue
			}

			if _, err := btcutil.DecodeAddress(
				addr, other.Params(),
			); err == nil {
				return ErrWrongNetwork
			}
		}

		return fmt.Errorf("%w: %v", ErrNotAddress, err)
	}

	// Raw public keys decode as addresses but are not something a user
	// pays to.
	if _, ok := decoded.(*btcutil.AddressPubKey); ok {
		return ErrNotAddress
	}

	if !decoded.IsForNet(net.Params()) {
		return ErrWrongNetwork
	}

	return nil
}

var satsPerBitcoin = decimal.NewFromInt(1e8)

func parseBTCAmount(s string) (money.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	sats := d.Mul(satsPerBitcoin)
	if sats.IsNegative() || !sats.Equal(sats.Truncate(0)) {
		return money.Amount{}, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}

	return money.Sats(sats.IntPart()), nil
}

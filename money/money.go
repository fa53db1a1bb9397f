// Package money holds the currency-tagged amounts and wallet descriptors that
// the send flow passes around.
package money

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil"
	"github.com/lightningnetwork/lnd/lnwire"
)

// Currency identifies the unit an Amount is denominated in.
type Currency string

const (
	// BTC amounts are in satoshis.
	BTC Currency = "BTC"

	// USD amounts are in cents.
	USD Currency = "USD"

	// DisplayCurrency is the fiat currency the user has chosen to view
	// amounts in. Amounts are in that currency's minor unit. It is never
	// the currency of a wallet.
	DisplayCurrency Currency = "DisplayCurrency"
)

// IsWallet returns true if a wallet can be denominated in c.
func (c Currency) IsWallet() bool {
	return c == BTC || c == USD
}

var (
	// ErrCurrencyMismatch is returned when two amounts of different
	// currencies are combined.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrNegativeAmount is returned when constructing an amount below
	// zero.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Amount is a non-negative number of minor units of a currency.
type Amount struct {
	Value    int64
	Currency Currency
}

// NewAmount returns an amount, rejecting negative values.
func NewAmount(value int64, currency Currency) (Amount, error) {
	if value < 0 {
		return Amount{}, ErrNegativeAmount
	}

	return Amount{Value: value, Currency: currency}, nil
}

// Zero returns the zero amount in the given currency.
func Zero(currency Currency) Amount {
	return Amount{Currency: currency}
}

// Sats returns a BTC amount of s satoshis.
func Sats(s int64) Amount {
	return Amount{Value: s, Currency: BTC}
}

// Cents returns a USD amount of c cents.
func Cents(c int64) Amount {
	return Amount{Value: c, Currency: USD}
}

// IsZero returns true if the amount has no value.
func (a Amount) IsZero() bool {
	return a.Value == 0
}

// Add returns a+b. Both amounts must share a currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Currency != b.Currency {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch,
			a.Currency, b.Currency)
	}

	return Amount{Value: a.Value + b.Value, Currency: a.Currency}, nil
}

// Cmp compares a to b and returns -1, 0 or 1. Both amounts must share a
// currency.
func (a Amount) Cmp(b Amount) (int, error) {
	if a.Currency != b.Currency {
		return 0, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch,
			a.Currency, b.Currency)
	}

	switch {
	case a.Value < b.Value:
		return -1, nil
	case a.Value > b.Value:
		return 1, nil
	default:
		return 0, nil
	}
}

// Sats returns a BTC amount as a btcutil.Amount.
func (a Amount) Sats() (btcutil.Amount, error) {
	if a.Currency != BTC {
		return 0, fmt.Errorf("%w: %s is not BTC", ErrCurrencyMismatch,
			a.Currency)
	}

	return btcutil.Amount(a.Value), nil
}

// MilliSats returns a BTC amount in millisatoshis.
func (a Amount) MilliSats() (lnwire.MilliSatoshi, error) {
	sats, err := a.Sats()
	if err != nil {
		return 0, err
	}

	return lnwire.NewMSatFromSatoshis(sats), nil
}

func (a Amount) String() string {
	return fmt.Sprintf("%d %s", a.Value, a.Currency)
}

// WalletID is the opaque identifier of a wallet.
type WalletID string

// WalletDescriptor identifies one of the user's wallets.
type WalletDescriptor struct {
	ID       WalletID
	Currency Currency
}

// Validate checks that the descriptor names a wallet currency.
func (w WalletDescriptor) Validate() error {
	if w.ID == "" {
		return errors.New("wallet id is empty")
	}
	if !w.Currency.IsWallet() {
		return fmt.Errorf("%s is not a wallet currency", w.Currency)
	}

	return nil
}

// Wallets is the pair of wallets a user owns.
type Wallets struct {
	BTC WalletDescriptor
	USD WalletDescriptor
}

// ByCurrency returns the wallet denominated in c.
func (w Wallets) ByCurrency(c Currency) (WalletDescriptor, bool) {
	switch c {
	case BTC:
		return w.BTC, w.BTC.ID != ""
	case USD:
		return w.USD, w.USD.ID != ""
	default:
		return WalletDescriptor{}, false
	}
}

// IDs returns the ids of the wallets that are set.
func (w Wallets) IDs() []WalletID {
	var ids []WalletID
	for _, d := range []WalletDescriptor{w.BTC, w.USD} {
		if d.ID != "" {
			ids = append(ids, d.ID)
		}
	}

	return ids
}

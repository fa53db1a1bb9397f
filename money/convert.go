package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ConvertFunc converts an amount into the target currency. Conversions are
// lossy: the result is rounded to the target's minor unit.
type ConvertFunc func(amount Amount, target Currency) Amount

// Prices is the snapshot of exchange rates a converter is built from.
type Prices struct {
	// BTCPrice is the price of one bitcoin in USD cents.
	BTCPrice decimal.Decimal

	// DisplayPerCent is the number of display-currency minor units that
	// one USD cent is worth. A zero value means the display currency is
	// USD.
	DisplayPerCent decimal.Decimal
}

var satsPerBitcoin = decimal.NewFromInt(1e8)

// NewConverter returns a ConvertFunc that uses a fixed price snapshot.
func NewConverter(prices Prices) (ConvertFunc, error) {
	if !prices.BTCPrice.IsPositive() {
		return nil, errors.New("btc price must be positive")
	}
	if prices.DisplayPerCent.IsNegative() {
		return nil, errors.New("display rate must not be negative")
	}
	if prices.DisplayPerCent.IsZero() {
		prices.DisplayPerCent = decimal.NewFromInt(1)
	}

	// centValue returns the value of one minor unit of c in cents as
	// a fraction num/den.
	centValue := func(c Currency) (decimal.Decimal, decimal.Decimal) {
		switch c {
		case BTC:
			return prices.BTCPrice, satsPerBitcoin
		case DisplayCurrency:
			return decimal.NewFromInt(1), prices.DisplayPerCent
		default:
			return decimal.NewFromInt(1), decimal.NewFromInt(1)
		}
	}

	return func(amount Amount, target Currency) Amount {
		if amount.Currency == target {
			return amount
		}

		srcNum, srcDen := centValue(amount.Currency)
		dstNum, dstDen := centValue(target)

		// Multiply out before the single division so that the result
		// is only rounded once.
		num := decimal.NewFromInt(amount.Value).Mul(srcNum).Mul(dstDen)
		den := srcDen.Mul(dstNum)

		return Amount{
			Value:    num.Div(den).Round(0).IntPart(),
			Currency: target,
		}
	}, nil
}

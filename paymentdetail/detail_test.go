package paymentdetail

import (
	"testing"

	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	btcWallet = money.WalletDescriptor{
		ID:       "btc-wallet",
		Currency: money.BTC,
	}
	usdWallet = money.WalletDescriptor{
		ID:       "usd-wallet",
		Currency: money.USD,
	}

	bob = destination.Intraledger{Handle: "bob", WalletID: "bob-wallet"}

	mainnetAddr = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
)

// converter returns a ConvertFunc at a price of btcPrice cents per bitcoin,
// with USD as the display currency.
func converter(t *testing.T, btcPrice int64) money.ConvertFunc {
	t.Helper()

	convert, err := money.NewConverter(money.Prices{
		BTCPrice: decimal.NewFromInt(btcPrice),
	})
	require.NoError(t, err)

	return convert
}

func amountPtr(a money.Amount) *money.Amount {
	return &a
}

func lnurlDest(min, max int64, commentAllowed int) destination.LnurlPay {
	meta := lnurl.Metadata("pay carol", "")

	return destination.LnurlPay{
		Lnurl: "carol@example.com",
		URL:   "https://example.com/.well-known/lnurlp/carol",
		Params: lnurl.PayParams{
			Callback:       "https://example.com/invoice",
			Min:            lnwire.MilliSatoshi(min),
			Max:            lnwire.MilliSatoshi(max),
			CommentAllowed: commentAllowed,
			Metadata:       meta,
			Description:    "pay carol",
		},
	}
}

// requireAmounts checks the amounts of a detail. PaymentDetail holds a
// func, so details are never compared as a whole.
func requireAmounts(t *testing.T, d PaymentDetail, unit,
	settlement money.Amount) {

	t.Helper()

	require.Equal(t, unit, d.UnitOfAccountAmount)
	require.Equal(t, settlement, d.SettlementAmount)
}

func TestCreate(t *testing.T) {
	convert := converter(t, 3_000_000)

	tests := []struct {
		name   string
		dest   destination.Destination
		wallet money.WalletDescriptor

		canSetAmount bool
		canSendMax   bool
		canSetMemo   bool
		memo         string
		unit         money.Amount
		settlement   money.Amount
		payable      bool
	}{
		{
			name:         "intraledger",
			dest:         bob,
			wallet:       btcWallet,
			canSetAmount: true,
			canSendMax:   true,
			canSetMemo:   true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.BTC),
		},
		{
			name: "pay code",
			dest: destination.PayCode{
				Handle:   "bob",
				WalletID: "bob-wallet",
			},
			wallet:       usdWallet,
			canSetAmount: true,
			canSendMax:   true,
			canSetMemo:   true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.USD),
		},
		{
			name: "lightning with amount from btc wallet",
			dest: destination.Lightning{
				PaymentRequest: "lnbc1",
				Amount:         amountPtr(money.Sats(10_000)),
				Memo:           "coffee",
			},
			wallet:     btcWallet,
			memo:       "coffee",
			unit:       money.Sats(10_000),
			settlement: money.Sats(10_000),
			payable:    true,
		},
		{
			name: "lightning with amount from usd wallet",
			dest: destination.Lightning{
				PaymentRequest: "lnbc1",
				Amount:         amountPtr(money.Sats(10_000)),
			},
			wallet:     usdWallet,
			canSetMemo: true,
			unit:       money.Cents(300),
			settlement: money.Cents(300),
			payable:    true,
		},
		{
			name: "lightning without amount",
			dest: destination.Lightning{
				PaymentRequest: "lnbc1",
			},
			wallet:       btcWallet,
			canSetAmount: true,
			canSetMemo:   true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.BTC),
		},
		{
			name:         "on-chain",
			dest:         destination.OnChain{Address: mainnetAddr},
			wallet:       btcWallet,
			canSetAmount: true,
			canSendMax:   true,
			canSetMemo:   true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.BTC),
		},
		{
			name: "on-chain with amount",
			dest: destination.OnChain{
				Address: mainnetAddr,
				Amount:  amountPtr(money.Sats(100_000)),
				Memo:    "rent",
			},
			wallet:     btcWallet,
			canSetMemo: true,
			memo:       "rent",
			unit:       money.Sats(100_000),
			settlement: money.Sats(100_000),
			payable:    true,
		},
		{
			name:         "lnurl",
			dest:         lnurlDest(1_000_000, 50_000_000, 0),
			wallet:       btcWallet,
			canSetAmount: true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.BTC),
		},
		{
			name:         "lnurl with comments",
			dest:         lnurlDest(1_000_000, 50_000_000, 20),
			wallet:       btcWallet,
			canSetAmount: true,
			canSetMemo:   true,
			unit:         money.Zero(money.DisplayCurrency),
			settlement:   money.Zero(money.BTC),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			d, err := Create(test.dest, test.wallet, convert)
			require.NoError(t, err)

			require.Equal(t, test.dest.PaymentType(), d.PaymentType)
			require.Equal(t, test.wallet, d.SendingWallet)
			require.Equal(t, test.canSetAmount, d.CanSetAmount)
			require.Equal(t, test.canSendMax, d.CanSendMax)
			require.Equal(t, test.canSetMemo, d.CanSetMemo)
			require.False(t, d.IsSendingMax)
			require.Equal(t, test.memo, d.Memo)
			requireAmounts(t, d, test.unit, test.settlement)
			require.Equal(t, test.payable, d.Payment() != nil)
		})
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	convert := converter(t, 3_000_000)

	_, err := Create(nil, btcWallet, convert)
	require.Error(t, err)

	_, err = Create(bob, btcWallet, nil)
	require.Error(t, err)

	_, err = Create(bob, money.WalletDescriptor{
		ID:       "display",
		Currency: money.DisplayCurrency,
	}, convert)
	require.Error(t, err)
}

func TestSetAmount(t *testing.T) {
	d, err := Create(bob, btcWallet, converter(t, 3_000_000))
	require.NoError(t, err)

	amt := money.Amount{Value: 100, Currency: money.DisplayCurrency}

	once, err := d.SetAmount(amt, false)
	require.NoError(t, err)
	twice, err := once.SetAmount(amt, false)
	require.NoError(t, err)

	requireAmounts(t, once, amt, money.Sats(3333))
	requireAmounts(t, twice, once.UnitOfAccountAmount, once.SettlementAmount)

	// The original is untouched.
	requireAmounts(
		t, d, money.Zero(money.DisplayCurrency), money.Zero(money.BTC),
	)
	require.Nil(t, d.Payment())

	p := once.Payment()
	require.NotNil(t, p)
	require.Equal(t, &Payment{
		PaymentType:       destination.PaymentTypeIntraledger,
		SendingWallet:     btcWallet,
		Amount:            money.Sats(3333),
		RecipientWalletID: "bob-wallet",
	}, p)

	max, err := d.SetAmount(money.Sats(50_000), true)
	require.NoError(t, err)
	require.True(t, max.IsSendingMax)
	require.True(t, max.Payment().SendMax)

	_, err = d.SetAmount(money.Amount{Value: -1, Currency: money.BTC}, false)
	require.ErrorIs(t, err, money.ErrNegativeAmount)
}

func TestSetAmountCapabilities(t *testing.T) {
	convert := converter(t, 3_000_000)

	fixed, err := Create(destination.Lightning{
		PaymentRequest: "lnbc1",
		Amount:         amountPtr(money.Sats(10)),
	}, btcWallet, convert)
	require.NoError(t, err)

	_, err = fixed.SetAmount(money.Sats(20), false)
	require.ErrorIs(t, err, ErrAmountNotSettable)

	pay, err := Create(
		lnurlDest(1_000, 1_000_000, 0), btcWallet, convert,
	)
	require.NoError(t, err)

	_, err = pay.SetAmount(money.Sats(20), true)
	require.ErrorIs(t, err, ErrCannotSendMax)

	// Setting an amount does not make an LNURL payment payable.
	pay, err = pay.SetAmount(money.Sats(20), false)
	require.NoError(t, err)
	require.Nil(t, pay.Payment())
}

func TestSetSendingWalletDescriptor(t *testing.T) {
	d, err := Create(bob, btcWallet, converter(t, 3_000_000))
	require.NoError(t, err)

	// An amount in the old wallet's currency is converted.
	inBTC, err := d.SetAmount(money.Sats(10_000), true)
	require.NoError(t, err)

	switched, err := inBTC.SetSendingWalletDescriptor(usdWallet)
	require.NoError(t, err)
	require.Equal(t, usdWallet, switched.SendingWallet)
	require.False(t, switched.IsSendingMax)
	requireAmounts(t, switched, money.Cents(300), money.Cents(300))

	require.Equal(t, btcWallet, inBTC.SendingWallet)
	require.True(t, inBTC.IsSendingMax)

	// A display amount is kept as entered.
	display := money.Amount{Value: 250, Currency: money.DisplayCurrency}
	inDisplay, err := d.SetAmount(display, false)
	require.NoError(t, err)

	switched, err = inDisplay.SetSendingWalletDescriptor(usdWallet)
	require.NoError(t, err)
	requireAmounts(t, switched, display, money.Cents(250))

	back, err := switched.SetSendingWalletDescriptor(btcWallet)
	require.NoError(t, err)
	requireAmounts(t, back, display, inDisplay.SettlementAmount)

	_, err = d.SetSendingWalletDescriptor(money.WalletDescriptor{})
	require.Error(t, err)
}

func TestSetConvertMoneyAmount(t *testing.T) {
	d, err := Create(bob, btcWallet, converter(t, 3_000_000))
	require.NoError(t, err)

	d, err = d.SetAmount(
		money.Amount{Value: 100, Currency: money.DisplayCurrency}, false,
	)
	require.NoError(t, err)
	require.Equal(t, money.Sats(3333), d.SettlementAmount)

	repriced, err := d.SetConvertMoneyAmount(converter(t, 6_000_000))
	require.NoError(t, err)
	require.Equal(t, d.UnitOfAccountAmount, repriced.UnitOfAccountAmount)
	require.Equal(t, money.Sats(1667), repriced.SettlementAmount)

	_, err = d.SetConvertMoneyAmount(nil)
	require.Error(t, err)
}

func TestSetMemo(t *testing.T) {
	convert := converter(t, 3_000_000)

	d, err := Create(lnurlDest(1_000, 1_000_000, 5), btcWallet, convert)
	require.NoError(t, err)

	d, err = d.SetMemo("héllo")
	require.NoError(t, err)
	require.Equal(t, "héllo", d.Memo)

	_, err = d.SetMemo("hello!")
	require.ErrorIs(t, err, ErrMemoTooLong)

	noComments, err := Create(
		lnurlDest(1_000, 1_000_000, 0), btcWallet, convert,
	)
	require.NoError(t, err)
	_, err = noComments.SetMemo("hi")
	require.ErrorIs(t, err, ErrMemoNotSettable)

	invoice, err := Create(destination.Lightning{
		PaymentRequest: "lnbc1",
		Memo:           "coffee",
	}, btcWallet, convert)
	require.NoError(t, err)
	_, err = invoice.SetMemo("tea")
	require.ErrorIs(t, err, ErrMemoNotSettable)

	onChain, err := Create(
		destination.OnChain{Address: mainnetAddr}, btcWallet, convert,
	)
	require.NoError(t, err)
	onChain, err = onChain.SetMemo("rent")
	require.NoError(t, err)
	onChain, err = onChain.SetAmount(money.Sats(1_000), false)
	require.NoError(t, err)
	require.Equal(t, &Payment{
		PaymentType:   destination.PaymentTypeOnchain,
		SendingWallet: btcWallet,
		Amount:        money.Sats(1_000),
		Address:       mainnetAddr,
		Memo:          "rent",
	}, onChain.Payment())
}

func TestSetInvoice(t *testing.T) {
	convert := converter(t, 3_000_000)

	d, err := Create(lnurlDest(1_000, 1_000_000, 5), usdWallet, convert)
	require.NoError(t, err)
	d, err = d.SetAmount(money.Sats(100), false)
	require.NoError(t, err)

	_, err = d.SetInvoice(Invoice{PaymentRequest: "lnbc1"})
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)

	resolved, err := d.SetInvoice(Invoice{
		PaymentRequest: "lnbc1",
		Amount:         money.Sats(100),
	})
	require.NoError(t, err)
	require.False(t, resolved.CanSetAmount)
	require.False(t, resolved.CanSetMemo)
	require.Equal(t, money.Cents(3), resolved.SettlementAmount)
	require.Equal(t, &Payment{
		PaymentType:    destination.PaymentTypeLnurl,
		SendingWallet:  usdWallet,
		Amount:         money.Cents(3),
		PaymentRequest: "lnbc1",
	}, resolved.Payment())
	require.Nil(t, d.Payment())

	// The invoice survives a wallet switch, only the debit changes.
	switched, err := resolved.SetSendingWalletDescriptor(btcWallet)
	require.NoError(t, err)
	require.NotNil(t, switched.Invoice)
	require.Equal(t, money.Sats(100), switched.SettlementAmount)

	onChain, err := Create(
		destination.OnChain{Address: mainnetAddr}, btcWallet, convert,
	)
	require.NoError(t, err)
	_, err = onChain.SetInvoice(Invoice{
		PaymentRequest: "lnbc1",
		Amount:         money.Sats(1),
	})
	require.ErrorIs(t, err, ErrNotLnurl)
}

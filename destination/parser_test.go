package destination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellemouton/sendpay/chain"
	"github.com/ellemouton/sendpay/invoice/invoicetest"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/lnurl/lnurltest"
	"github.com/ellemouton/sendpay/money"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

const (
	myBTCWallet money.WalletID = "my-btc-wallet"
	myUSDWallet money.WalletID = "my-usd-wallet"
	bobWallet   money.WalletID = "bob-wallet"

	mainnetAddr = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
	testnetAddr = "mgzdqkEjYEjR5QNdJxYFnCKZHuNYa5bUZ2"

	payCodeHost = "pay.example.com"
)

var testNow = time.Unix(1_700_000_000, 0)

type mockAccounts map[string]money.WalletID

func (m mockAccounts) LookupWalletByHandle(_ context.Context,
	handle string) (money.WalletID, error) {

	id, ok := m[handle]
	if !ok {
		return "", ErrHandleNotFound
	}

	return id, nil
}

type failingFetcher struct{}

func (failingFetcher) FetchPayParams(context.Context, *lnurl.Target) (
	*lnurl.PayParams, error) {

	return nil, errors.New("connection refused")
}

type parserHarness struct {
	parser *Parser
	lnurl  *lnurltest.Service
}

func newParserHarness(t *testing.T, net chain.Network) *parserHarness {
	svc := lnurltest.Start(t, lnurl.Config{
		MinSendable: 1_000_000,
		MaxSendable: 50_000_000,
		Description: "pay carol",
	}, &invoicetest.Creator{Network: net})

	parser, err := NewParser(&Config{
		Network:      net,
		MyWalletIDs:  []money.WalletID{myBTCWallet, myUSDWallet},
		PayCodeHosts: []string{payCodeHost},
		Accounts: mockAccounts{
			"alice": myBTCWallet,
			"bob":   bobWallet,
		},
		Lnurl: lnurl.NewClient(svc.Client()),
		Clock: clock.NewTestClock(testNow),
	})
	require.NoError(t, err)

	return &parserHarness{parser: parser, lnurl: svc}
}

func (h *parserHarness) parse(t *testing.T, raw string) *Result {
	t.Helper()

	res := h.parser.Parse(context.Background(), raw)
	require.Equal(t, raw, res.Raw)

	return res
}

func requireReason(t *testing.T, res *Result, reason InvalidReason) {
	t.Helper()

	require.Equal(t, OutcomeInvalid, res.Outcome)
	require.NotNil(t, res.Rejection)
	require.Equal(t, reason, res.Rejection.Reason)
	require.Equal(t, res.Raw, res.Rejection.Raw)
	require.Equal(t, reason, res.Reason())
}

func TestParseOnChain(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	res := h.parse(t, mainnetAddr)
	require.Equal(t, OutcomeValid, res.Outcome)
	require.Equal(t, OnChain{Address: mainnetAddr}, res.Destination)
	require.Equal(t, PaymentTypeOnchain, res.Destination.PaymentType())

	// Surrounding whitespace from a paste is ignored.
	res = h.parse(t, "  "+mainnetAddr+"\n")
	require.Equal(t, OnChain{Address: mainnetAddr}, res.Destination)

	res = h.parse(t, "bitcoin:"+mainnetAddr+"?amount=0.001&label=rent")
	amt := money.Sats(100_000)
	require.Equal(t, OnChain{
		Address: mainnetAddr,
		Amount:  &amt,
		Memo:    "rent",
	}, res.Destination)

	requireReason(t, h.parse(t, testnetAddr), ReasonWrongNetwork)
	requireReason(
		t, h.parse(t, "bitcoin:"+mainnetAddr+"?amount=x"),
		ReasonUnknownFormat,
	)
}

func TestParseLightning(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	pr := invoicetest.New(t, invoicetest.Options{
		Network:     chain.Mainnet,
		Amount:      lnwire.MilliSatoshi(10_000),
		Description: "coffee",
		Timestamp:   testNow.Add(-time.Minute),
		Expiry:      time.Hour,
	})

	res := h.parse(t, "lightning:"+pr)
	require.Equal(t, OutcomeValid, res.Outcome)

	dest, ok := res.Destination.(Lightning)
	require.True(t, ok)
	require.Equal(t, pr, dest.PaymentRequest)
	require.Equal(t, "coffee", dest.Memo)
	require.NotNil(t, dest.Amount)
	require.Equal(t, money.Sats(10), *dest.Amount)

	amountless := invoicetest.New(t, invoicetest.Options{
		Network:   chain.Mainnet,
		Timestamp: testNow,
	})
	res = h.parse(t, amountless)
	dest, ok = res.Destination.(Lightning)
	require.True(t, ok)
	require.Nil(t, dest.Amount)

	testnetInvoice := invoicetest.New(t, invoicetest.Options{
		Network:   chain.Testnet,
		Timestamp: testNow,
	})
	requireReason(t, h.parse(t, testnetInvoice), ReasonWrongNetwork)

	expired := invoicetest.New(t, invoicetest.Options{
		Network:   chain.Mainnet,
		Timestamp: testNow.Add(-2 * time.Hour),
		Expiry:    time.Hour,
	})
	requireReason(t, h.parse(t, expired), ReasonInvoiceExpired)

	requireReason(t, h.parse(t, "lnbc1garbage"), ReasonUnknownFormat)
}

func TestParseUnifiedURI(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	pr := invoicetest.New(t, invoicetest.Options{
		Network:   chain.Mainnet,
		Amount:    lnwire.MilliSatoshi(5_000_000),
		Timestamp: testNow,
	})

	res := h.parse(t, "bitcoin:"+mainnetAddr+"?lightning="+pr)
	require.Equal(t, PaymentTypeLightning, res.Destination.PaymentType())

	// An unusable invoice falls back to the address.
	res = h.parse(t, "bitcoin:"+mainnetAddr+"?lightning=lnbc1garbage")
	require.Equal(t, OnChain{Address: mainnetAddr}, res.Destination)
}

func TestParseLnurl(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	address := "Carol@" + h.lnurl.Host()
	res := h.parse(t, address)
	require.Equal(t, OutcomeValid, res.Outcome)

	dest, ok := res.Destination.(LnurlPay)
	require.True(t, ok)
	require.Equal(t, "carol@"+h.lnurl.Host(), dest.Lnurl)
	require.Equal(t, lnwire.MilliSatoshi(1_000_000), dest.Params.Min)
	require.Equal(t, lnwire.MilliSatoshi(50_000_000), dest.Params.Max)
	require.Equal(t, "pay carol", dest.Params.Description)

	code, err := h.lnurl.LNURL.StaticLNURL()
	require.NoError(t, err)
	res = h.parse(t, code)
	require.Equal(t, PaymentTypeLnurl, res.Destination.PaymentType())

	requireReason(t, h.parse(t, "lnurl1notbech32"), ReasonUnknownFormat)
}

func TestParseLnurlUnreachable(t *testing.T) {
	parser, err := NewParser(&Config{
		Accounts: mockAccounts{},
		Lnurl:    failingFetcher{},
	})
	require.NoError(t, err)

	res := parser.Parse(context.Background(), "dave@example.com")
	requireReason(t, res, ReasonLnurlUnreachable)
}

func TestParseHandle(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	res := h.parse(t, "Bob")
	require.Equal(t, Intraledger{
		Handle:   "bob",
		WalletID: bobWallet,
	}, res.Destination)

	requireReason(t, h.parse(t, "nobody"), ReasonUnknownWallet)

	// Too short to be a handle.
	requireReason(t, h.parse(t, "bo"), ReasonUnknownFormat)
	requireReason(t, h.parse(t, "not a handle!"), ReasonUnknownFormat)
	requireReason(t, h.parse(t, ""), ReasonUnknownFormat)
}

func TestParseSelfPayment(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	for _, raw := range []string{"alice", "Alice", "ALICE", " alice "} {
		res := h.parse(t, raw)
		require.Equal(t, OutcomeSelfPayment, res.Outcome, raw)
		require.Equal(t, ReasonSelfPayment, res.Reason())
		require.Nil(t, res.Rejection)
		require.Equal(t, &SelfPayment{
			Handle:   "alice",
			WalletID: myBTCWallet,
		}, res.SelfPayment)
	}
}

func TestParsePayCode(t *testing.T) {
	h := newParserHarness(t, chain.Mainnet)

	res := h.parse(t, "https://"+payCodeHost+"/Bob")
	require.Equal(t, PayCode{
		Handle:   "bob",
		WalletID: bobWallet,
	}, res.Destination)

	// Pay codes are not checked for self-payment.
	res = h.parse(t, "https://"+payCodeHost+"/alice")
	require.Equal(t, PayCode{
		Handle:   "alice",
		WalletID: myBTCWallet,
	}, res.Destination)

	requireReason(
		t, h.parse(t, "https://"+payCodeHost+"/bob/extra"),
		ReasonUnknownFormat,
	)
	requireReason(
		t, h.parse(t, "https://other.com/bob"), ReasonUnknownFormat,
	)
}

func TestNewParserRequiresCollaborators(t *testing.T) {
	_, err := NewParser(&Config{Lnurl: failingFetcher{}})
	require.Error(t, err)

	_, err = NewParser(&Config{Accounts: mockAccounts{}})
	require.Error(t, err)
}

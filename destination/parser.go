package destination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ellemouton/sendpay/chain"
	"github.com/ellemouton/sendpay/invoice"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
	"github.com/lightningnetwork/lnd/clock"
)

var (
	// ErrHandleNotFound is returned by an AccountDirectory for a handle
	// without an account.
	ErrHandleNotFound = errors.New("handle not found")

	errEmptyInput = errors.New("empty input")
)

// handleRegex matches usernames. Handles are compared lower cased.
var handleRegex = regexp.MustCompile(`^[0-9a-z_]{3,50}$`)

// reservedHandlePrefixes keep mistyped addresses, invoices and LNURLs from
// being looked up as usernames.
var reservedHandlePrefixes = []string{
	"1", "3", "bc1", "tb1", "bcrt1", "lnurl", "lnbc", "lntb",
}

// AccountDirectory looks up the wallet that receives payments to a handle.
type AccountDirectory interface {
	// LookupWalletByHandle returns the default wallet of the account
	// with the given handle, or ErrHandleNotFound.
	LookupWalletByHandle(ctx context.Context, handle string) (
		money.WalletID, error)
}

// PayParamsFetcher runs the metadata phase of LNURL-pay. *lnurl.Client
// implements it.
type PayParamsFetcher interface {
	FetchPayParams(ctx context.Context, target *lnurl.Target) (
		*lnurl.PayParams, error)
}

// Config is what the Parser needs to know about the user and the world.
type Config struct {
	// Network is the active bitcoin network.
	Network chain.Network

	// MyWalletIDs are the user's own wallets, for self-payment
	// detection.
	MyWalletIDs []money.WalletID

	// LnurlDomains are hosts whose https URLs are LNURL-pay endpoints.
	LnurlDomains []string

	// PayCodeHosts are hosts whose https://host/<handle> URLs are pay
	// codes.
	PayCodeHosts []string

	Accounts AccountDirectory

	// Invoices defaults to a zpay32 decoder.
	Invoices invoice.Decoder

	Lnurl PayParamsFetcher

	// Clock defaults to the system clock.
	Clock clock.Clock
}

// Parser classifies raw input into a Destination.
type Parser struct {
	cfg *Config
}

// NewParser returns a Parser for the given config.
func NewParser(cfg *Config) (*Parser, error) {
	if cfg.Accounts == nil {
		return nil, errors.New("an account directory is required")
	}
	if cfg.Lnurl == nil {
		return nil, errors.New("an lnurl fetcher is required")
	}
	if cfg.Network == "" {
		cfg.Network = chain.Mainnet
	}
	if cfg.Invoices == nil {
		cfg.Invoices = &invoice.ZPayDecoder{}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}

	return &Parser{cfg: cfg}, nil
}

// Parse classifies raw. The first rail that recognises the input decides the
// result, in this order: on-chain, lightning, LNURL-pay, handle. Parse does
// not fail; an unusable input yields an invalid Result.
func (p *Parser) Parse(ctx context.Context, raw string) *Result {
	input := strings.TrimSpace(raw)
	if input == "" {
		return invalid(raw, ReasonUnknownFormat, errEmptyInput)
	}

	parsers := []func(context.Context, string, string) (*Result, bool){
		p.parseOnChain,
		p.parseLightning,
		p.parseLnurl,
		p.parseHandle,
	}
	for _, parse := range parsers {
		if res, ok := parse(ctx, raw, input); ok {
			log.Debugf("Parsed destination: outcome=%v reason=%v",
				res.Outcome, res.Reason())

			return res
		}
	}

	log.Debugf("Destination of unknown format")

	return invalid(raw, ReasonUnknownFormat, nil)
}

func (p *Parser) parseOnChain(ctx context.Context, raw, input string) (
	*Result, bool) {

	payment, err := chain.ParsePayment(input, p.cfg.Network)
	switch {
	case errors.Is(err, chain.ErrWrongNetwork):
		return invalid(raw, ReasonWrongNetwork, err), true

	case errors.Is(err, chain.ErrInvalidAmount):
		return invalid(raw, ReasonUnknownFormat, err), true

	case err != nil:
		return nil, false
	}

	// A unified URI carries an invoice as well. Prefer it if it can be
	// paid on this network.
	if payment.Lightning != "" {
		res, ok := p.parseLightning(ctx, raw, payment.Lightning)
		if ok && res.Outcome == OutcomeValid {
			return res, true
		}

		log.Debugf("Ignoring unusable lightning parameter of bip21 URI")
	}

	return valid(raw, OnChain{
		Address: payment.Address,
		Amount:  payment.Amount,
		Memo:    payment.Memo(),
	}), true
}

func (p *Parser) parseLightning(_ context.Context, raw, input string) (
	*Result, bool) {

	if _, err := invoice.Networks(input); err != nil {
		return nil, false
	}

	decoded, err := p.cfg.Invoices.Decode(input, p.cfg.Network)
	switch {
	case errors.Is(err, invoice.ErrWrongNetwork):
		return invalid(raw, ReasonWrongNetwork, err), true

	case err != nil:
		return invalid(raw, ReasonUnknownFormat, err), true
	}

	expiresAt := decoded.ExpiresAt()
	if !p.cfg.Clock.Now().Before(expiresAt) {
		return invalid(raw, ReasonInvoiceExpired, fmt.Errorf(
			"invoice expired at %v", expiresAt,
		)), true
	}

	dest := Lightning{
		PaymentRequest: decoded.PaymentRequest,
		Memo:           decoded.Description,
		ExpiresAt:      expiresAt,
	}
	if decoded.Amount != nil && *decoded.Amount > 0 {
		amt := money.Sats(int64(decoded.Amount.ToSatoshis()))
		dest.Amount = &amt
	}

	return valid(raw, dest), true
}

func (p *Parser) parseLnurl(ctx context.Context, raw, input string) (*Result,
	bool) {

	target, err := lnurl.ParseTarget(input, p.cfg.LnurlDomains)
	switch {
	case errors.Is(err, lnurl.ErrNotLNURL):
		return nil, false

	case err != nil:
		return invalid(raw, ReasonUnknownFormat, err), true
	}

	params, err := p.cfg.Lnurl.FetchPayParams(ctx, target)
	switch {
	case errors.Is(err, lnurl.ErrNotPayRequest):
		return invalid(raw, ReasonUnknownFormat, err), true

	case err != nil:
		log.Debugf("Could not fetch pay params from %v: %v",
			target.URL, err)

		return invalid(raw, ReasonLnurlUnreachable, err), true
	}

	code := target.Address
	if code == "" {
		code = input
	}

	return valid(raw, LnurlPay{
		Lnurl:  code,
		URL:    target.URL,
		Params: *params,
	}), true
}

func (p *Parser) parseHandle(ctx context.Context, raw, input string) (
	*Result, bool) {

	handle, isPayCode := p.payCodeHandle(input)
	if !isPayCode {
		handle = strings.ToLower(input)
	}
	if !isHandle(handle) {
		return nil, false
	}

	walletID, err := p.cfg.Accounts.LookupWalletByHandle(ctx, handle)
	switch {
	case errors.Is(err, ErrHandleNotFound):
		return invalid(raw, ReasonUnknownWallet, err), true

	case err != nil:
		log.Warnf("Wallet lookup for handle %v failed: %v", handle, err)

		return invalid(raw, ReasonUnknownWallet, err), true
	}

	if isPayCode {
		return valid(raw, PayCode{
			Handle:   handle,
			WalletID: walletID,
		}), true
	}

	for _, id := range p.cfg.MyWalletIDs {
		if id == walletID {
			return &Result{
				Raw:     raw,
				Outcome: OutcomeSelfPayment,
				SelfPayment: &SelfPayment{
					Handle:   handle,
					WalletID: walletID,
				},
			}, true
		}
	}

	return valid(raw, Intraledger{
		Handle:   handle,
		WalletID: walletID,
	}), true
}

// payCodeHandle extracts the handle of an https://<host>/<handle> pay code.
func (p *Parser) payCodeHandle(input string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(input), "https://") {
		return "", false
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	for _, h := range p.cfg.PayCodeHosts {
		if host != strings.ToLower(h) {
			continue
		}

		handle := strings.ToLower(strings.Trim(u.Path, "/"))
		if strings.Contains(handle, "/") {
			return "", false
		}

		return handle, true
	}

	return "", false
}

func isHandle(s string) bool {
	if !handleRegex.MatchString(s) {
		return false
	}

	for _, prefix := range reservedHandlePrefixes {
		if strings.HasPrefix(s, prefix) {
			return false
		}
	}

	return true
}

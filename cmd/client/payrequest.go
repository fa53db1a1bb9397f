package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
	"github.com/ellemouton/sendpay/paymentdetail"
	"github.com/urfave/cli/v2"
)

var payRequestCommand = &cli.Command{
	Name:      "pay",
	Usage:     "Pay a destination",
	ArgsUsage: "destination",
	Description: `Resolve a destination, check the amount against the ` +
		`wallet's balance and limits, and pay invoices with lnd`,
	Flags: []cli.Flag{
		yesFlag,
		&cli.StringFlag{
			Name:  "wallet",
			Value: "btc",
			Usage: "wallet to send from: btc or usd",
		},
		&cli.Int64Flag{
			Name:  "amt",
			Usage: "amount to send, in minor units of --unit",
		},
		&cli.StringFlag{
			Name:  "unit",
			Value: "display",
			Usage: "currency of --amt: btc (sats), usd (cents) or " +
				"display",
		},
		&cli.BoolFlag{
			Name:  "sendmax",
			Usage: "send the whole balance of the wallet",
		},
		&cli.StringFlag{
			Name:  "memo",
			Usage: "memo, or comment for lnurl payments",
		},
		&cli.StringFlag{
			Name:  "btcprice",
			Value: "3000000",
			Usage: "price of one bitcoin in USD cents",
		},
		&cli.StringFlag{
			Name:  "displayrate",
			Value: "1",
			Usage: "display currency minor units per USD cent",
		},
		&cli.Int64Flag{
			Name:  "btcbalance",
			Usage: "balance of the BTC wallet (in sats)",
		},
		&cli.Int64Flag{
			Name:  "usdbalance",
			Usage: "balance of the USD wallet (in cents)",
		},
		&cli.Int64Flag{
			Name:  "intraledgerlimit",
			Value: -1,
			Usage: "remaining intraledger limit (in cents), -1 if " +
				"unknown",
		},
		&cli.Int64Flag{
			Name:  "withdrawallimit",
			Value: -1,
			Usage: "remaining withdrawal limit (in cents), -1 if " +
				"unknown",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: paymentdetail.DefaultResolveTimeout,
			Usage: "timeout of lnurl invoice requests",
		},
		&cli.Int64Flag{
			Name:  "maxfee",
			Usage: "max fee to pay for this payment (in sats)",
			Value: 1000,
		},
	},
	Action: payDestination,
}

func payDestination(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return fmt.Errorf("missing destination argument")
	}

	net, err := network(ctx)
	if err != nil {
		return err
	}

	client := lnurl.NewClient(httpClient(ctx))

	machine, err := newMachine(ctx, client)
	if err != nil {
		return err
	}

	dest, err := resolveDestination(ctx, machine, raw)
	if err != nil {
		return err
	}

	convert, err := newConverter(ctx)
	if err != nil {
		return err
	}

	walletCurrency, err := parseCurrency(ctx.String("wallet"))
	if err != nil {
		return err
	}
	wallet, ok := wallets(ctx).ByCurrency(walletCurrency)
	if !ok {
		return fmt.Errorf("no %s wallet", walletCurrency)
	}

	detail, err := paymentdetail.Create(dest, wallet, convert)
	if err != nil {
		return err
	}

	balances := paymentdetail.Balances{
		BTC: money.Sats(ctx.Int64("btcbalance")),
		USD: money.Cents(ctx.Int64("usdbalance")),
	}

	if detail.CanSetAmount {
		amount, err := enteredAmount(ctx, wallet, balances)
		if err != nil {
			return err
		}

		detail, err = detail.SetAmount(amount, ctx.Bool("sendmax"))
		if err != nil {
			return err
		}
	}

	if memo := ctx.String("memo"); memo != "" {
		detail, err = detail.SetMemo(memo)
		if err != nil {
			return err
		}
	}

	status := paymentdetail.Validate(
		detail, balances, limit(ctx.Int64("intraledgerlimit")),
		limit(ctx.Int64("withdrawallimit")),
	)
	if !status.Valid {
		return fmt.Errorf("amount %v is not valid: %s",
			detail.UnitOfAccountAmount, status.Reason)
	}

	if detail.LnurlParams != nil {
		resolver, err := paymentdetail.NewResolver(
			&paymentdetail.ResolverConfig{
				Lnurl:   client,
				Network: net,
				Timeout: ctx.Duration("timeout"),
			},
		)
		if err != nil {
			return err
		}

		detail, err = resolver.Resolve(ctx.Context, detail)
		if err != nil {
			return err
		}
	}

	payment := detail.Payment()
	if payment == nil {
		return fmt.Errorf("payment is not complete, set an amount")
	}

	// Only invoices can be paid from the node. Other rails are settled
	// by the wallet's ledger.
	if payment.PaymentRequest == "" {
		fmt.Printf("Payment ready: %+v\n", *payment)
		return nil
	}

	return payInvoice(ctx, payment)
}

func payInvoice(ctx *cli.Context, payment *paymentdetail.Payment) error {
	lndClient, err := getLND(ctx)
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lndClient.Close()

	res := <-lndClient.Client.PayInvoice(
		ctx.Context, payment.PaymentRequest,
		btcutil.Amount(ctx.Int64("maxfee")), nil,
	)

	if res.Err != nil {
		return fmt.Errorf("could not pay invoice: %w", res.Err)
	}

	fmt.Printf("Successful payment! Preimage: %s\n", res.Preimage)

	return nil
}

// enteredAmount returns the amount given on the command line, or the
// wallet's balance when sending max.
func enteredAmount(ctx *cli.Context, wallet money.WalletDescriptor,
	balances paymentdetail.Balances) (money.Amount, error) {

	if ctx.Bool("sendmax") {
		if wallet.Currency == money.USD {
			return balances.USD, nil
		}

		return balances.BTC, nil
	}

	currency := money.DisplayCurrency
	if unit := ctx.String("unit"); unit != "display" {
		var err error
		currency, err = parseCurrency(unit)
		if err != nil {
			return money.Amount{}, err
		}
	}

	return money.NewAmount(ctx.Int64("amt"), currency)
}

func parseCurrency(s string) (money.Currency, error) {
	switch strings.ToLower(s) {
	case "btc":
		return money.BTC, nil
	case "usd":
		return money.USD, nil
	default:
		return "", fmt.Errorf("unknown currency %q", s)
	}
}

func limit(remaining int64) *paymentdetail.Limits {
	if remaining < 0 {
		return nil
	}

	return &paymentdetail.Limits{
		RemainingLimit: money.Cents(remaining),
		Interval:       24 * time.Hour,
	}
}

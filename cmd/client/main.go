package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/ellemouton/sendpay/chain"
	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/invoice"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/ellemouton/sendpay/money"
	"github.com/ellemouton/sendpay/paymentdetail"
	"github.com/lightninglabs/lndclient"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "sendpay-client"
	app.Usage = "Resolve and pay send destinations"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Value: "localhost:10009",
			Usage: "lnd instance rpc address",
		},
		&cli.StringFlag{
			Name:  "network",
			Value: "regtest",
			Usage: "the network",
		},
		&cli.StringFlag{
			Name:  "macpath",
			Usage: "Path to lnd's mac dir",
		},
		&cli.StringFlag{
			Name:  "tlspath",
			Usage: "Path to lnd's tls cert",
		},
		&cli.StringFlag{
			Name:  "btcwallet",
			Value: "btc-wallet",
			Usage: "id of the user's BTC wallet",
		},
		&cli.StringFlag{
			Name:  "usdwallet",
			Value: "usd-wallet",
			Usage: "id of the user's USD wallet",
		},
		&cli.StringSliceFlag{
			Name: "account",
			Usage: "a known account as handle=walletid, may be " +
				"repeated",
		},
		&cli.StringSliceFlag{
			Name:  "contact",
			Usage: "a handle paid without confirmation",
		},
		&cli.StringSliceFlag{
			Name:  "lnurldomain",
			Usage: "a host whose https urls are lnurl-pay endpoints",
		},
		&cli.StringSliceFlag{
			Name: "paycodehost",
			Usage: "a host whose https://host/<handle> urls are " +
				"pay codes",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip tls verification of lnurl services",
		},
		&cli.StringFlag{
			Name:  "debuglevel",
			Value: "off",
			Usage: "logging level",
		},
	}
	app.Before = setupLogging
	app.Commands = append(app.Commands, parseCommand, payRequestCommand)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[sendpay-client] %v\n", err)
	os.Exit(1)
}

func setupLogging(ctx *cli.Context) error {
	level, ok := btclog.LevelFromString(ctx.String("debuglevel"))
	if !ok {
		return fmt.Errorf("unknown debug level %q",
			ctx.String("debuglevel"))
	}

	backend := btclog.NewBackend(os.Stderr)
	loggers := map[string]func(btclog.Logger){
		destination.Subsystem:   destination.UseLogger,
		paymentdetail.Subsystem: paymentdetail.UseLogger,
		lnurl.Subsystem:         lnurl.UseLogger,
		invoice.Subsystem:       invoice.UseLogger,
	}
	for subsystem, use := range loggers {
		logger := backend.Logger(subsystem)
		logger.SetLevel(level)
		use(logger)
	}

	return nil
}

// staticAccounts is an account directory given on the command line.
type staticAccounts map[string]money.WalletID

func (s staticAccounts) LookupWalletByHandle(_ context.Context,
	handle string) (money.WalletID, error) {

	id, ok := s[handle]
	if !ok {
		return "", destination.ErrHandleNotFound
	}

	return id, nil
}

func parseAccounts(specs []string) (staticAccounts, error) {
	accounts := make(staticAccounts, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid account %q, expected "+
				"handle=walletid", spec)
		}

		accounts[strings.ToLower(parts[0])] = money.WalletID(parts[1])
	}

	return accounts, nil
}

func wallets(ctx *cli.Context) money.Wallets {
	return money.Wallets{
		BTC: money.WalletDescriptor{
			ID:       money.WalletID(ctx.String("btcwallet")),
			Currency: money.BTC,
		},
		USD: money.WalletDescriptor{
			ID:       money.WalletID(ctx.String("usdwallet")),
			Currency: money.USD,
		},
	}
}

func httpClient(ctx *cli.Context) *http.Client {
	client := &http.Client{Timeout: time.Minute}
	if ctx.Bool("insecure") {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

func network(ctx *cli.Context) (chain.Network, error) {
	return chain.ParseNetwork(ctx.String("network"))
}

// newMachine builds the destination state machine from the global flags.
func newMachine(ctx *cli.Context, client *lnurl.Client) (
	*destination.Machine, error) {

	net, err := network(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := parseAccounts(ctx.StringSlice("account"))
	if err != nil {
		return nil, err
	}

	parser, err := destination.NewParser(&destination.Config{
		Network:      net,
		MyWalletIDs:  wallets(ctx).IDs(),
		LnurlDomains: ctx.StringSlice("lnurldomain"),
		PayCodeHosts: ctx.StringSlice("paycodehost"),
		Accounts:     accounts,
		Lnurl:        client,
	})
	if err != nil {
		return nil, err
	}

	contacts := ctx.StringSlice("contact")

	return destination.NewMachine(parser, contacts), nil
}

func newConverter(ctx *cli.Context) (money.ConvertFunc, error) {
	price, err := decimal.NewFromString(ctx.String("btcprice"))
	if err != nil {
		return nil, fmt.Errorf("invalid btc price: %w", err)
	}

	display, err := decimal.NewFromString(ctx.String("displayrate"))
	if err != nil {
		return nil, fmt.Errorf("invalid display rate: %w", err)
	}

	return money.NewConverter(money.Prices{
		BTCPrice:       price,
		DisplayPerCent: display,
	})
}

func getLND(ctx *cli.Context) (*lndclient.GrpcLndServices, error) {
	return lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  ctx.String("host"),
		Network:     lndclient.Network(ctx.String("network")),
		MacaroonDir: ctx.String("macpath"),
		TLSPath:     ctx.String("tlspath"),
	})
}

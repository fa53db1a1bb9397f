package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "sendpay-server"
	app.Usage = "LNURL-pay service backed by lnd"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "listen",
			Value: "localhost:8080",
			Usage: "address to serve http on",
		},
		&cli.StringFlag{
			Name:  "baseurl",
			Value: "http://localhost:8080",
			Usage: "public url the service is reachable on",
		},
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
		&cli.Int64Flag{
			Name:  "minsendable",
			Value: 1_000,
			Usage: "smallest payment accepted (in millisats)",
		},
		&cli.Int64Flag{
			Name:  "maxsendable",
			Value: 100_000_000,
			Usage: "largest payment accepted (in millisats)",
		},
		&cli.IntFlag{
			Name:  "commentallowed",
			Value: 140,
			Usage: "longest comment accepted, 0 to refuse comments",
		},
		&cli.StringFlag{
			Name:  "description",
			Value: "sendpay",
			Usage: "description shown to payers",
		},
		&cli.StringFlag{
			Name:  "debuglevel",
			Value: "info",
			Usage: "logging level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[sendpay-server] %v\n", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	level, ok := btclog.LevelFromString(ctx.String("debuglevel"))
	if !ok {
		return fmt.Errorf("unknown debug level %q",
			ctx.String("debuglevel"))
	}

	logger := btclog.NewBackend(os.Stdout).Logger(lnurl.Subsystem)
	logger.SetLevel(level)
	lnurl.UseLogger(logger)

	lnd, err := lndclient.NewLndServices(&lndclient.LndServicesConfig{
		LndAddress:  ctx.String("host"),
		Network:     lndclient.Network(ctx.String("network")),
		MacaroonDir: ctx.String("macpath"),
		TLSPath:     ctx.String("tlspath"),
	})
	if err != nil {
		return fmt.Errorf("could not connect to LND: %w", err)
	}
	defer lnd.Close()

	info, err := lnd.Client.GetInfo(ctx.Context)
	if err != nil {
		return err
	}
	logger.Infof("Connected to node with alias: %s", info.Alias)

	server, err := lnurl.NewServer(&lnurl.Config{
		BaseURL:        ctx.String("baseurl"),
		MinSendable:    lnwire.MilliSatoshi(ctx.Int64("minsendable")),
		MaxSendable:    lnwire.MilliSatoshi(ctx.Int64("maxsendable")),
		CommentAllowed: ctx.Int("commentallowed"),
		Description:    ctx.String("description"),
	}, lnd.Client)
	if err != nil {
		return err
	}

	if err := printHello(server, ctx.String("baseurl")); err != nil {
		return err
	}

	return http.ListenAndServe(ctx.String("listen"), server)
}

func printHello(server *lnurl.Server, baseURL string) error {
	payLNURL, err := server.StaticLNURL()
	if err != nil {
		return err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return err
	}
	payCode := fmt.Sprintf("lnurlp://%s%s/pay", base.Host,
		strings.TrimSuffix(base.Path, "/"))

	fmt.Printf(
		""+
			"=======================================\n"+
			"Welcome to sendpay!\n"+
			"Your static LNURL-pay code is: \n"+
			"- %s\n"+
			"- lightning:%s\n"+
			"- %s\n"+
			"=======================================\n",
		payLNURL, payLNURL, payCode,
	)

	return nil
}

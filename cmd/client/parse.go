package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ellemouton/sendpay/destination"
	"github.com/ellemouton/sendpay/lnurl"
	"github.com/urfave/cli/v2"
)

var yesFlag = &cli.BoolFlag{
	Name:  "yes",
	Usage: "confirm new usernames without asking",
}

var parseCommand = &cli.Command{
	Name:        "parse",
	Usage:       "Resolve a destination",
	ArgsUsage:   "destination",
	Description: `Parse an address, invoice, LNURL or username`,
	Flags:       []cli.Flag{yesFlag},
	Action:      parseDestination,
}

func parseDestination(ctx *cli.Context) error {
	raw := ctx.Args().First()
	if raw == "" {
		return fmt.Errorf("missing destination argument")
	}

	machine, err := newMachine(ctx, lnurl.NewClient(httpClient(ctx)))
	if err != nil {
		return err
	}

	dest, err := resolveDestination(ctx, machine, raw)
	if err != nil {
		return err
	}

	fmt.Printf("%s destination: %+v\n", dest.PaymentType(), dest)

	return nil
}

// resolveDestination runs raw through the state machine until it is valid,
// asking the user to confirm new usernames.
func resolveDestination(ctx *cli.Context, machine *destination.Machine,
	raw string) (destination.Destination, error) {

	machine.SetInput(raw)

	validation, err := machine.Validate(ctx.Context)
	if err != nil {
		return nil, err
	}

	if self := validation.SelfPayment(); self != nil {
		return nil, fmt.Errorf("%s is your own wallet %s, convert "+
			"between your wallets instead", self.Handle,
			self.WalletID)
	}

	state := validation.State
	switch state.Status {
	case destination.StatusInvalid:
		if state.Rejection == nil {
			return nil, fmt.Errorf("invalid destination")
		}

		return nil, state.Rejection

	case destination.StatusRequiresConfirmation:
		confirmation, ok := state.Confirmation.(destination.NewUsername)
		if !ok {
			return nil, fmt.Errorf("unknown confirmation %T",
				state.Confirmation)
		}

		if !ctx.Bool("yes") && !ask(fmt.Sprintf("%s is not among your "+
			"contacts. Pay them anyway?", confirmation.Handle)) {

			return nil, fmt.Errorf("destination not confirmed")
		}

		state, err = machine.Confirm()
		if err != nil {
			return nil, err
		}
	}

	if state.Status != destination.StatusValid {
		return nil, fmt.Errorf("destination is %s", state.Status)
	}

	return state.Destination, nil
}

func ask(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N] ", question)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}

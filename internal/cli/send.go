package cli

import (
	"context"
	"fmt"
	"io"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
	"github.com/rileyhilliard/zonedash/internal/relay"
	"github.com/rileyhilliard/zonedash/internal/ui"
)

func sendCommand(ctx context.Context, w io.Writer, nodeArg, name string, args []string) error {
	payload, err := relay.ParseCommand(name, args)
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	node, err := a.node(nodeArg)
	if err != nil {
		return err
	}
	dispatcher, closeDispatcher, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	return sendPayload(ctx, w, dispatcher, node, payload)
}

// sendPayload dispatches one command behind a spinner. A failed outcome is
// returned as an error so the process exits non-zero.
func sendPayload(ctx context.Context, w io.Writer, d relay.Dispatcher, node string, payload relay.Payload) error {
	spinner := ui.NewSpinner(fmt.Sprintf("Sending %s to %s", payload.Name(), node))
	spinner.SetOutput(func(s string) { fmt.Fprint(w, s) })
	spinner.Start()

	out := d.Send(ctx, node, payload)
	if !out.Success {
		spinner.Fail(out.Message)
		return zderrors.New(zderrors.ErrRelay,
			fmt.Sprintf("%s was not delivered to %s: %s", payload.Name(), node, out.Message),
			"Check relay.url (or the MQTT broker) and that the relay is running.")
	}
	spinner.Success(out.Message)
	return nil
}

// Package cli implements the kiosk front-end commands. The kiosk is a pure
// bus client: it never touches the database, it only renders the
// instructions the orchestrator publishes and submits control messages for
// scans made at the kiosk itself.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openkiosk/container-tracker/internal/bus"
	"github.com/openkiosk/container-tracker/internal/config"
	"github.com/openkiosk/container-tracker/internal/instruction"
)

func connect() (*bus.Bus, error) {
	_ = godotenv.Load()
	return bus.Connect(config.BrokerURL(), config.ExchangeName())
}

// WatchCmd renders the orchestrator's instructions on the terminal until
// interrupted. This is the kiosk's display loop.
func WatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Render tracker instructions from the bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			if err := b.Subscribe(render); err != nil {
				return err
			}
			color.Cyan("Container Tracking")
			color.White("Waiting for instructions...")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
}

// render maps one bus payload to a line on the kiosk screen. Unknown
// payloads are ignored, matching the tolerant behavior of the original
// display.
func render(payload string) {
	ins, err := instruction.Decode(payload)
	if err != nil {
		return
	}
	switch ins.Kind {
	case instruction.KindPrompt:
		switch ins.Prompt {
		case instruction.PromptContainerScan:
			mode := "Checkout"
			if ins.Op == instruction.OpReturn {
				mode = "Return"
			}
			color.Yellow("[%s] Scan the container barcode.", mode)
		case instruction.PromptBadgeScan:
			color.Yellow("[Checkout] Scan the user badge.")
		case instruction.PromptIdle:
			color.White("Waiting for instructions...")
		}
	case instruction.KindResult:
		if ins.Outcome == instruction.OutcomeSuccess {
			color.Green("✅ %s", ins.Message)
		} else {
			color.Red("❌ %s", ins.Message)
		}
	case instruction.KindControl:
		// submissions from other front ends, nothing to display
	}
}

// CheckoutCmd submits a checkout for a container scanned at the kiosk.
func CheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <serial> <badge>",
		Short: "Submit a container checkout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(instruction.Control(instruction.OpCheckout, args[0], args[1]))
		},
	}
}

// ReturnCmd submits a container return.
func ReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <serial>",
		Short: "Submit a container return",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(instruction.Control(instruction.OpReturn, args[0]))
		},
	}
}

func submit(ins instruction.Instruction) error {
	payload, err := instruction.Encode(ins)
	if err != nil {
		return err
	}
	b, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Publish(ctx, payload); err != nil {
		return fmt.Errorf("publish %q: %w", payload, err)
	}
	fmt.Printf("submitted %s\n", payload)
	return nil
}

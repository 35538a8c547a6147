// Package console is the terminal front end that runs inside the server
// process: a numbered menu on stdin through which an operator registers
// containers and users, runs checkout and return flows, and inspects the
// ledger. Results are mirrored locally in addition to being published on the
// bus for the other front ends.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/openkiosk/container-tracker/internal/instruction"
	"github.com/openkiosk/container-tracker/internal/model"
)

// Driver is the slice of the orchestrator the console drives.
type Driver interface {
	Begin(ctx context.Context, op instruction.Operation) error
	Scan(ctx context.Context, value string) (string, error)
	RegisterContainer(ctx context.Context, serial string) string
	RegisterUser(ctx context.Context, name, badge string) string
}

// Lister provides the read-only snapshot for the report option.
type Lister interface {
	ListAll(ctx context.Context) ([]model.User, []model.ContainerView, error)
}

// Console reads menu selections from in and writes prompts and results to
// out.
type Console struct {
	drv    Driver
	lister Lister
	in     *bufio.Scanner
	out    io.Writer

	good *color.Color
	bad  *color.Color
	head *color.Color
}

// New returns a Console reading from in and writing to out.
func New(drv Driver, lister Lister, in io.Reader, out io.Writer) *Console {
	return &Console{
		drv:    drv,
		lister: lister,
		in:     bufio.NewScanner(in),
		out:    out,
		good:   color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		head:   color.New(color.FgCyan, color.Bold),
	}
}

// Run loops over the menu until the operator exits or input is exhausted.
// Input reads block, so cancellation of ctx takes effect at the next prompt.
func (c *Console) Run(ctx context.Context) {
	for ctx.Err() == nil {
		c.head.Fprintln(c.out, "\n-- Container Tracking System --")
		fmt.Fprintln(c.out, "1. Add Containers and Users")
		fmt.Fprintln(c.out, "2. Checkout Container")
		fmt.Fprintln(c.out, "3. Return Container")
		fmt.Fprintln(c.out, "4. Show Users and Containers")
		fmt.Fprintln(c.out, "5. Exit")

		choice, ok := c.prompt("Choose an option: ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			c.addEntry(ctx)
		case "2":
			c.runFlow(ctx, instruction.OpCheckout)
		case "3":
			c.runFlow(ctx, instruction.OpReturn)
		case "4":
			c.report(ctx)
		case "5":
			fmt.Fprintln(c.out, "Exiting the program...")
			return
		default:
			fmt.Fprintln(c.out, "Invalid choice, please try again.")
		}
	}
}

func (c *Console) addEntry(ctx context.Context) {
	mode, ok := c.prompt("Would you like to add a container (C) or a user (U)? ")
	if !ok {
		return
	}
	switch strings.ToUpper(mode) {
	case "C":
		serial, ok := c.prompt("Enter container serial number: ")
		if !ok {
			return
		}
		c.printResult(c.drv.RegisterContainer(ctx, serial))
	case "U":
		name, ok := c.prompt("Enter user name: ")
		if !ok {
			return
		}
		badge, ok := c.prompt("Enter user badge ID: ")
		if !ok {
			return
		}
		c.printResult(c.drv.RegisterUser(ctx, name, badge))
	default:
		fmt.Fprintln(c.out, "Invalid choice. Please choose either 'C' for container or 'U' for user.")
	}
}

func (c *Console) runFlow(ctx context.Context, op instruction.Operation) {
	if err := c.drv.Begin(ctx, op); err != nil {
		c.bad.Fprintf(c.out, "could not start %s: %v\n", op, err)
		return
	}
	label := "Enter container serial number to checkout: "
	if op == instruction.OpReturn {
		label = "Enter container serial number to return: "
	}
	serial, ok := c.prompt(label)
	if !ok {
		return
	}
	result, err := c.drv.Scan(ctx, serial)
	if err != nil {
		c.bad.Fprintf(c.out, "scan failed: %v\n", err)
		return
	}
	if op == instruction.OpCheckout {
		badge, ok := c.prompt("Enter user badge ID: ")
		if !ok {
			return
		}
		result, err = c.drv.Scan(ctx, badge)
		if err != nil {
			c.bad.Fprintf(c.out, "scan failed: %v\n", err)
			return
		}
	}
	c.printResult(result)
}

func (c *Console) report(ctx context.Context) {
	users, containers, err := c.lister.ListAll(ctx)
	if err != nil {
		c.bad.Fprintf(c.out, "could not read ledger: %v\n", err)
		return
	}

	c.head.Fprintln(c.out, "\n-- Users --")
	if len(users) == 0 {
		fmt.Fprintln(c.out, "No users found.")
	}
	for _, u := range users {
		fmt.Fprintf(c.out, "ID: %d, Name: %s, Badge ID: %s\n", u.ID, u.Name, u.BadgeID)
	}

	c.head.Fprintln(c.out, "\n-- Containers --")
	if len(containers) == 0 {
		fmt.Fprintln(c.out, "No containers found.")
	}
	for _, cv := range containers {
		holder := "No user assigned"
		if cv.HolderName != "" {
			holder = cv.HolderName
		}
		fmt.Fprintf(c.out, "ID: %d, Serial Number: %s, Assigned to: %s\n", cv.ID, cv.SerialNumber, holder)
	}
}

func (c *Console) printResult(result string) {
	if strings.HasPrefix(result, "Success") {
		c.good.Fprintln(c.out, result)
		return
	}
	c.bad.Fprintln(c.out, result)
}

// prompt writes a label and reads one trimmed line. ok is false when input is
// exhausted.
func (c *Console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

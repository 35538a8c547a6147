// Package orchestrator drives the custody workflow. It is the single owner of
// the "what happens next" decision: front ends only submit raw scans and
// render the instructions published back at them.
//
// The orchestrator runs one mode at a time: idle, awaiting a container scan,
// or awaiting a badge scan. Local operator input (the terminal console)
// advances the mode step by step; control messages arriving over the bus from
// remote front ends are executed as one-shot requests regardless of the local
// mode. Two front ends can therefore race conflicting operations against the
// same container; the ledger's per-call transaction makes the outcome
// last-write-wins rather than a corrupted row.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/openkiosk/container-tracker/internal/instruction"
	"github.com/openkiosk/container-tracker/internal/model"
	"github.com/openkiosk/container-tracker/internal/repository"
)

// Ledger is the slice of the repository the orchestrator drives.
type Ledger interface {
	Checkout(ctx context.Context, serial, badge string) (string, error)
	Return(ctx context.Context, serial string) error
	RegisterContainer(ctx context.Context, serial string) (model.Container, error)
	RegisterUser(ctx context.Context, name, badge string) (model.User, error)
}

// Publisher sends one payload to the shared topic. Satisfied by *bus.Bus.
type Publisher interface {
	Publish(ctx context.Context, payload string) error
}

// State is the orchestrator's current mode.
type State int

const (
	StateIdle State = iota
	StateAwaitingContainerScan
	StateAwaitingBadgeScan
)

// ErrNoOperation is returned by Scan when no flow has been started.
var ErrNoOperation = errors.New("no operation in progress")

const handleTimeout = 5 * time.Second

// Orchestrator coordinates the ledger, the bus, and the front ends. Create
// one per process with New; all methods are safe for concurrent use.
type Orchestrator struct {
	ledger     Ledger
	pub        Publisher
	resetDelay time.Duration

	mu     sync.Mutex
	state  State
	op     instruction.Operation
	serial string
	// epoch counts transitions. The delayed idle prompt captures the epoch it
	// was scheduled under and fires only if no newer transition happened, so
	// a superseded reset cannot clobber a flow started after it.
	epoch uint64
	timer *time.Timer
}

// New builds an Orchestrator. resetDelay is how long front ends get to hold a
// result on screen before the idle prompt is published; values <= 0 fall back
// to two seconds.
func New(ledger Ledger, pub Publisher, resetDelay time.Duration) *Orchestrator {
	if resetDelay <= 0 {
		resetDelay = 2 * time.Second
	}
	return &Orchestrator{ledger: ledger, pub: pub, resetDelay: resetDelay}
}

// State reports the current mode.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Begin starts a checkout or return flow and publishes the container-scan
// prompt. Starting a flow supersedes any flow or pending reset in progress.
func (o *Orchestrator) Begin(ctx context.Context, op instruction.Operation) error {
	if op != instruction.OpCheckout && op != instruction.OpReturn {
		return fmt.Errorf("unknown operation %q", op)
	}
	o.mu.Lock()
	o.supersedeLocked()
	o.state = StateAwaitingContainerScan
	o.op = op
	o.serial = ""
	o.mu.Unlock()

	o.publish(ctx, instruction.ContainerPrompt(op))
	return nil
}

// Scan feeds one operator-entered value into the current flow. During a
// checkout it consumes first the container serial, then the badge code; during
// a return it consumes the serial and executes immediately. The returned
// string is the result line published on the bus (empty when the flow is not
// finished yet), so the console can mirror it to the operator.
func (o *Orchestrator) Scan(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)

	o.mu.Lock()
	switch o.state {
	case StateIdle:
		o.mu.Unlock()
		return "", ErrNoOperation

	case StateAwaitingContainerScan:
		if o.op == instruction.OpCheckout {
			o.serial = value
			o.state = StateAwaitingBadgeScan
			o.mu.Unlock()
			o.publish(ctx, instruction.BadgePrompt())
			return "", nil
		}
		o.toIdleLocked()
		o.mu.Unlock()
		return o.runReturn(ctx, value), nil

	case StateAwaitingBadgeScan:
		serial := o.serial
		o.toIdleLocked()
		o.mu.Unlock()
		return o.runCheckout(ctx, serial, value), nil
	}
	o.mu.Unlock()
	return "", fmt.Errorf("invalid state %d", o.state)
}

// HandleMessage is the bus delivery handler. Control submissions from remote
// front ends short-circuit straight to execution; prompts and results are
// addressed to front ends and skipped; anything unparseable is dropped with a
// log line. Nothing here is fatal: the orchestrator keeps listening.
func (o *Orchestrator) HandleMessage(payload string) {
	ins, err := instruction.Decode(payload)
	if err != nil {
		log.Printf("orchestrator: dropping message %q: %v", payload, err)
		return
	}
	if ins.Kind != instruction.KindControl {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	switch ins.Op {
	case instruction.OpCheckout:
		o.runCheckout(ctx, ins.Fields[0], ins.Fields[1])
	case instruction.OpReturn:
		o.runReturn(ctx, ins.Fields[0])
	}
}

// RegisterContainer adds a container to the ledger and announces the outcome
// on the bus, returning the published line for the console.
func (o *Orchestrator) RegisterContainer(ctx context.Context, serial string) string {
	if _, err := o.ledger.RegisterContainer(ctx, serial); err != nil {
		msg := "could not add container"
		if errors.Is(err, repository.ErrContainerExists) {
			msg = fmt.Sprintf("Container %s already exists", serial)
		} else {
			log.Printf("orchestrator: register container %s: %v", serial, err)
		}
		return o.emitResult(ctx, instruction.Failure(msg))
	}
	return o.emitResult(ctx, instruction.Success(fmt.Sprintf("Container %s added", serial)))
}

// RegisterUser adds a user to the ledger and announces the outcome on the
// bus, returning the published line for the console.
func (o *Orchestrator) RegisterUser(ctx context.Context, name, badge string) string {
	if _, err := o.ledger.RegisterUser(ctx, name, badge); err != nil {
		msg := "could not add user"
		if errors.Is(err, repository.ErrUserExists) {
			msg = fmt.Sprintf("User %s with badge ID %s already exists", name, badge)
		} else {
			log.Printf("orchestrator: register user %s: %v", name, err)
		}
		return o.emitResult(ctx, instruction.Failure(msg))
	}
	return o.emitResult(ctx, instruction.Success(fmt.Sprintf("User %s with badge ID %s added", name, badge)))
}

func (o *Orchestrator) runCheckout(ctx context.Context, serial, badge string) string {
	name, err := o.ledger.Checkout(ctx, serial, badge)
	if err != nil {
		log.Printf("orchestrator: checkout %s to badge %s: %v", serial, badge, err)
		return o.emitResult(ctx, instruction.Failure(checkoutFailureText(err, serial, badge)))
	}
	return o.emitResult(ctx, instruction.Success(name))
}

func (o *Orchestrator) runReturn(ctx context.Context, serial string) string {
	if err := o.ledger.Return(ctx, serial); err != nil {
		log.Printf("orchestrator: return %s: %v", serial, err)
		msg := "return failed"
		if errors.Is(err, repository.ErrContainerNotFound) {
			msg = fmt.Sprintf("Container %s does not exist", serial)
		}
		return o.emitResult(ctx, instruction.Failure(msg))
	}
	return o.emitResult(ctx, instruction.Success(fmt.Sprintf("Container %s returned", serial)))
}

func checkoutFailureText(err error, serial, badge string) string {
	switch {
	case errors.Is(err, repository.ErrContainerNotFound):
		return fmt.Sprintf("Container %s does not exist", serial)
	case errors.Is(err, repository.ErrUserNotFound):
		return fmt.Sprintf("User with badge ID %s does not exist", badge)
	default:
		return "checkout failed"
	}
}

// emitResult publishes a result and schedules the delayed idle prompt that
// tells front ends to revert their displays. It returns the published line.
func (o *Orchestrator) emitResult(ctx context.Context, res instruction.Instruction) string {
	payload, err := instruction.Encode(res)
	if err != nil {
		// A message text colliding with the opposite outcome marker would be
		// decoded as the wrong outcome by the front ends; fall back to a bare
		// marker rather than publish an ambiguous line.
		log.Printf("orchestrator: encode result: %v", err)
		fallback := instruction.Success("")
		if res.Outcome == instruction.OutcomeError {
			fallback = instruction.Failure("operation failed")
		}
		payload, _ = instruction.Encode(fallback)
	}
	if err := o.pub.Publish(ctx, payload); err != nil {
		log.Printf("orchestrator: publish result: %v", err)
	}
	o.scheduleIdleReset()
	return payload
}

// scheduleIdleReset arms the one-shot timer that publishes the idle prompt
// after the display delay. The timer captures the current epoch; any later
// transition bumps the epoch and stops the timer, so a stale reset never
// fires after a new flow has started.
func (o *Orchestrator) scheduleIdleReset() {
	o.mu.Lock()
	epoch := o.epoch
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.resetDelay, func() {
		o.mu.Lock()
		stale := o.epoch != epoch
		o.mu.Unlock()
		if stale {
			return
		}
		o.publish(context.Background(), instruction.IdlePrompt())
	})
	o.mu.Unlock()
}

func (o *Orchestrator) supersedeLocked() {
	o.epoch++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) toIdleLocked() {
	o.supersedeLocked()
	o.state = StateIdle
	o.op = ""
	o.serial = ""
}

func (o *Orchestrator) publish(ctx context.Context, ins instruction.Instruction) {
	payload, err := instruction.Encode(ins)
	if err != nil {
		log.Printf("orchestrator: encode instruction: %v", err)
		return
	}
	if err := o.pub.Publish(ctx, payload); err != nil {
		log.Printf("orchestrator: publish %q: %v", payload, err)
	}
}

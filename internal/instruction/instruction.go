// Package instruction encodes and decodes the plain-text control protocol
// exchanged over the message bus. The wire format is a small set of
// human-readable tokens shared with the non-Go kiosk peers:
//
//	checkout                         prompt: scan a container (checkout flow)
//	return                           prompt: scan a container (return flow)
//	checkout:badge                   prompt: scan a badge
//	idle                             prompt: revert to the idle screen
//	control:checkout:<serial>:<badge> submit a checkout
//	control:return:<serial>          submit a return
//	Success: <text> / Error: <text>  operation results
//
// Results carry a fixed leading marker, but decoding tolerates the marker
// anywhere in the text (case-insensitively) so payloads from legacy peers
// still parse. The encoder therefore rejects result messages whose free text
// contains the opposite marker, which would make the payload ambiguous.
package instruction

import (
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the three instruction shapes on the wire.
type Kind int

const (
	KindPrompt Kind = iota // orchestrator -> front ends: show an input screen
	KindControl            // front end -> orchestrator: submit an operation
	KindResult             // orchestrator -> front ends: outcome of an operation
)

// Operation names the two custody flows.
type Operation string

const (
	OpCheckout Operation = "checkout"
	OpReturn   Operation = "return"
)

// PromptKind selects which input screen a Prompt asks front ends to show.
type PromptKind int

const (
	PromptIdle PromptKind = iota
	PromptContainerScan
	PromptBadgeScan
)

// Outcome tags a Result as success or error.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

// Instruction is the tagged value carried on the bus. Kind selects which of
// the remaining fields are meaningful.
type Instruction struct {
	Kind    Kind
	Prompt  PromptKind // KindPrompt
	Op      Operation  // KindPrompt (container scan) and KindControl
	Fields  []string   // KindControl: operator-entered scan values
	Outcome Outcome    // KindResult
	Message string     // KindResult: human-readable outcome text
}

// ErrUnrecognized is returned by Decode for payloads that match no known
// token, including control messages with a bad field count.
var ErrUnrecognized = errors.New("unrecognized instruction")

// ErrAmbiguousMessage is returned by Encode when a result's text contains the
// opposite outcome's marker and would decode as the wrong outcome.
var ErrAmbiguousMessage = errors.New("result message contains a conflicting outcome marker")

const controlPrefix = "control:"

var (
	successMarkers = []string{"success"}
	errorMarkers   = []string{"error", "invalid"}
)

// ContainerPrompt directs front ends to show the container-scan screen for
// the given operation.
func ContainerPrompt(op Operation) Instruction {
	return Instruction{Kind: KindPrompt, Prompt: PromptContainerScan, Op: op}
}

// BadgePrompt directs front ends to show the badge-scan screen.
func BadgePrompt() Instruction {
	return Instruction{Kind: KindPrompt, Prompt: PromptBadgeScan, Op: OpCheckout}
}

// IdlePrompt directs front ends to revert to the idle screen.
func IdlePrompt() Instruction {
	return Instruction{Kind: KindPrompt, Prompt: PromptIdle}
}

// Control builds a front-end submission for the given operation.
func Control(op Operation, fields ...string) Instruction {
	return Instruction{Kind: KindControl, Op: op, Fields: fields}
}

// Success builds a success result with the given text.
func Success(message string) Instruction {
	return Instruction{Kind: KindResult, Outcome: OutcomeSuccess, Message: message}
}

// Failure builds an error result with the given text.
func Failure(message string) Instruction {
	return Instruction{Kind: KindResult, Outcome: OutcomeError, Message: message}
}

func containsAny(s string, markers []string) bool {
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// arity returns how many fields a control message must carry for op.
func arity(op Operation) (int, bool) {
	switch op {
	case OpCheckout:
		return 2, true // container serial + badge code
	case OpReturn:
		return 1, true // container serial only
	default:
		return 0, false
	}
}

// Encode serializes an instruction to its wire form.
func Encode(ins Instruction) (string, error) {
	switch ins.Kind {
	case KindPrompt:
		switch ins.Prompt {
		case PromptIdle:
			return "idle", nil
		case PromptContainerScan:
			if _, ok := arity(ins.Op); !ok {
				return "", fmt.Errorf("encode prompt: unknown operation %q", ins.Op)
			}
			return string(ins.Op), nil
		case PromptBadgeScan:
			return "checkout:badge", nil
		}
		return "", fmt.Errorf("encode prompt: unknown prompt kind %d", ins.Prompt)

	case KindControl:
		want, ok := arity(ins.Op)
		if !ok {
			return "", fmt.Errorf("encode control: unknown operation %q", ins.Op)
		}
		if len(ins.Fields) != want {
			return "", fmt.Errorf("encode control: %s expects %d field(s), got %d", ins.Op, want, len(ins.Fields))
		}
		for _, f := range ins.Fields {
			if strings.Contains(f, ":") {
				return "", fmt.Errorf("encode control: field %q contains the delimiter", f)
			}
		}
		return controlPrefix + string(ins.Op) + ":" + strings.Join(ins.Fields, ":"), nil

	case KindResult:
		marker, opposite := "Success", errorMarkers
		if ins.Outcome == OutcomeError {
			marker, opposite = "Error", successMarkers
		}
		if containsAny(ins.Message, opposite) {
			return "", ErrAmbiguousMessage
		}
		if ins.Message == "" {
			return marker, nil
		}
		return marker + ": " + ins.Message, nil
	}
	return "", fmt.Errorf("encode: unknown instruction kind %d", ins.Kind)
}

// Decode parses a wire payload into an Instruction. Marker matching is
// case-insensitive; control field values keep their original case. Payloads
// that match nothing, and control messages with the wrong field count, yield
// an error wrapping ErrUnrecognized so callers can drop them uniformly.
func Decode(raw string) (Instruction, error) {
	text := strings.TrimSpace(raw)
	switch strings.ToLower(text) {
	case "checkout":
		return ContainerPrompt(OpCheckout), nil
	case "return":
		return ContainerPrompt(OpReturn), nil
	case "checkout:badge":
		return BadgePrompt(), nil
	case "idle":
		return IdlePrompt(), nil
	}

	if strings.HasPrefix(strings.ToLower(text), controlPrefix) {
		parts := strings.Split(text, ":")
		// parts[0] == "control", parts[1] == operation, the rest are fields.
		op := Operation(strings.ToLower(parts[1]))
		want, ok := arity(op)
		if !ok {
			return Instruction{}, fmt.Errorf("%w: unknown control operation %q", ErrUnrecognized, parts[1])
		}
		if len(parts)-2 != want {
			return Instruction{}, fmt.Errorf("%w: %s control expects %d field(s), got %d",
				ErrUnrecognized, op, want, len(parts)-2)
		}
		for _, f := range parts[2:] {
			if strings.TrimSpace(f) == "" {
				return Instruction{}, fmt.Errorf("%w: %s control has an empty field", ErrUnrecognized, op)
			}
		}
		return Control(op, parts[2:]...), nil
	}

	if containsAny(text, successMarkers) {
		return Success(text), nil
	}
	if containsAny(text, errorMarkers) {
		return Failure(text), nil
	}
	return Instruction{}, fmt.Errorf("%w: %q", ErrUnrecognized, text)
}

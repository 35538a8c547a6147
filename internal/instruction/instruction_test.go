package instruction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePrompts(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		prompt PromptKind
		op     Operation
	}{
		{"checkout container scan", "checkout", PromptContainerScan, OpCheckout},
		{"return container scan", "return", PromptContainerScan, OpReturn},
		{"badge scan", "checkout:badge", PromptBadgeScan, OpCheckout},
		{"idle", "idle", PromptIdle, ""},
		{"case insensitive", "RETURN", PromptContainerScan, OpReturn},
		{"surrounding whitespace", "  checkout \n", PromptContainerScan, OpCheckout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := Decode(tt.raw)
			require.NoError(t, err)
			require.Equal(t, KindPrompt, ins.Kind)
			require.Equal(t, tt.prompt, ins.Prompt)
			if tt.op != "" {
				require.Equal(t, tt.op, ins.Op)
			}
		})
	}
}

func TestDecodeControl(t *testing.T) {
	ins, err := Decode("control:checkout:ABC123:7788")
	require.NoError(t, err)
	require.Equal(t, KindControl, ins.Kind)
	require.Equal(t, OpCheckout, ins.Op)
	require.Equal(t, []string{"ABC123", "7788"}, ins.Fields)

	ins, err = Decode("control:return:ABC123")
	require.NoError(t, err)
	require.Equal(t, OpReturn, ins.Op)
	require.Equal(t, []string{"ABC123"}, ins.Fields)
}

func TestDecodeControlKeepsFieldCase(t *testing.T) {
	ins, err := Decode("CONTROL:CHECKOUT:AbC123:7788")
	require.NoError(t, err)
	require.Equal(t, OpCheckout, ins.Op)
	require.Equal(t, "AbC123", ins.Fields[0])
}

func TestDecodeControlArity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"checkout missing badge", "control:checkout:ABC123"},
		{"checkout extra field", "control:checkout:a:b:c"},
		{"return missing serial", "control:return"},
		{"return extra field", "control:return:a:b"},
		{"unknown operation", "control:destroy:ABC123"},
		{"empty field", "control:return: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.ErrorIs(t, err, ErrUnrecognized)
		})
	}
}

func TestDecodeResults(t *testing.T) {
	ins, err := Decode("Success: Sam")
	require.NoError(t, err)
	require.Equal(t, KindResult, ins.Kind)
	require.Equal(t, OutcomeSuccess, ins.Outcome)
	require.Equal(t, "Success: Sam", ins.Message)

	// legacy peers put the marker anywhere in free text
	ins, err = Decode("Container C1 added successfully")
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, ins.Outcome)

	ins, err = Decode("Error Container C1 does not exist")
	require.NoError(t, err)
	require.Equal(t, OutcomeError, ins.Outcome)

	ins, err = Decode("Invalid choice. Please try again")
	require.NoError(t, err)
	require.Equal(t, OutcomeError, ins.Outcome)
}

func TestDecodeUnrecognized(t *testing.T) {
	_, err := Decode("scan complete, thanks")
	require.ErrorIs(t, err, ErrUnrecognized)
	_, err = Decode("")
	require.ErrorIs(t, err, ErrUnrecognized)
}

func TestEncodePrompts(t *testing.T) {
	for raw, ins := range map[string]Instruction{
		"checkout":       ContainerPrompt(OpCheckout),
		"return":         ContainerPrompt(OpReturn),
		"checkout:badge": BadgePrompt(),
		"idle":           IdlePrompt(),
	} {
		got, err := Encode(ins)
		require.NoError(t, err)
		require.Equal(t, raw, got)
	}
}

func TestEncodeControlRoundTrip(t *testing.T) {
	payload, err := Encode(Control(OpCheckout, "C100", "4321"))
	require.NoError(t, err)
	require.Equal(t, "control:checkout:C100:4321", payload)

	back, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, Control(OpCheckout, "C100", "4321"), back)
}

func TestEncodeControlRejectsBadFields(t *testing.T) {
	_, err := Encode(Control(OpCheckout, "C100"))
	require.Error(t, err)
	_, err = Encode(Control(OpReturn, "C1:00"))
	require.Error(t, err)
	_, err = Encode(Control(Operation("destroy"), "C100"))
	require.Error(t, err)
}

func TestEncodeResults(t *testing.T) {
	got, err := Encode(Success("Sam"))
	require.NoError(t, err)
	require.Equal(t, "Success: Sam", got)

	got, err = Encode(Success(""))
	require.NoError(t, err)
	require.Equal(t, "Success", got)

	got, err = Encode(Failure("Container C1 does not exist"))
	require.NoError(t, err)
	require.Equal(t, "Error: Container C1 does not exist", got)
}

func TestEncodeRejectsAmbiguousResults(t *testing.T) {
	// a success line containing an error marker would decode as an error
	_, err := Encode(Success("invalid data accepted"))
	require.ErrorIs(t, err, ErrAmbiguousMessage)

	_, err = Encode(Failure("successfully failed"))
	require.ErrorIs(t, err, ErrAmbiguousMessage)
}

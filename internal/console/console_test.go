package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/openkiosk/container-tracker/internal/console"
	"github.com/openkiosk/container-tracker/internal/database"
	"github.com/openkiosk/container-tracker/internal/orchestrator"
	"github.com/openkiosk/container-tracker/internal/repository"
)

type nullPublisher struct{}

func (nullPublisher) Publish(context.Context, string) error { return nil }

func newConsole(t *testing.T, input string) (*console.Console, *bytes.Buffer, *repository.LedgerRepo) {
	t.Helper()
	color.NoColor = true

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.InitSchema(db, "sqlite3"))
	repo := repository.NewLedgerRepo(db)

	orch := orchestrator.New(repo, nullPublisher{}, 10*time.Millisecond)
	out := &bytes.Buffer{}
	return console.New(orch, repo, strings.NewReader(input), out), out, repo
}

func TestMenuCheckoutFlow(t *testing.T) {
	script := strings.Join([]string{
		"1", "C", "C100", // add container
		"1", "U", "Sam", "4321", // add user
		"2", "C100", "4321", // checkout
		"4", // report
		"5", // exit
	}, "\n") + "\n"

	c, out, repo := newConsole(t, script)
	c.Run(context.Background())

	text := out.String()
	require.Contains(t, text, "Success: Container C100 added")
	require.Contains(t, text, "Success: User Sam with badge ID 4321 added")
	require.Contains(t, text, "Success: Sam")
	require.Contains(t, text, "ID: 1, Serial Number: C100, Assigned to: Sam")
	require.Contains(t, text, "Exiting the program...")

	got, err := repo.FindContainerBySerial(context.Background(), "C100")
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
}

func TestMenuReturnFlow(t *testing.T) {
	script := "3\nC100\n5\n"
	c, out, _ := newConsole(t, script)
	c.Run(context.Background())
	require.Contains(t, out.String(), "Error: Container C100 does not exist")
}

func TestMenuInvalidChoice(t *testing.T) {
	c, out, _ := newConsole(t, "9\n5\n")
	c.Run(context.Background())
	require.Contains(t, out.String(), "Invalid choice, please try again.")
}

func TestMenuStopsOnEOF(t *testing.T) {
	c, _, _ := newConsole(t, "")
	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("console did not stop on exhausted input")
	}
}

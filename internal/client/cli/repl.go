package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/rechub/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

type command func(ctx context.Context, args []string) error

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Whoami(ctx context.Context, args []string) error
	Programs(ctx context.Context, args []string) error
	Program(ctx context.Context, args []string) error
	Reviews(ctx context.Context, args []string) error
	Review(ctx context.Context, args []string) error
	Enroll(ctx context.Context, args []string) error
	Enrollments(ctx context.Context, args []string) error
	Seed(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Summary(ctx context.Context, args []string) error
	Email(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Fav(ctx context.Context, args []string) error
	Note(ctx context.Context, args []string) error
	Notes(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: register, login, programs, program <id>, reviews <id>, enroll <id>, fav, note <id>, notes, exit"
	userHelp  = "Available commands: whoami, programs, program <id>, reviews <id>, review <id>, enroll <id>, enrollments [program-id], " +
		"fav [add|rm <id>], note <id>, notes, seed, stats <id>, summary, email <id>, upload <file>, logout, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a.
// The loop ends on EOF, on "exit" or "quit", or when ctx is canceled.
// Command errors are reported to the user and do not stop the loop.
//
// Commands that prompt for more input read it from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	commands := map[string]command{
		"register":    a.Register,
		"login":       a.Login,
		"logout":      a.Logout,
		"whoami":      a.Whoami,
		"programs":    a.Programs,
		"ls":          a.Programs,
		"program":     a.Program,
		"show":        a.Program,
		"reviews":     a.Reviews,
		"review":      a.Review,
		"enroll":      a.Enroll,
		"enrollments": a.Enrollments,
		"seed":        a.Seed,
		"stats":       a.Stats,
		"summary":     a.Summary,
		"email":       a.Email,
		"upload":      a.Upload,
		"fav":         a.Fav,
		"note":        a.Note,
		"notes":       a.Notes,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("rechub [%s] > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		run, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := run(ctx, args); err != nil {
			printlnFn("Error:", describe(err))
		}
	}
}

// describe turns an error into a short message for the prompt.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		return "wrong email or password"
	case errors.Is(err, common.ErrDuplicateEmail):
		return "this email is already registered"
	case errors.Is(err, common.ErrUnauthenticated):
		return "please log in first (" + err.Error() + ")"
	case errors.Is(err, common.ErrPermissionDenied):
		return "your role does not allow this"
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	case errors.Is(err, common.ErrUnconfigured):
		return "the server is not configured for this"
	case errors.Is(err, common.ErrUnavailable):
		return "server unavailable, try again later"
	default:
		return err.Error()
	}
}

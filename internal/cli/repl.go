package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isUnlocked(ctx context.Context) bool

	Setup(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Recover(ctx context.Context) error
	Reset(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	TwoFactor(ctx context.Context, args []string) error

	Add(ctx context.Context) error
	Generate(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Backup(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// Unknown commands are reported back. The loop exits on EOF, on a read error,
// on "exit" or "quit" and when ctx is done.
//
// Errors returned by command handlers are ignored here; handlers report them
// to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(w, "gophvault (%s)> ", statusFn(ctx))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			fmt.Fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isUnlocked(ctx) {
				fmt.Fprintln(w, "Available commands: add, generate, (l)ist, show <id>, edit <id>, delete <id>, import <file.csv>, passwd, 2fa on|off, backup, lock, reset, exit")
			} else {
				fmt.Fprintln(w, "Available commands: setup, unlock, recover, reset, generate, backup, exit")
			}

		case "setup":
			_ = a.Setup(ctx)
		case "unlock":
			_ = a.Unlock(ctx)
		case "lock":
			_ = a.Lock(ctx)
		case "recover":
			_ = a.Recover(ctx)
		case "reset":
			_ = a.Reset(ctx)
		case "passwd":
			_ = a.ChangePassword(ctx)
		case "2fa":
			_ = a.TwoFactor(ctx, args)

		case "add":
			_ = a.Add(ctx)
		case "generate", "gen":
			_ = a.Generate(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "show":
			_ = a.Show(ctx, args)
		case "edit":
			_ = a.Edit(ctx, args)
		case "delete", "rm":
			_ = a.Delete(ctx, args)
		case "import":
			_ = a.Import(ctx, args)
		case "backup":
			_ = a.Backup(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			// last line had no newline
			return
		}
	}
}

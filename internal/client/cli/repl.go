package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	refresh(ctx context.Context)
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Add(ctx context.Context) error
	Remove(ctx context.Context, args []string) error
	Qty(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Clear(ctx context.Context) error
	Merge(ctx context.Context) error
	Sync(ctx context.Context) error
}

// runREPL reads one command per line from scanner and dispatches it to a.
// It returns on EOF or on "exit"/"quit". Command errors are printed and the
// loop continues. Profile and role data are refreshed (when stale) before
// every command.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("shop %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		a.refresh(ctx)

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, add, remove <id>, qty <id> <n>, (l)ist, clear, merge, sync, logout, exit")
			} else {
				printlnFn("Available commands: register, login, add, remove <id>, qty <id> <n>, (l)ist, clear, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "whoami":
			err = a.WhoAmI(ctx)
		case "add":
			err = a.Add(ctx)
		case "remove", "rm":
			err = a.Remove(ctx, args)
		case "qty":
			err = a.Qty(ctx, args)
		case "l", "list":
			err = a.List(ctx)
		case "clear":
			err = a.Clear(ctx)
		case "merge":
			err = a.Merge(ctx)
		case "sync":
			err = a.Sync(ctx)
		default:
			printlnFn("Unknown command:", cmd)
		}
		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

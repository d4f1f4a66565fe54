package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

var errUnknownCommand = errors.New("unknown command")

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests can provide a lightweight stub.
type execIface interface {
	Exec(ctx context.Context, cmd string, args []string) error
}

// runREPL reads one command per line from reader and dispatches it. The loop
// exits on EOF, on "exit"/"quit", or when ctx is cancelled. Command errors
// are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, prompt bool) {
	for ctx.Err() == nil {
		if prompt {
			printlnFn(fmt.Sprintf("ts %s> ", statusFn()))
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn(helpText())

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if err := a.Exec(ctx, cmd, parts[1:]); err != nil {
				if errors.Is(err, errUnknownCommand) {
					printlnFn("Unknown command:", cmd)
				} else {
					printlnFn("Error:", err)
				}
			}
		}
	}
}

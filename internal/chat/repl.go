package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
)

// RunREPL reads one question per line from in and writes answers to out
// until EOF or /exit.
func RunREPL(ctx context.Context, conv Conversation, in io.Reader, out io.Writer, showTrace bool) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "Chatting with %s. %s\n", conv.AgentName(), helpText)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch parseCommand(line) {
		case cmdExit:
			return nil
		case cmdReset:
			conv.Reset()
			fmt.Fprintln(out, "Started a new session.")
			continue
		case cmdTools:
			fmt.Fprintln(out, toolsText(conv))
			continue
		case cmdHelp, cmdUnknown:
			fmt.Fprintln(out, helpText)
			continue
		}

		answer, err := conv.Ask(ctx, line)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if answer != nil && showTrace {
			for _, l := range traceLines(answer) {
				fmt.Fprintln(out, l)
			}
		}
		if err != nil {
			if errors.Is(err, agent.ErrMaxTurns) && answer != nil {
				fmt.Fprintln(out, "The agent ran out of turns before answering.")
				continue
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, answer.Text)
	}
}

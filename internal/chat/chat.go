package chat

import (
	"context"
	"os"

	"golang.org/x/term"
)

type Options struct {
	// ForcePlain selects the line REPL even on a terminal.
	ForcePlain bool
	ShowTrace  bool
}

// Run picks the full-screen UI when stdin and stdout are terminals and the
// line REPL otherwise.
func Run(ctx context.Context, conv Conversation, opts Options) error {
	if !opts.ForcePlain && IsInteractive(os.Stdin, os.Stdout) {
		log.Debug("starting terminal UI")
		return RunTUI(ctx, conv)
	}
	return RunREPL(ctx, conv, os.Stdin, os.Stdout, opts.ShowTrace)
}

func IsInteractive(in, out *os.File) bool {
	return term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd()))
}

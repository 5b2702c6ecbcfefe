package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/firstaid/internal/presentation/tui"
	"github.com/aretw0/firstaid/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// Chatter answers one user message.
type Chatter interface {
	Chat(ctx context.Context, sessionID, text string) (domain.Reply, error)
}

// ChatOptions configures the interactive loop.
type ChatOptions struct {
	// SessionID defaults to a random UUID.
	SessionID string
	In        io.Reader
	Out       io.Writer
	// Render formats every reply. Nil picks glamour on a terminal and plain text otherwise.
	Render  func(string) (string, error)
	Version string
	// Debug prefixes every reply with the session status.
	Debug bool
}

var exitCommands = map[string]bool{"salir": true, "exit": true, "quit": true}

// RunChat reads messages line by line and prints the bot's replies.
// It returns nil on EOF or an exit command.
func RunChat(ctx context.Context, bot Chatter, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	interactive := isTerminal(opts.In) && isTerminal(opts.Out)
	if opts.Render == nil {
		opts.Render = tui.Plain
		if interactive {
			opts.Render = tui.NewRenderer()
		}
	}

	if interactive {
		tui.PrintBanner(opts.Out, opts.Version)
	}
	show(opts, domain.MsgWelcome)

	scanner := bufio.NewScanner(opts.In)
	for {
		if interactive {
			fmt.Fprint(opts.Out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if exitCommands[strings.ToLower(text)] {
			return nil
		}

		reply, err := bot.Chat(ctx, opts.SessionID, text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			show(opts, domain.MsgEscalationFallback)
			continue
		}
		msg := reply.Text
		if opts.Debug {
			msg = fmt.Sprintf("[%s] %s", reply.Status, msg)
		}
		show(opts, msg)
	}
}

func show(opts ChatOptions, text string) {
	out, err := opts.Render(text)
	if err != nil {
		out = text + "\n"
	}
	fmt.Fprint(opts.Out, out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

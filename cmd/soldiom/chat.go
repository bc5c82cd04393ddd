package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/PabloGalante/soldiom/internal/adapters/terminal"
	"github.com/PabloGalante/soldiom/internal/app/conversation"
	"github.com/PabloGalante/soldiom/internal/app/tools"
	"github.com/PabloGalante/soldiom/internal/domain"
)

var (
	chatRole     string
	chatThinking bool
	chatPlain    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long: `Starts an interactive chat. Replies are redrawn in place while they stream.
Press Ctrl-C during a reply to stop it; the partial answer is kept.

Commands:
  /role <id>         switch persona (starts a new chat)
  /think on|off      toggle extended thinking (starts a new chat)
  /reset             start a new chat with the same settings
  /tool <name> text  run an inference tool
  /roles             list personas
  /quit              exit`,
	Args:    cobra.NoArgs,
	PreRunE: loadConfig,
	RunE:    runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatRole, "role", "r", "general", "Persona to talk to")
	chatCmd.Flags().BoolVar(&chatThinking, "thinking", false, "Enable extended thinking")
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "Disable colors")
}

type chatREPL struct {
	svc     *conversation.Service
	session *domain.Session
	render  *terminal.Renderer
	out     io.Writer
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	started, err := svc.StartSession(ctx, conversation.StartSessionInput{
		Role:           domain.ParseRoleType(chatRole),
		EnableThinking: chatThinking,
	})
	if err != nil {
		return err
	}

	opts := terminal.Options{Plain: chatPlain}
	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil {
			opts.Width = w
		}
	} else {
		opts.Plain = true
	}

	repl := &chatREPL{
		svc:     svc,
		session: started.Session,
		render:  terminal.NewRenderer(opts),
		out:     cmd.OutOrStdout(),
	}
	repl.banner()

	in := bufio.NewScanner(cmd.InOrStdin())
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(repl.out, "> ")
		if !in.Scan() {
			fmt.Fprintln(repl.out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := repl.command(ctx, line)
			if err != nil {
				fmt.Fprintln(repl.out, "error:", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := repl.send(ctx, line); err != nil {
			fmt.Fprintln(repl.out, "error:", err)
		}
	}
}

func (c *chatREPL) banner() {
	fmt.Fprintf(c.out, "soldiom · %s · thinking %v · /quit to exit\n", c.session.Role, c.session.EnableThinking)
}

// send streams one reply. Ctrl-C cancels only this turn.
func (c *chatREPL) send(ctx context.Context, text string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	view := terminal.NewLiveView(c.out, c.render)
	_, err := c.svc.StreamMessage(turnCtx, conversation.StreamMessageInput{
		SessionID: c.session.ID,
		Text:      text,
	}, view.Update)
	return err
}

func (c *chatREPL) command(ctx context.Context, line string) (quit bool, err error) {
	name, rest, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "quit", "exit":
		return true, nil

	case "roles":
		for _, r := range c.svc.ListRoles() {
			fmt.Fprintf(c.out, "  %-14s %s\n", r.ID, r.Name)
		}

	case "role":
		role := domain.ParseRoleType(rest)
		s, err := c.svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: c.session.ID, Role: &role})
		if err != nil {
			return false, err
		}
		c.session = s
		c.banner()

	case "think":
		on := rest == "on" || rest == "true"
		s, err := c.svc.UpdateSession(ctx, conversation.UpdateSessionInput{SessionID: c.session.ID, EnableThinking: &on})
		if err != nil {
			return false, err
		}
		c.session = s
		c.banner()

	case "reset":
		s, err := c.svc.ResetSession(ctx, c.session.ID)
		if err != nil {
			return false, err
		}
		c.session = s
		fmt.Fprintln(c.out, "new chat")

	case "tool":
		toolName, text, _ := strings.Cut(rest, " ")
		msg, err := c.svc.RunTool(ctx, conversation.RunToolInput{
			SessionID: c.session.ID,
			Tool:      toolName,
			Input:     tools.Input{Text: strings.TrimSpace(text)},
		})
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, c.render.RenderMessage(msg))

	default:
		return false, errors.New("unknown command /" + name)
	}
	return false, nil
}

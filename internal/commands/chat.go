package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhouzirui/z-research/internal/service/turn"
)

const chatHelp = `/copy         copy the last answer
/copy-code N  copy the N-th code block of the last answer
/export       export the report found in the conversation
/history      list the conversation
/quit         leave`

func newChatCmd(v *viper.Viper, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive research session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, o, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, dimStyle.Render("Type a question, or /help."))

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, userLabelStyle.Render("you › "))
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())

				if strings.HasPrefix(line, "/") {
					if quit := a.command(line); quit {
						return nil
					}
					continue
				}

				if _, err := a.ask(cmd.Context(), line); err != nil {
					if errors.Is(err, turn.ErrEmptyInput) {
						continue
					}
					a.notice(err)
				}
				if cmd.Context().Err() != nil {
					return nil
				}
			}
		},
	}
}

// command runs one slash command and reports whether the REPL should end.
func (a *app) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch name {
	case "/quit", "/exit":
		return true
	case "/copy":
		a.copyReply()
	case "/copy-code":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			a.notice(fmt.Errorf("usage: /copy-code N"))
			return false
		}
		a.copyCode(n)
	case "/export":
		a.export()
	case "/history":
		a.history()
	case "/help":
		fmt.Fprintln(a.out, chatHelp)
	default:
		a.notice(fmt.Errorf("unknown command %s, try /help", name))
	}
	return false
}

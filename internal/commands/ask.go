package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhouzirui/z-research/internal/model/chat"
)

var errInterrupted = errors.New("response interrupted")

func newAskCmd(v *viper.Viper, o *options) *cobra.Command {
	var copyReply, exportReport bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, o, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			msg, err := a.ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if copyReply {
				a.copyReply()
			}
			if exportReport {
				a.export()
			}
			if msg.Status == chat.StatusErrored {
				return errInterrupted
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyReply, "copy", false, "copy the finished answer to the clipboard")
	cmd.Flags().BoolVar(&exportReport, "export", false, "export the report when the answer is finished")
	return cmd
}

// Package commands provides the desk CLI.
package commands

import (
	"context"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zhouzirui/z-research/internal/config"
	"github.com/zhouzirui/z-research/internal/desk"
)

type options struct {
	clipboard desk.Clipboard
}

type Option func(*options)

// WithClipboard replaces the system clipboard.
func WithClipboard(c desk.Clipboard) Option {
	return func(o *options) {
		o.clipboard = c
	}
}

// NewRootCmd builds the desk command tree around its own viper instance.
func NewRootCmd(opts ...Option) *cobra.Command {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	v := config.New()
	var verbose bool

	root := &cobra.Command{
		Use:   "desk",
		Short: "Ask research questions and watch the answer stream in",
		Long: `desk sends a question to a z-research backend and renders the reply as it
streams. Finished replies can be copied and their report exported.

Examples:
  desk serve                                   Run the development backend
  desk ask "How do tides work?"                One question, streamed
  desk ask --export "How do tides work?"       ...and save the report
  desk chat --endpoint http://localhost:8080/api/research`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}

	flags := root.PersistentFlags()
	flags.String("endpoint", "", "streaming endpoint (ws://.../ws or http://.../api/research)")
	flags.String("transport", "", "transport to use: ws or http (default: from the endpoint scheme)")
	flags.String("export-dir", "", "directory for exported reports")
	flags.String("style", "", "glamour style for the final answer (auto, dark, light, notty)")
	flags.Int("width", 0, "word wrap width for the final answer")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	bindFlags(v, flags, map[string]string{
		"endpoint":   "endpoint",
		"transport":  "transport",
		"export-dir": "export_dir",
		"style":      "render_style",
		"width":      "render_width",
	})

	root.AddCommand(newAskCmd(v, o))
	root.AddCommand(newChatCmd(v, o))
	root.AddCommand(newServeCmd(v))
	return root
}

// ExecuteContext runs the CLI and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func newLogger(w io.Writer, component string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Str("component", component).Logger()
}

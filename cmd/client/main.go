// Command client is a terminal front end for the tracking server: it loads
// the session state, applies one transition, and exits. The long-lived
// modes (status --follow, watch) mirror what a browser front end would do
// with a display-refresh timer and a change feed.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/ticktrack/pkg/client"
	"github.com/astromechza/ticktrack/pkg/session"
)

var (
	addrFlag    string
	timeoutFlag time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "client",
		Short:         "Track time against a local ticktrack server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "127.0.0.1:8080", "the address of the server")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", client.DefaultTimeout, "per-request timeout")

	rootCmd.AddCommand(
		startCmd(), pauseCmd(), resumeCmd(), stopCmd(), deleteCmd(), noteCmd(),
		listCmd(), logCmd(), suggestCmd(), statusCmd(), watchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliNotifier surfaces failed synchronizations on stderr; re-render
// notifications are meaningless for a one-shot command and are dropped.
type cliNotifier struct{}

func (cliNotifier) StateChanged() {}

func (cliNotifier) SyncFailed(op string, err error) {
	fmt.Fprintf(os.Stderr, "the %s action could not be saved and has been undone: %v\n", op, err)
}

func newSession(cmd *cobra.Command) (*session.Session, error) {
	c, err := client.New(addrFlag, timeoutFlag)
	if err != nil {
		return nil, err
	}
	s := session.New(c, session.WithNotifier(cliNotifier{}))
	if err := s.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveTimer matches a full id or a unique id prefix.
func resolveTimer(s *session.Session, arg string) (string, error) {
	if _, ok := s.Timer(arg); ok {
		return arg, nil
	}
	var match string
	for id := range s.ActiveTimers() {
		if len(arg) > 0 && len(id) >= len(arg) && id[:len(arg)] == arg {
			if match != "" {
				return "", fmt.Errorf("timer id prefix %q is ambiguous", arg)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", session.ErrTimerNotFound, arg)
	}
	return match, nil
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

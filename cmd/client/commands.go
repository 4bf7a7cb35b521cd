package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/astromechza/ticktrack/pkg/client"
	"github.com/astromechza/ticktrack/pkg/httpapi"
	"github.com/astromechza/ticktrack/pkg/session"
)

func startCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "start <project> <task>",
		Short: "Start a new timer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := s.Start(cmd.Context(), args[0], args[1], notes)
			if err != nil {
				return err
			}
			fmt.Printf("started %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "notes to attach to the timer")
	return cmd
}

func timerAction(use, short string, run func(ctx context.Context, s *session.Session, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := resolveTimer(s, args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, id)
		},
	}
}

func pauseCmd() *cobra.Command {
	return timerAction("pause <id>", "Pause a running timer", func(ctx context.Context, s *session.Session, id string) error {
		if err := s.Pause(ctx, id); err != nil {
			return err
		}
		elapsed, _ := s.ElapsedMs(id)
		fmt.Printf("paused %s at %s\n", id, formatMs(elapsed))
		return nil
	})
}

func resumeCmd() *cobra.Command {
	return timerAction("resume <id>", "Resume a paused timer", func(ctx context.Context, s *session.Session, id string) error {
		if err := s.Resume(ctx, id); err != nil {
			return err
		}
		fmt.Printf("resumed %s\n", id)
		return nil
	})
}

func stopCmd() *cobra.Command {
	return timerAction("stop <id>", "Stop a timer and record it in history", func(ctx context.Context, s *session.Session, id string) error {
		entry, err := s.Stop(ctx, id)
		if err != nil {
			return err
		}
		if entry == nil {
			fmt.Println("discarded zero-duration timer")
			return nil
		}
		fmt.Printf("recorded %s / %s: %s\n", entry.Project, entry.Task, formatMs(entry.TotalDurationMs))
		return nil
	})
}

func deleteCmd() *cobra.Command {
	return timerAction("delete <id>", "Discard a timer without recording it", func(ctx context.Context, s *session.Session, id string) error {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
		return nil
	})
}

func noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Replace the notes on a timer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			id, err := resolveTimer(s, args[0])
			if err != nil {
				return err
			}
			return s.SetNotes(cmd.Context(), id, args[1])
		},
	}
}

func printTimers(s *session.Session) {
	timers := s.ActiveTimers()
	if len(timers) == 0 {
		fmt.Println("no active timers")
		return
	}
	ids := make([]string, 0, len(timers))
	for id := range timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := timers[id]
		state := "running"
		if t.IsPaused {
			state = "paused"
		}
		elapsed, _ := s.ElapsedMs(id)
		fmt.Printf("%-36s  %-7s  %-10s  %s / %s\n", id, state, formatMs(elapsed), t.Project, t.Task)
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			printTimers(s)
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			entries := s.Entries()
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			for _, e := range entries {
				ended := time.UnixMilli(e.EndTime).Format(time.RFC3339)
				fmt.Printf("%s  %-10s  %s / %s\n", ended, formatMs(e.TotalDurationMs), e.Project, e.Task)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries to show, 0 for all")
	return cmd
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List project/task input suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			for _, suggestion := range s.Suggestions() {
				fmt.Println(suggestion)
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show active timers, optionally refreshing every second",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			printTimers(s)
			if !follow {
				return nil
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
			signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)

			// Pure display refresh: recomputes elapsed from the persisted
			// fields each tick and never writes anything.
			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				select {
				case <-t.C:
					fmt.Println("---")
					printTimers(s)
				case <-exit:
					cancel()
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "keep refreshing until interrupted")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream document change events from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New(addrFlag, timeoutFlag)
			if err != nil {
				return err
			}
			u := c.BaseURL().JoinPath("api/watch")
			u.Scheme = "ws"
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), u.String(), nil)
			if err != nil {
				return fmt.Errorf("failed to dial: %w", err)
			}
			defer conn.Close()

			exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
			signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-exit
				_ = conn.Close()
			}()

			for {
				var event httpapi.Event
				if err := conn.ReadJSON(&event); err != nil {
					return nil
				}
				fmt.Printf("%s  %s document replaced\n", event.At.Format(time.RFC3339), event.Kind)
			}
		},
	}
}

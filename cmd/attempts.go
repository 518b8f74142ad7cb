package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/candidus/assessor/internal/attempt"
)

const timeLayout = "2006-01-02 15:04:05"

var attemptsCmd = &cobra.Command{
	Use:   "attempts [candidate]",
	Short: "List the attempts of a candidate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := resolveCandidate(cmd)
		if len(args) == 1 {
			candidate, err = args[0], nil
		}
		if err != nil {
			return err
		}
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		list, err := s.List(cmd.Context(), candidate)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(list) == 0 {
			fmt.Printf("No attempts for %s.\n", candidate)
			return nil
		}

		fmt.Printf("%-36s  %-6s  %-19s  %-11s  %s\n",
			"ID", "Comp", "Started", "Status", "Answered")
		fmt.Println(strings.Repeat("─", 90))
		for _, st := range list {
			fmt.Printf("%-36s  %-6s  %-19s  %-11s  %d/%d\n",
				st.ID,
				st.ComponentID,
				st.StartedAt.Local().Format(timeLayout),
				attemptStatus(st),
				answered(st),
				len(st.Answers),
			)
		}
		return nil
	},
}

func attemptStatus(st *attempt.State) string {
	switch {
	case st.SubmittedAt != nil:
		return "submitted"
	case st.Frozen():
		return "submitting"
	}
	return "in progress"
}

func answered(st *attempt.State) int {
	n := 0
	for _, a := range st.Answers {
		if a != nil && a.Provenance == attempt.ProvenanceAnswered {
			n++
		}
	}
	return n
}

var eventsCmd = &cobra.Command{
	Use:   "events <attempt>",
	Short: "Show the lifecycle events of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		if _, err := s.Attempts.Load(cmd.Context(), args[0]); err != nil {
			return err
		}
		events, err := s.Journal.Events(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No events recorded.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-10s  %-5s  %s\n", "Seq", "Timestamp", "Kind", "Item", "Detail")
		fmt.Println(strings.Repeat("─", 70))
		for _, e := range events {
			fmt.Printf("%-5d  %-19s  %-10s  %-5d  %s\n",
				e.Sequence,
				e.At.Local().Format(timeLayout),
				e.Kind,
				e.Item+1,
				e.Detail,
			)
		}
		return nil
	},
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/candidus/assessor/internal/results"
)

var resultCmd = &cobra.Command{
	Use:   "result <attempt>",
	Short: "Show the result of a submitted attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		r, err := s.Result(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		printResult(r)
		return nil
	},
}

func init() {
	resultCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func printResult(r *results.Result) {
	if !r.Ready() {
		fmt.Printf("Attempt %s is still being scored. Try again shortly.\n", r.AttemptID)
		return
	}

	sep := strings.Repeat("─", 60)
	fmt.Printf("Attempt:   %s\n", r.AttemptID)
	if r.CandidateID != "" {
		fmt.Printf("Candidate: %s\n", r.CandidateID)
	}
	fmt.Printf("Composite: %d / 100 (%.2f)\n", r.Rounded, r.Composite)
	fmt.Printf("Outcome:   %s\n", r.Bucket.Label())
	if r.Duration > 0 {
		fmt.Printf("Duration:  %s\n", r.Duration.Round(time.Minute))
	}

	fmt.Println()
	fmt.Printf("%-8s  %-7s  %-7s  %s\n", "Comp", "Score", "Weight", "Points")
	fmt.Println(sep)
	for _, c := range r.Contributions {
		fmt.Printf("%-8s  %-7.1f  %-7g  %.2f\n", c.ComponentID, c.Score, c.Weight, c.Points)
	}

	printList("Strengths", r.Strengths)
	printList("Development areas", r.DevelopmentAreas)
	printList("What drove the score", r.Drivers)
	printList("Next steps", r.NextSteps)
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(title)
	for _, it := range items {
		fmt.Printf("  • %s\n", it)
	}
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/candidus/assessor/internal/app"
	"github.com/candidus/assessor/internal/rubric"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect and change the scoring rubric",
}

var rubricShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the committed rubric as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		out, err := yaml.Marshal(s.Rubric.Current())
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var rubricPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Score the sample candidates under a draft rubric",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		draft := s.Rubric.Current()
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			if draft, err = readRubric(path); err != nil {
				return err
			}
		}
		rows, err := s.Rubric.Preview(draft, nil)
		if err != nil {
			return err
		}

		fmt.Printf("%-12s  %-9s  %-7s  %s\n", "Sample", "Composite", "Rounded", "Bucket")
		fmt.Println(strings.Repeat("─", 50))
		for _, row := range rows {
			if row.Outcome == nil {
				fmt.Printf("%-12s  %s\n", row.Sample.Name, row.Err)
				continue
			}
			fmt.Printf("%-12s  %-9.2f  %-7d  %s\n",
				row.Sample.Name, row.Outcome.Composite, row.Outcome.Rounded, row.Outcome.Bucket.Label())
		}
		return nil
	},
}

var rubricSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Validate and commit a rubric from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return fmt.Errorf("--file is required")
		}
		draft, err := readRubric(path)
		if err != nil {
			return err
		}

		s, err := openSession(cmd, false)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		if err := s.Rubric.Commit(cmd.Context(), draft); err != nil {
			return err
		}
		fmt.Println("Rubric committed.")
		return nil
	},
}

var rubricEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the rubric interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, _ := resolveCandidate(cmd)
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())
		return app.Run(cmd.Context(), s, app.RunOptions{CandidateID: candidate, Rubric: true})
	},
}

func init() {
	rubricPreviewCmd.Flags().String("file", "", "YAML rubric to preview (default: the committed rubric)")
	rubricSetCmd.Flags().String("file", "", "YAML rubric to commit")

	rubricCmd.AddCommand(rubricShowCmd)
	rubricCmd.AddCommand(rubricPreviewCmd)
	rubricCmd.AddCommand(rubricSetCmd)
	rubricCmd.AddCommand(rubricEditCmd)
}

// readRubric decodes a rubric file. Unknown keys are rejected.
func readRubric(path string) (rubric.Config, error) {
	var cfg rubric.Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open rubric: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode rubric %s: %w", path, err)
	}
	return cfg, nil
}

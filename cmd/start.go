package cmd

import (
	"github.com/spf13/cobra"

	"github.com/candidus/assessor/internal/app"
)

var startCmd = &cobra.Command{
	Use:   "start <component>",
	Short: "Start a new attempt of a component",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidate, err := resolveCandidate(cmd)
		if err != nil {
			return err
		}
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())
		return app.Run(cmd.Context(), s, app.RunOptions{
			CandidateID: candidate,
			ComponentID: args[0],
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <attempt>",
	Short: "Resume an attempt, or show its result once submitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, true)
		if err != nil {
			return err
		}
		defer s.Close(cmd.Context())

		st, err := s.Attempts.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return app.Run(cmd.Context(), s, app.RunOptions{
			CandidateID: st.CandidateID,
			AttemptID:   st.ID,
		})
	},
}

package main

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [domain] [problem] [plan]",
	Short: "Check a plan with the external VAL validator",
	Long: `Runs the VAL binary from the config (validator.binary, or PLANNER_VAL_BINARY)
and exits non-zero when the plan is invalid.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportValidation(cmd, args[0], args[1], args[2])
	},
}

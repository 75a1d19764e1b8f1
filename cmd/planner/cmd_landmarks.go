package main

import (
	"fmt"
	"os"
	"strings"

	"plansynth/internal/landmark"
	"plansynth/internal/pddl"
	"plansynth/internal/types"

	"github.com/spf13/cobra"
)

var (
	landmarksFile string
	landmarksPlan string
	landmarksTag  string
)

var landmarksCmd = &cobra.Command{
	Use:   "landmarks",
	Short: "Landmark utilities",
}

var landmarksOrderCmd = &cobra.Command{
	Use:   "order",
	Short: "Order landmarks by their first occurrence in a plan",
	Long: `Reads a landmark set and a plan and prints the landmarks sorted by where
they first appear in the plan. The landmark file may be a delimited block
(<landmarks-set> or <action-landmarks-set>) or one action per line; the plan file
may be a <plan> block or a plain plan.`,
	Args: cobra.NoArgs,
	RunE: runLandmarksOrder,
}

func init() {
	landmarksOrderCmd.Flags().StringVar(&landmarksFile, "landmarks", "", "Landmark set file (required)")
	landmarksOrderCmd.Flags().StringVar(&landmarksPlan, "plan", "", "Plan file (required)")
	landmarksOrderCmd.Flags().StringVar(&landmarksTag, "tag", "landmarks-set", "Delimiter tag of the landmark block")
	_ = landmarksOrderCmd.MarkFlagRequired("landmarks")
	_ = landmarksOrderCmd.MarkFlagRequired("plan")
	landmarksCmd.AddCommand(landmarksOrderCmd)
}

func runLandmarksOrder(cmd *cobra.Command, args []string) error {
	lmText, err := os.ReadFile(landmarksFile)
	if err != nil {
		return err
	}
	planText, err := os.ReadFile(landmarksPlan)
	if err != nil {
		return err
	}

	landmarks, err := readLandmarks(string(lmText), landmarksTag)
	if err != nil {
		return fmt.Errorf("%s: %w", landmarksFile, err)
	}

	planBody := string(planText)
	if strings.Contains(planBody, "<plan>") {
		lines, err := landmark.ExtractSet(planBody, "plan")
		if err != nil {
			return fmt.Errorf("%s: %w", landmarksPlan, err)
		}
		planBody = strings.Join(lines, "\n")
	}
	plan, err := types.ParsePlan(planBody)
	if err != nil {
		return fmt.Errorf("%s: %w", landmarksPlan, err)
	}

	ordered, err := landmark.Order(landmarks, plan)
	if err != nil {
		return err
	}
	for _, l := range ordered {
		fmt.Fprintln(cmd.OutOrStdout(), l)
	}
	return nil
}

// landmarkTags are the block tags tried after the requested one.
var landmarkTags = []string{"landmarks-set", "action-landmarks-set"}

// readLandmarks returns the landmark lines of content: the block delimited by
// tag, else by one of the known landmark tags, else every non-comment line.
// A file with markup but no recognised block is an error naming the tag.
func readLandmarks(content, tag string) ([]string, error) {
	for _, t := range append([]string{tag}, landmarkTags...) {
		if strings.Contains(content, "<"+t+">") {
			return landmark.ExtractSet(content, t)
		}
	}
	lines := nonEmptyLines(content)
	for _, line := range lines {
		if strings.HasPrefix(line, "<") {
			return nil, &types.ParseError{Msg: fmt.Sprintf("no <%s> block found (got %q)", tag, line)}
		}
	}
	return lines, nil
}

// nonEmptyLines uses the ';' comment convention of problem files.
func nonEmptyLines(s string) []string {
	stripped := pddl.StripComments(s)
	if stripped == "" {
		return nil
	}
	return strings.Split(stripped, "\n")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/timeline-engine/factory"
	"github.com/warp/timeline-engine/timeline"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate timeline documents",
	Long: `Parses each JSON or YAML timeline document and runs the continuity
validator against its project bounds. Exits non-zero if any document is
malformed or invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		res, err := checkFile(path)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", path, err)
			failed++
			continue
		}
		if !res.IsValid {
			fmt.Fprintf(out, "✗ %s\n", path)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "    [%s] %s\n", e.Code, e.Message)
			}
			failed++
			continue
		}
		fmt.Fprintf(out, "✓ %s\n", path)
	}

	logger.Debug("check complete", zap.Int("files", len(args)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(args))
	}
	return nil
}

func checkFile(path string) (timeline.ValidationResult, error) {
	doc, err := factory.ParseFile(path)
	if err != nil {
		return timeline.ValidationResult{}, err
	}
	project, phases, err := doc.Build()
	if err != nil {
		return timeline.ValidationResult{}, err
	}
	return timeline.Validate(phases, project.StartDate, project.EndDate), nil
}

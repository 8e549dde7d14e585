package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/store"
	"github.com/gzentall/ocrstore/pkg/models"
)

var (
	doctorRepair  bool
	doctorRebuild bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store consistency",
	Long: `Check that the metadata index, the document bodies and the people
index agree with each other.

  --repair   fix what was found (corrupt bodies are reported, never removed)
  --rebuild  recreate the metadata index from the document bodies, for when
             metadata.json itself is damaged`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVar(&doctorRepair, "repair", false, "repair the issues found")
	doctorCmd.Flags().BoolVar(&doctorRebuild, "rebuild", false, "rebuild the index from the document bodies")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if doctorRebuild {
		result, err := store.Rebuild(cfg.Store.Dir, slog.Default())
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		fmt.Fprintf(out, "Rebuilt index: %d documents, %d people\n", result.Documents, result.People)
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  unreadable: %v\n", e)
		}
		return nil
	}

	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if errors.Is(err, models.ErrCorruption) {
		return fmt.Errorf("%w (run with --rebuild)", err)
	}
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Check(doctorRepair)
	if err != nil {
		return err
	}
	if report.OK() {
		fmt.Fprintln(out, "Store is consistent.")
		return nil
	}

	fmt.Fprintf(out, "Found %d issues:\n", len(report.Issues))
	for _, issue := range report.Issues {
		fmt.Fprintf(out, "  - %s\n", issue)
	}
	if report.Repaired {
		fmt.Fprintln(out, "Repaired.")
	} else if !doctorRepair {
		fmt.Fprintln(out, "Run with --repair to fix them.")
	}
	return nil
}

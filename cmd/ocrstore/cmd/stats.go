package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFormat, "format", "text", "Output format: text or json")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	stats := st.Stats()
	out := cmd.OutOrStdout()
	if statsFormat == "json" {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
	fmt.Fprintf(out, "People:    %d\n", stats.People)
	if stats.Documents > 0 {
		fmt.Fprintf(out, "Range:     %s to %s\n", stats.Earliest.DateString(), stats.Latest.DateString())
	}

	if len(stats.ByLanguage) > 0 {
		langs := make([]string, 0, len(stats.ByLanguage))
		for lang := range stats.ByLanguage {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		fmt.Fprintln(out, "\nBy source language:")
		for _, lang := range langs {
			name := lang
			if name == "" {
				name = "(unknown)"
			}
			fmt.Fprintf(out, "  %-12s %d\n", name, stats.ByLanguage[lang])
		}
	}

	if len(stats.MostMentioned) > 0 {
		fmt.Fprintln(out, "\nMost mentioned:")
		for _, m := range stats.MostMentioned {
			fmt.Fprintf(out, "  %-24s %d documents\n", m.Key, m.Documents)
		}
	}
	return nil
}

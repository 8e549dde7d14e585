package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzentall/ocrstore/internal/export"
)

var (
	peopleFormat    string
	renameContext   string
	searchThreshold int
	addPersonNote   string
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Inspect and edit the people index",
}

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every person",
	Args:  cobra.NoArgs,
	RunE:  runPeopleList,
}

var peopleShowCmd = &cobra.Command{
	Use:     "show [person]",
	Aliases: []string{"timeline"},
	Short:   "Show a person and the documents mentioning them, oldest first",
	Args:    cobra.ExactArgs(1),
	RunE:    runPeopleShow,
}

var peopleSearchCmd = &cobra.Command{
	Use:   "search [name]",
	Short: "Find people whose name resembles the query",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleSearch,
}

var peopleFindCmd = &cobra.Command{
	Use:   "find [name]",
	Short: "List documents of every person whose name or alias contains the query",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleFind,
}

var peopleRenameCmd = &cobra.Command{
	Use:   "rename [person] [new name]",
	Short: "Rename a person, merging into an existing person of that name",
	Args:  cobra.ExactArgs(2),
	RunE:  runPeopleRename,
}

var peopleRemoveCmd = &cobra.Command{
	Use:   "remove [person]",
	Short: "Remove a person from the index and from every document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPeopleRemove,
}

var peopleAddCmd = &cobra.Command{
	Use:   "add [document id] [name]",
	Short: "Record that a document mentions a person",
	Args:  cobra.ExactArgs(2),
	RunE:  runPeopleAdd,
}

var peopleLinkCmd = &cobra.Command{
	Use:   "link [person] [document id]",
	Short: "Link an existing person to a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runPeopleLink,
}

var peopleUnlinkCmd = &cobra.Command{
	Use:   "unlink [person] [document id]",
	Short: "Unlink a person from a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runPeopleUnlink,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
	peopleCmd.AddCommand(
		peopleListCmd,
		peopleShowCmd,
		peopleSearchCmd,
		peopleFindCmd,
		peopleRenameCmd,
		peopleRemoveCmd,
		peopleAddCmd,
		peopleLinkCmd,
		peopleUnlinkCmd,
	)

	peopleCmd.PersistentFlags().StringVar(&peopleFormat, "format", "text", "Output format: text or json")
	peopleSearchCmd.Flags().IntVar(&searchThreshold, "threshold", 0, "minimum similarity score 0-100 (default: identity.search_threshold)")
	peopleRenameCmd.Flags().StringVar(&renameContext, "context", "", "replace the person's context note")
	peopleAddCmd.Flags().StringVar(&addPersonNote, "context", "", "how the document mentions the person")
}

func runPeopleList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	people := st.People()
	if peopleFormat == "json" {
		return printJSON(cmd.OutOrStdout(), people)
	}
	if len(people) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No people recorded.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), export.PeopleTable(people))
	return nil
}

func runPeopleShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := st.Person(args[0])
	if err != nil {
		return err
	}
	timeline, err := st.PersonDocuments(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if peopleFormat == "json" {
		return printJSON(out, map[string]any{
			"key":             p.Key,
			"aliases":         p.Aliases,
			"context":         p.Context,
			"first_mentioned": p.FirstMentioned,
			"documents":       timeline,
		})
	}

	fmt.Fprintf(out, "Person:          %s\n", p.Key)
	fmt.Fprintf(out, "Aliases:         %s\n", strings.Join(p.Aliases, ", "))
	fmt.Fprintf(out, "First mentioned: %s\n", p.FirstMentioned.DateString())
	if p.Context != "" {
		fmt.Fprintf(out, "Context:         %s\n", p.Context)
	}
	fmt.Fprintf(out, "\nTimeline (%d documents):\n", len(timeline))
	for _, row := range timeline {
		fmt.Fprintf(out, "  %s  %s  %s\n", row.DateProcessed.DateString(), row.ID, row.Title)
	}
	return nil
}

func runPeopleSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	candidates := st.SearchPeople(args[0], searchThreshold)
	out := cmd.OutOrStdout()
	if peopleFormat == "json" {
		return printJSON(out, candidates)
	}
	if len(candidates) == 0 {
		fmt.Fprintln(out, "No matching people.")
		return nil
	}
	for _, c := range candidates {
		fmt.Fprintf(out, "%3d  %s", c.Score, c.Key)
		if c.Alias != c.Key {
			fmt.Fprintf(out, " (as %q)", c.Alias)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runPeopleFind(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rows := st.FindDocumentsByPerson(args[0])
	if peopleFormat == "json" {
		return printJSON(cmd.OutOrStdout(), rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), export.DocumentTable(rows))
	return nil
}

func runPeopleRename(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var note *string
	if cmd.Flags().Changed("context") {
		note = &renameContext
	}
	key, err := st.RenamePerson(ctx, args[0], args[1], note)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], key)
	return nil
}

func runPeopleRemove(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.RemovePerson(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runPeopleAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	key, err := st.AddPerson(ctx, args[0], args[1], addPersonNote)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to %s\n", key, args[0])
	return nil
}

func runPeopleLink(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.LinkPerson(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to %s\n", args[0], args[1])
	return nil
}

func runPeopleUnlink(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.UnlinkPerson(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %s from %s\n", args[0], args[1])
	return nil
}

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docscan/internal/storage"
)

func newSearchCmd(a *app) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the text of saved documents",
		Long: `Search the recognized text of every saved document for a phrase.

Matching ignores case. For each document containing the phrase, the path
of its text file is printed with the first occurrence in context.

Examples:
  docscan search "total due"
  docscan search invoice --base-dir archive/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir := a.cfg.Storage.BaseDir
			if cmd.Flags().Changed("base-dir") {
				baseDir, _ = cmd.Flags().GetString("base-dir")
			}
			query := strings.Join(args, " ")

			matches, err := storage.NewOS(baseDir, a.logger).Search(query)
			if err != nil {
				return err
			}
			printMatches(cmd.OutOrStdout(), query, matches)
			return nil
		},
	}

	searchCmd.Flags().String("base-dir", "", "directory to search (overrides storage.base_dir)")
	return searchCmd
}

func printMatches(out io.Writer, query string, matches []storage.Match) {
	if len(matches) == 0 {
		fmt.Fprintf(out, "No documents contain %q\n", query)
		return
	}

	pathColor := color.New(color.FgCyan, color.Bold)
	hit := color.New(color.FgYellow, color.Bold)

	fmt.Fprintf(out, "Found %d document(s) containing %q\n\n", len(matches), query)
	for _, m := range matches {
		pathColor.Fprintln(out, m.Path)

		snippet := []rune(m.Snippet)
		fmt.Fprintf(out, "  ...%s", string(snippet[:m.Start]))
		hit.Fprint(out, string(snippet[m.Start:m.End]))
		fmt.Fprintf(out, "%s...\n", string(snippet[m.End:]))
	}
}

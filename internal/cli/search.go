package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	showPaths  bool
	indent     int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List the tracks matching an SMJ7-style query",
	Long: `Search lists the tracks matching the query, grouped by artist and album.
An empty query lists every track. See "musicindex syntax" for the query
language.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(openOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		results, err := s.searcher().Search(strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if outputJSON {
			out, err := jsonizer(results, showPaths, indent)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		printResults(os.Stdout, results)
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&outputJSON, "json", false, "output matching results in JSON")
	searchCmd.Flags().BoolVar(&showPaths, "show-paths", false, "include path information in JSON track output")
	searchCmd.Flags().IntVarP(&indent, "indent", "i", 2, "with --json, # of spaces to indent by")
	rootCmd.AddCommand(searchCmd)
}

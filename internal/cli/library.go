package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"musicindex/internal/query"
	"musicindex/internal/scanner"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(openOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		stats := map[string]int{
			"artists": s.ix.ArtistsCount(),
			"albums":  s.ix.AlbumsCount(),
			"tracks":  s.ix.TracksCount(),
		}
		if outputJSON {
			b, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}

		t := NewTable("ARTISTS", "ALBUMS", "TRACKS")
		t.Row(commatize(stats["artists"]), commatize(stats["albums"]), commatize(stats["tracks"]))
		t.Flush()
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete entries from the database if the file no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(openOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		removed, err := newScanner(s, nil).Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Pruner: Removed %d stale files.\n", removed)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the music directory",
	Long: `Watch brings the index up to date and then follows file system changes in
the music directory until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		since, _ := databaseModTime()
		s, err := openSession(openOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		rec := startReconciler(ctx, s)
		if _, err := indexMedia(ctx, s, rec, scanner.ScanOptions{Since: since}, false); err != nil {
			return err
		}

		interval := time.Duration(cfg.Scan.WatchInterval) * time.Second
		fmt.Printf("Watching %s for changes...\n", cfg.Library.MusicDir)
		return newScanner(s, nil).Watch(ctx, cfg.Library.MusicDir, interval)
	},
}

var syntaxCmd = &cobra.Command{
	Use:   "syntax",
	Short: "Show SMJ7-style syntax guide",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), query.SyntaxGuide)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&outputJSON, "json", false, "output counts in JSON")
	rootCmd.AddCommand(statsCmd, pruneCmd, watchCmd, syntaxCmd)
}

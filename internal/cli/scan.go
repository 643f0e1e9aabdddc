package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"musicindex/internal/library"
	"musicindex/internal/scanner"
)

var (
	forceRescan bool
	freshen     bool
	forceSerial bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index the music directory",
	Long: `Scan walks the music directory, reads the tags of every audio file and
updates the index. Tracks from an earlier scan whose files are gone are
removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var since time.Time
		if freshen && !forceRescan {
			since, _ = databaseModTime()
		}

		s, err := openSession(openOptions{clear: forceRescan})
		if err != nil {
			return err
		}
		defer s.Close()

		rec := startReconciler(ctx, s)
		_, err = indexMedia(ctx, s, rec, scanner.ScanOptions{Since: since}, true)
		return err
	},
}

func init() {
	scanCmd.Flags().BoolVar(&forceRescan, "force-rescan", false, "nuke the database and start from scratch")
	scanCmd.Flags().BoolVar(&freshen, "freshen", false, "only scan files modified since the last scan")
	scanCmd.Flags().BoolVar(&forceSerial, "force-serial", false, "disable parallelized media parsing")
	rootCmd.AddCommand(scanCmd)
}

func newScanner(s *session, onProgress func(int)) *scanner.Scanner {
	return scanner.New(s.ix, scanner.Options{
		Workers:    cfg.Scan.Workers,
		Serial:     cfg.Scan.Serial || forceSerial,
		BatchSize:  cfg.Scan.BatchSize,
		Logger:     s.log.Named("scanner"),
		OnProgress: onProgress,
	})
}

// startReconciler verifies conflicting records against their files until
// ctx is done.
func startReconciler(ctx context.Context, s *session) *library.Reconciler {
	rec := library.NewReconciler(s.ix, scanner.TagVerifier{}, cfg.Reconcile.QueueSize, s.log.Named("reconcile"))
	s.ix.Subscribe(rec)
	go func() { _ = rec.Run(ctx) }()
	return rec
}

// waitReconciled blocks until rec has no outstanding requests.
func waitReconciled(ctx context.Context, rec *library.Reconciler) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for rec.Pending() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// indexMedia scans the music directory and waits for the conflicts it
// raised to be reconciled.
func indexMedia(ctx context.Context, s *session, rec *library.Reconciler, so scanner.ScanOptions, showProgress bool) (scanner.Result, error) {
	if _, err := os.Stat(cfg.Library.MusicDir); os.IsNotExist(err) {
		return scanner.Result{}, fmt.Errorf("cannot scan a nonexistent path: %q", cfg.Library.MusicDir)
	}

	var bar *progressbar.ProgressBar
	var onProgress func(int)
	if showProgress {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
		onProgress = func(done int) { _ = bar.Set(done) }
	}

	res, err := newScanner(s, onProgress).Scan(ctx, cfg.Library.MusicDir, so)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return res, err
	}
	waitReconciled(ctx, rec)

	adverb := "Parallely"
	if cfg.Scan.Serial || forceSerial {
		adverb = "Serially"
	}
	if !so.Since.IsZero() {
		fmt.Printf("Indexer: %s indexed %d newer files in %.2f seconds.\n", adverb, res.Indexed, res.Elapsed.Seconds())
	} else {
		fmt.Printf("Indexer: %s indexed %d files in %.2f seconds.\n", adverb, s.ix.TracksCount(), res.Elapsed.Seconds())
	}
	if res.Removed > 0 {
		fmt.Printf("Indexer: Removed %d stale files.\n", res.Removed)
	}
	return res, nil
}

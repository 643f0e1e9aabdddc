package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"musicindex/internal/library"
	"musicindex/internal/playlist"
	"musicindex/internal/query"
	"musicindex/internal/scanner"
)

var playCmd = &cobra.Command{
	Use:   "play <query[; command]>",
	Short: "Play the tracks matching an SMJ7-style query",
	Long: `Play searches the library and plays the results through mplayer. A playlist
command may follow the query after a semicolon; see "musicindex syntax".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(openOptions{})
		if err != nil {
			return err
		}
		defer s.Close()

		q, command := query.SplitCommand(strings.Join(args, " "))
		results, err := s.searcher().Search(q)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return playlistHandler(cmd.Context(), command, results)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func playlistHandler(ctx context.Context, command string, results []library.Track) error {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	p, err := playlist.FromCommand(command, results)
	if err != nil {
		fmt.Printf("%v, try again.\n", err)
		return nil
	}
	return play(ctx, p)
}

// play runs mplayer over the playlist. An interrupt skips the rest.
func play(ctx context.Context, p *playlist.Playlist) error {
	mplayer, err := exec.LookPath("mplayer")
	if err != nil {
		return errors.New("MPlayer not found in PATH")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	for m, ok := p.Current(); ok; m, ok = p.Next() {
		fmt.Printf("\n--> Playing \"%s\" off of \"%s\" by \"%s\" -->\n\n", m.Title, m.AlbumTitle, m.Artist)
		cmd := exec.CommandContext(ctx, mplayer, m.ResourceURI)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Start(); err != nil {
			logger.Warn("error starting mplayer", zap.String("path", m.ResourceURI), zap.Error(err))
			continue
		}

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()

		select {
		case <-c:
			fmt.Println("\nSkipping...")
			<-done
			return nil
		case err := <-done:
			time.Sleep(250 * time.Millisecond)
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return nil
			}
		}
	}
	return nil
}

// runInteractive is the prompt started when no command is given.
func runInteractive(cmd *cobra.Command, args []string) error {
	s, err := openSession(openOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if s.ix.TracksCount() == 0 {
		rec := startReconciler(ctx, s)
		if _, err := indexMedia(ctx, s, rec, scanner.ScanOptions{}, true); err != nil {
			return err
		}
	}

	fmt.Println("For help with SMJ7-style syntax, use musicindex syntax")
	fmt.Println("Available parameters: !genre, @artist name, #album name, $track name")

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\n[SMJ7 | %s files] > ", commatize(s.ix.TracksCount()))
		if !in.Scan() {
			fmt.Fprintln(os.Stderr, "\nGoodbye.")
			return nil
		}
		results, err := s.searcher().Search(in.Text())
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			continue
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			continue
		}
		if len(results) == 1 {
			if err := play(ctx, playlist.New(results)); err != nil {
				return err
			}
			continue
		}

		printResults(os.Stdout, results)
		fmt.Println("\nEnter # to play, or one of: (A)ll, (R)andom choice, or (S)huffle all")
		fmt.Print("[Play command] > ")
		if !in.Scan() {
			return nil
		}
		if err := playlistHandler(ctx, in.Text(), results); err != nil {
			return err
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/crimsonsky/ai-player-sub001/internal/config"
	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/logging"
	"github.com/crimsonsky/ai-player-sub001/internal/replay"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

// #region main
func main() {
	cfgPath := flag.String("config", os.Getenv("GAMESTATE_CONFIG"), "path to YAML config")
	episodes := flag.StringSliceP("episode", "e", nil, "episode fixture JSON (repeatable)")
	out := flag.StringP("out", "o", "", "snapshot path (default replay.snapshot from config)")
	history := flag.Int("history", 1, "stack this many consecutive vectors per observation")
	appendTo := flag.Bool("append", false, "load the existing snapshot before collecting")
	journalPath := flag.String("journal", "", "record degraded encodes in this SQLite file")
	flag.Parse()

	if len(*episodes) == 0 {
		fmt.Fprintln(os.Stderr, "usage: collect --episode path/to/episode.json [--episode ...] [--out replay.db] [--history N] [--append] [--journal degradations.db]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	if *out != "" {
		cfg.Replay.Snapshot = *out
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(2)
	}

	os.Exit(run(cfg, *episodes, *history, *appendTo, *journalPath, logger))
}
// #endregion main

// #region run
func run(cfg config.Config, paths []string, history int, appendTo bool, journalPath string, logger *slog.Logger) int {
	codec, err := state.New(cfg.Codec, state.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build codec: %v\n", err)
		return 2
	}

	width := codec.Size() * max(history, 1)
	store, err := openStore(cfg, width, appendTo, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		return 2
	}

	collector, err := replay.NewCollector(codec, store, history, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build collector: %v\n", err)
		return 2
	}

	var journal *logging.Journal
	if journalPath != "" {
		if journal, err = logging.OpenJournal(journalPath); err != nil {
			fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
			return 2
		}
		defer journal.Close()
	}

	exitCode := 0
	for _, path := range paths {
		ep, err := replay.LoadEpisode(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		sum, err := collector.Collect(ep)
		printSummary(path, sum)
		if journal != nil {
			if err := recordDegradations(journal, sourceOf(ep, path), ep, sum); err != nil {
				fmt.Fprintf(os.Stderr, "journal: %v\n", err)
				return 2
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "collect %s: %v\n", path, err)
			exitCode = 1
			break
		}
		if sum.Degraded > 0 {
			exitCode = 1
		}
	}

	compression, _ := container.ParseCompression(cfg.Replay.Compression)
	if _, err := store.Save(cfg.Replay.Snapshot, container.WithCompression(compression), container.WithLogger(logger)); err != nil {
		fmt.Fprintf(os.Stderr, "save snapshot: %v\n", err)
		return 2
	}
	st := store.Stats()
	fmt.Printf("\nSaved %d experiences (capacity %d, %s) to %s\n", st.Size, st.Capacity, strategyName(st), cfg.Replay.Snapshot)
	return exitCode
}

func openStore(cfg config.Config, width int, appendTo bool, logger *slog.Logger) (*replay.Store, error) {
	opts := []replay.Option{replay.WithName("collect"), replay.WithLogger(logger)}
	if cfg.Replay.Seed != 0 {
		opts = append(opts, replay.WithSeed(cfg.Replay.Seed))
	}
	if appendTo {
		store, err := replay.Open(cfg.Replay.Snapshot, opts...)
		if err == nil {
			return store, nil
		}
		if !errors.Is(err, container.ErrNotFound) {
			return nil, err
		}
	}
	return replay.New(cfg.Replay.Capacity, append(opts, replay.WithStateWidth(width))...)
}
// #endregion run

// #region journal
func sourceOf(ep *replay.Episode, path string) string {
	if ep.Source != "" {
		return ep.Source
	}
	return path
}

func recordDegradations(j *logging.Journal, source string, ep *replay.Episode, sum replay.CollectSummary) error {
	for _, r := range sum.Results {
		if len(r.Degraded) == 0 {
			continue
		}
		err := j.LogDegradation(logging.DegradationEntry{
			Source:    source,
			Step:      r.Step,
			Timestamp: ep.Steps[r.Step].Scene.Timestamp,
			Sections:  r.Degraded,
			Reason:    "encode zero-filled " + strings.Join(r.Degraded, ","),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
// #endregion journal

// #region output
func printSummary(path string, sum replay.CollectSummary) {
	fmt.Printf("== %s\n", path)
	fmt.Printf("%-6s| %-10s| %s\n", "Step", "Action", "Degraded")
	fmt.Printf("%-6s+%-11s+%s\n", "------", "-----------", "----------")
	for _, r := range sum.Results {
		deg := "-"
		if len(r.Degraded) > 0 {
			deg = strings.Join(r.Degraded, ",")
		}
		if r.Err != nil {
			deg += " (" + r.Err.Error() + ")"
		}
		fmt.Printf("%-6d| %-10s| %s\n", r.Step, r.Action, deg)
	}
	fmt.Printf("\nSummary: %d steps, %d added, %d dropped, %d degraded, %d episodes\n",
		sum.Steps, sum.Added, sum.Dropped, sum.Degraded, sum.Episodes)
}

func strategyName(st replay.Stats) string {
	if st.Dense {
		return fmt.Sprintf("dense width %d", st.StateWidth)
	}
	return "variable"
}
// #endregion output

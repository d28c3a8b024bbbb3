package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimsonsky/ai-player-sub001/internal/config"
	"github.com/crimsonsky/ai-player-sub001/internal/logging"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

var (
	cfgPath    string
	vectorName string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:           "statectl",
		Short:         "Encode, decode and inspect game state vectors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("GAMESTATE_CONFIG"), "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&vectorName, "name", "state", "array name inside a vector container")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON instead of a table")
	rootCmd.AddCommand(encodeCmd, decodeCmd, inspectCmd, layoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newCodec builds the codec and logger from --config.
func newCodec() (*state.Codec, *slog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	codec, err := state.New(cfg.Codec, state.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return codec, logger, nil
}

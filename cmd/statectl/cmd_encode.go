package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/scene"
	"github.com/crimsonsky/ai-player-sub001/internal/state"
)

var (
	encodeOut         string
	encodeCompression string
	encodeStrict      bool
)

var encodeCmd = &cobra.Command{
	Use:   "encode <scene.json>",
	Short: "Encode a scene description into a state vector",
	Long: `Encodes a scene JSON file. The vector is printed as a JSON array, or
written to a vector container with --out. Sections that fail to encode
are zero-filled and reported on stderr; --strict turns that into an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeOut, "out", "o", "", "write the vector to this container file")
	encodeCmd.Flags().StringVar(&encodeCompression, "compression", string(container.CompressionNone), "container compression: none, lz4, zstd, bg4_lz4, auto")
	encodeCmd.Flags().BoolVar(&encodeStrict, "strict", false, "fail when any section degrades")
}

func runEncode(cmd *cobra.Command, args []string) error {
	codec, logger, err := newCodec()
	if err != nil {
		return err
	}
	d, err := scene.Load(args[0])
	if err != nil {
		return err
	}

	v, err := codec.Encode(*d)
	var ee *state.EncodeError
	switch {
	case errors.As(err, &ee):
		fmt.Fprintf(os.Stderr, "degraded sections: %v\n", ee.Failed())
		if encodeStrict {
			return err
		}
	case err != nil:
		return err
	}

	if encodeOut == "" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
	}
	c, err := container.ParseCompression(encodeCompression)
	if err != nil {
		return err
	}
	meta := container.Metadata{
		"source":      args[0],
		"context":     d.Context.String(),
		"timestamp":   d.Timestamp,
		"vector_size": codec.Size(),
		"encoded_at":  time.Now().UTC().Format(time.RFC3339),
		"degraded":    ee != nil,
	}
	if err := container.SaveVector(encodeOut, vectorName, v, meta, container.WithCompression(c), container.WithLogger(logger)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d values to %s (%s)\n", len(v), encodeOut, vectorName)
	return nil
}

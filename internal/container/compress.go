package container

// The incompressible fallback, the zstd coder setup and the byte-grouping
// transpose are derived from Bureau's lib/artifactstore/compress.go,
// Copyright 2026 The Bureau Authors, licensed under Apache-2.0.

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// #region compression-tag
// Compression identifies how an array payload is stored. The string
// forms are written into the container and must not change.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionLZ4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
	CompressionBG4LZ4 Compression = "bg4_lz4"
	// CompressionAuto picks per array at save time. It is never stored.
	CompressionAuto Compression = "auto"
)

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(name); c {
	case CompressionNone, CompressionLZ4, CompressionZstd, CompressionBG4LZ4, CompressionAuto:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", name)
}
// #endregion compression-tag

// #region compress
var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("container: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("container: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the stored payload and the tag actually used. Data
// that does not shrink is stored uncompressed.
func compress(data []byte, c Compression, dtype DType) ([]byte, Compression, error) {
	if c == CompressionAuto {
		c = selectCompression(data, dtype)
	}
	var out []byte
	var err error
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		out, err = compressLZ4(data)
	case CompressionZstd:
		out, err = compressZstd(data)
	case CompressionBG4LZ4:
		out, err = compressLZ4(bg4Transpose(data))
	default:
		return nil, "", fmt.Errorf("unsupported compression %q", c)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, "", err
	}
	return out, c, nil
}

func decompress(stored []byte, c Compression, rawSize int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(stored) != rawSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match expected %d", len(stored), rawSize)
		}
		return stored, nil
	case CompressionLZ4:
		return decompressLZ4(stored, rawSize)
	case CompressionZstd:
		return decompressZstd(stored, rawSize)
	case CompressionBG4LZ4:
		t, err := decompressLZ4(stored, rawSize)
		if err != nil {
			return nil, err
		}
		return bg4Untranspose(t), nil
	}
	return nil, fmt.Errorf("unsupported compression %q", c)
}

// selectCompression prefers byte grouping for 4-byte numeric data and
// otherwise probes zstd: a ratio of 1.5 or better picks zstd, 1.1 or
// better picks lz4.
func selectCompression(data []byte, dtype DType) Compression {
	if len(data) == 0 {
		return CompressionNone
	}
	if dtype.ItemSize() == 4 {
		return CompressionBG4LZ4
	}
	ratio := float64(len(data)) / float64(len(zstdEncoder.EncodeAll(data, nil)))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	}
	return CompressionNone
}
// #endregion compress

// #region codecs
func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

// lz4MaxRatio bounds how far one LZ4 block can expand: each match
// length extension byte adds at most 255 output bytes.
const lz4MaxRatio = 255

func decompressLZ4(stored []byte, rawSize int) ([]byte, error) {
	if rawSize < 0 || rawSize > lz4MaxRatio*len(stored)+16 {
		return nil, fmt.Errorf("lz4 decompress: %d stored bytes cannot expand to %d", len(stored), rawSize)
	}
	dst := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(stored, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != rawSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, rawSize)
	}
	return dst, nil
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out) >= len(data) {
		return nil, errIncompressible
	}
	return out, nil
}

func decompressZstd(stored []byte, rawSize int) ([]byte, error) {
	var h zstd.Header
	if err := h.Decode(stored); err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if rawSize < 0 || (h.HasFCS && h.FrameContentSize != uint64(rawSize)) {
		return nil, fmt.Errorf("zstd decompress: frame holds %d bytes, expected %d", h.FrameContentSize, rawSize)
	}
	prealloc := rawSize
	if !h.HasFCS {
		prealloc = min(rawSize, 1<<20)
	}
	out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, prealloc))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), rawSize)
	}
	return out, nil
}

// bg4Transpose groups byte 0 of every 4-byte word, then byte 1, and so
// on. Trailing bytes that do not fill a word are copied as-is.
func bg4Transpose(data []byte) []byte {
	n := len(data) / 4
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[i] = data[i*4]
		out[n+i] = data[i*4+1]
		out[2*n+i] = data[i*4+2]
		out[3*n+i] = data[i*4+3]
	}
	copy(out[n*4:], data[n*4:])
	return out
}

func bg4Untranspose(data []byte) []byte {
	n := len(data) / 4
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[i*4] = data[i]
		out[i*4+1] = data[n+i]
		out[i*4+2] = data[2*n+i]
		out[i*4+3] = data[3*n+i]
	}
	copy(out[n*4:], data[n*4:])
	return out
}
// #endregion codecs

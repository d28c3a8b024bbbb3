package container

import (
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "arrays.db")
}

func smoothFloats(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(float64(i)/50)) * 0.5
	}
	return out
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd, CompressionBG4LZ4, CompressionAuto} {
		t.Run(string(c), func(t *testing.T) {
			path := tempPath(t)
			vals := smoothFloats(4096)
			vals[7] = float32(math.Copysign(0, -1))
			vals[8] = math.SmallestNonzeroFloat32
			arrays := map[string]Array{
				"states":  FromFloat32(vals, 64, 64),
				"actions": FromInt32([]int32{1, -2, 3}),
				"mask":    FromUint8([]uint8{0, 1, 1, 0}),
				"steps":   FromInt64([]int64{math.MaxInt64, -1}),
				"values":  FromFloat64([]float64{math.Pi, math.Inf(1)}),
				"empty":   FromFloat32(nil),
			}
			require.NoError(t, SaveArrays(path, arrays, Metadata{"capacity": 10}, WithCompression(c)))

			got, _, err := LoadArrays(path)
			require.NoError(t, err)
			require.Len(t, got, len(arrays))
			for name, want := range arrays {
				assert.Equal(t, want.DType, got[name].DType, name)
				assert.Equal(t, want.Shape, got[name].Shape, name)
				assert.Equal(t, want.Data, got[name].Data, name)
			}

			back, err := got["states"].Float32s()
			require.NoError(t, err)
			for i := range vals {
				require.Equal(t, math.Float32bits(vals[i]), math.Float32bits(back[i]), "index %d", i)
			}
		})
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	path := tempPath(t)
	meta := Metadata{
		"name":     "buffer",
		"ready":    true,
		"capacity": 100000,
		"position": int64(-3),
		"small":    uint8(7),
		"ratio":    0.1,
		"f32":      float32(0.3),
		"nan":      math.NaN(),
		"shape":    []int{4, 256},
		"nested":   map[string]any{"a": "b", "n": 2},
	}
	require.NoError(t, SaveArrays(path, map[string]Array{"v": FromFloat32([]float32{1})}, meta))

	_, got, err := LoadArrays(path)
	require.NoError(t, err)
	assert.Equal(t, "buffer", got["name"])
	assert.Equal(t, true, got["ready"])
	assert.Equal(t, int64(100000), got["capacity"])
	assert.Equal(t, int64(-3), got["position"])
	assert.Equal(t, int64(7), got["small"])
	assert.Equal(t, 0.1, got["ratio"])
	assert.Equal(t, float64(float32(0.3)), got["f32"])
	assert.True(t, math.IsNaN(got["nan"].(float64)))
	assert.Equal(t, []any{float64(4), float64(256)}, got["shape"])
	assert.Equal(t, map[string]any{"a": "b", "n": float64(2)}, got["nested"])

	n, ok := got.Int("capacity")
	assert.True(t, ok)
	assert.Equal(t, int64(100000), n)
}

func TestSave_Overwrites(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, SaveVector(path, "v", []float32{1, 2, 3}, nil))
	require.NoError(t, SaveVector(path, "w", []float32{4}, Metadata{"gen": 2}))

	arrays, meta, err := LoadArrays(path)
	require.NoError(t, err)
	assert.NotContains(t, arrays, "v")
	assert.Contains(t, arrays, "w")
	assert.Equal(t, int64(2), meta["gen"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestSave_RejectsBadArray(t *testing.T) {
	path := tempPath(t)
	bad := Array{DType: DTypeFloat32, Shape: []int{3}, Data: make([]byte, 8)}
	require.Error(t, SaveArrays(path, map[string]Array{"bad": bad}, nil))
	require.Error(t, SaveArrays(path, map[string]Array{"x": {DType: "complex64", Shape: []int{0}}}, nil))
	require.Error(t, SaveArrays(path, nil, nil, WithCompression("brotli")))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestVector_RoundTrip(t *testing.T) {
	path := tempPath(t)
	vec := smoothFloats(256)
	require.NoError(t, SaveVector(path, "state", vec, Metadata{"ts": 12.5}, WithCompression(CompressionAuto)))

	got, meta, err := LoadVector(path, "state")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
	assert.Equal(t, 12.5, meta["ts"])

	_, _, err = LoadVector(path, "missing")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad_NotFound(t *testing.T) {
	_, _, err := LoadArrays(filepath.Join(t.TempDir(), "nope.db"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_FormatErrors(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		path := tempPath(t)
		require.NoError(t, os.WriteFile(path, []byte("this is not a container at all, just some text padding it out"), 0o644))
		_, _, err := LoadArrays(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("empty file", func(t *testing.T) {
		path := tempPath(t)
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		_, _, err := LoadArrays(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("foreign database", func(t *testing.T) {
		path := tempPath(t)
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`CREATE TABLE other (x INTEGER)`)
		require.NoError(t, err)
		require.NoError(t, db.Close())
		_, _, err = LoadArrays(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		path := tempPath(t)
		require.NoError(t, SaveVector(path, "v", []float32{1, 2, 3}, nil))
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`UPDATE arrays SET data = ? WHERE name = 'v'`, make([]byte, 12))
		require.NoError(t, err)
		require.NoError(t, db.Close())
		_, _, err = LoadArrays(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("truncated compressed payload", func(t *testing.T) {
		path := tempPath(t)
		require.NoError(t, SaveArrays(path, map[string]Array{"v": FromFloat32(make([]float32, 1024))}, nil, WithCompression(CompressionLZ4)))
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec(`UPDATE arrays SET data = substr(data, 1, 3) WHERE name = 'v'`)
		require.NoError(t, err)
		require.NoError(t, db.Close())
		_, _, err = LoadArrays(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	for _, tc := range []struct {
		name   string
		update string
	}{
		{"negative raw size", `UPDATE arrays SET raw_size = -1`},
		{"huge raw size", `UPDATE arrays SET raw_size = 1099511627776`},
		{"raw size disagrees with shape", `UPDATE arrays SET raw_size = raw_size + 4`},
		{"negative dimension", `UPDATE arrays SET shape = '[-64]'`},
		{"overflowing shape", `UPDATE arrays SET shape = '[4611686018427387904, 4]'`},
		{"unknown dtype", `UPDATE arrays SET dtype = 'complex128'`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := tempPath(t)
			require.NoError(t, SaveArrays(path, map[string]Array{"v": FromFloat32(smoothFloats(64))}, nil, WithCompression(CompressionLZ4)))
			db, err := sql.Open("sqlite", path)
			require.NoError(t, err)
			_, err = db.Exec(tc.update)
			require.NoError(t, err)
			require.NoError(t, db.Close())

			var loadErr error
			require.NotPanics(t, func() { _, _, loadErr = LoadArrays(path) })
			assert.ErrorIs(t, loadErr, ErrFormat)
		})
	}
}

func TestDecompress_RejectsImpossibleSizes(t *testing.T) {
	raw := []byte(strings.Repeat("state vector ", 64))
	for _, c := range []Compression{CompressionLZ4, CompressionZstd, CompressionBG4LZ4} {
		t.Run(string(c), func(t *testing.T) {
			stored, used, err := compress(raw, c, DTypeUint8)
			require.NoError(t, err)
			require.Equal(t, c, used)

			for _, size := range []int{-1, len(raw) + 1, 1 << 40} {
				var out []byte
				require.NotPanics(t, func() { out, err = decompress(stored, c, size) })
				assert.Error(t, err, "size %d", size)
				assert.Nil(t, out)
			}
			out, err := decompress(stored, c, len(raw))
			require.NoError(t, err)
			assert.Equal(t, raw, out)
		})
	}
}

func TestCompress_FallsBackWhenIncompressible(t *testing.T) {
	data := []byte{1, 2, 3}
	out, used, err := compress(data, CompressionZstd, DTypeUint8)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, used)
	assert.Equal(t, data, out)
}

func TestBG4_Inverse(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, data, bg4Untranspose(bg4Transpose(data)))
	assert.Equal(t, []byte{1, 5, 2, 6, 3, 7, 4, 8, 9, 10}, bg4Transpose(data))
}

func TestArrayAccessors(t *testing.T) {
	a := FromInt32([]int32{5, 6}, 2, 1)
	_, err := a.Float32s()
	assert.Error(t, err)
	v, err := a.Int32s()
	require.NoError(t, err)
	assert.Equal(t, []int32{5, 6}, v)
	assert.Equal(t, 2, a.Len())
}

func TestSave_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "experiences", "replay.db")
	require.NoError(t, SaveVector(path, "v", []float32{0.5, 1}, nil))
	got, _, err := LoadVector(path, "v")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1}, got)
}

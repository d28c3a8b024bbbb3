package container

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

// #region schema
const (
	formatTag     = "gamestate-arrays"
	formatVersion = 1
)

const schema = `
CREATE TABLE container_info (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	format        TEXT NOT NULL,
	version       INTEGER NOT NULL,
	container_id  TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE arrays (
	name          TEXT PRIMARY KEY,
	dtype         TEXT NOT NULL,
	shape         TEXT NOT NULL,
	compression   TEXT NOT NULL,
	raw_size      INTEGER NOT NULL,
	checksum      TEXT NOT NULL,
	data          BLOB NOT NULL
);

CREATE TABLE attrs (
	key           TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	value         TEXT NOT NULL
);
`
// #endregion schema

// #region errors
var (
	// ErrNotFound is returned when the container path does not exist.
	ErrNotFound = errors.New("container not found")
	// ErrFormat is returned when a container is unreadable or corrupt.
	ErrFormat = errors.New("container format error")
)
// #endregion errors

// #region options
type options struct {
	compression Compression
	logger      *slog.Logger
}

// Option configures SaveArrays.
type Option func(*options)

// WithCompression selects the payload compression. The default is none.
func WithCompression(c Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithLogger sets the logger for save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{compression: CompressionNone, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
// #endregion options

// #region save
// SaveArrays writes arrays and meta to a new container at path,
// replacing any existing file. The file is built next to path and
// renamed into place, so readers never see a partial container.
func SaveArrays(path string, arrays map[string]Array, meta Metadata, opts ...Option) (err error) {
	o := buildOptions(opts)
	if _, err := ParseCompression(string(o.compression)); err != nil {
		return err
	}
	for name, a := range arrays {
		if name == "" {
			return fmt.Errorf("array with empty name")
		}
		if err := a.Check(); err != nil {
			return fmt.Errorf("array %q: %w", name, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create container dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	stored, err := writeContainer(tmpPath, arrays, meta, o)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename container: %w", err)
	}
	o.logger.Debug("container saved",
		"path", path,
		"arrays", len(arrays),
		"attrs", len(meta),
		"stored_bytes", stored,
	)
	return nil
}

func writeContainer(path string, arrays map[string]Array, meta Metadata, o options) (int, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("open container: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO container_info (id, format, version, container_id, created_at) VALUES (1, ?, ?, ?, ?)`,
		formatTag, formatVersion, uuid.New().String(), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return 0, fmt.Errorf("insert info: %w", err)
	}

	stored := 0
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		a := arrays[name]
		payload, used, err := compress(a.Data, o.compression, a.DType)
		if err != nil {
			return 0, fmt.Errorf("compress %q: %w", name, err)
		}
		if payload == nil {
			payload = []byte{}
		}
		shape, err := json.Marshal(a.Shape)
		if err != nil {
			return 0, fmt.Errorf("marshal shape %q: %w", name, err)
		}
		sum := blake3.Sum256(a.Data)
		if _, err := tx.Exec(
			`INSERT INTO arrays (name, dtype, shape, compression, raw_size, checksum, data) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, string(a.DType), string(shape), string(used), len(a.Data), hex.EncodeToString(sum[:]), payload,
		); err != nil {
			return 0, fmt.Errorf("insert array %q: %w", name, err)
		}
		stored += len(payload)
	}

	for key, v := range meta {
		kind, text, err := encodeAttr(v)
		if err != nil {
			return 0, fmt.Errorf("attr %q: %w", key, err)
		}
		if _, err := tx.Exec(`INSERT INTO attrs (key, kind, value) VALUES (?, ?, ?)`, key, kind, text); err != nil {
			return 0, fmt.Errorf("insert attr %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	if err := db.Close(); err != nil {
		return 0, fmt.Errorf("close container: %w", err)
	}
	return stored, nil
}
// #endregion save

// #region load
// LoadArrays reads every array and the metadata from the container at path.
func LoadArrays(path string) (map[string]Array, Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("stat container: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %w", ErrFormat, path, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA query_only=ON"); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}

	var format string
	var version int
	if err := db.QueryRow(`SELECT format, version FROM container_info WHERE id = 1`).Scan(&format, &version); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: read info: %w", ErrFormat, path, err)
	}
	if format != formatTag || version != formatVersion {
		return nil, nil, fmt.Errorf("%w: %s: format %q version %d", ErrFormat, path, format, version)
	}

	arrays, err := readArrays(db)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	meta, err := readAttrs(db)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	return arrays, meta, nil
}

func readArrays(db *sql.DB) (map[string]Array, error) {
	rows, err := db.Query(`SELECT name, dtype, shape, compression, raw_size, checksum, data FROM arrays`)
	if err != nil {
		return nil, fmt.Errorf("query arrays: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Array)
	for rows.Next() {
		var name, dtype, shapeJSON, comp, checksum string
		var rawSize int
		var stored []byte
		if err := rows.Scan(&name, &dtype, &shapeJSON, &comp, &rawSize, &checksum, &stored); err != nil {
			return nil, fmt.Errorf("scan array: %w", err)
		}
		var shape []int
		if err := json.Unmarshal([]byte(shapeJSON), &shape); err != nil {
			return nil, fmt.Errorf("array %q shape: %w", name, err)
		}
		want, err := Array{DType: DType(dtype), Shape: shape}.ByteSize()
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
		if rawSize != want {
			return nil, fmt.Errorf("array %q: raw size %d, %s shape %v needs %d", name, rawSize, dtype, shape, want)
		}
		data, err := decompress(stored, Compression(comp), rawSize)
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
		sum := blake3.Sum256(data)
		if hex.EncodeToString(sum[:]) != checksum {
			return nil, fmt.Errorf("array %q: checksum mismatch", name)
		}
		a := Array{DType: DType(dtype), Shape: shape, Data: data}
		if err := a.Check(); err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
		out[name] = a
	}
	return out, rows.Err()
}

func readAttrs(db *sql.DB) (Metadata, error) {
	rows, err := db.Query(`SELECT key, kind, value FROM attrs`)
	if err != nil {
		return nil, fmt.Errorf("query attrs: %w", err)
	}
	defer rows.Close()

	meta := make(Metadata)
	for rows.Next() {
		var key, kind, text string
		if err := rows.Scan(&key, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan attr: %w", err)
		}
		v, err := decodeAttr(kind, text)
		if err != nil {
			return nil, fmt.Errorf("attr %q: %w", key, err)
		}
		meta[key] = v
	}
	return meta, rows.Err()
}
// #endregion load

// #region vectors
// SaveVector writes a single float32 vector under name.
func SaveVector(path, name string, v []float32, meta Metadata, opts ...Option) error {
	return SaveArrays(path, map[string]Array{name: FromFloat32(v)}, meta, opts...)
}

// LoadVector reads the float32 array stored under name.
func LoadVector(path, name string) ([]float32, Metadata, error) {
	arrays, meta, err := LoadArrays(path)
	if err != nil {
		return nil, nil, err
	}
	a, ok := arrays[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s has no array %q", ErrFormat, path, name)
	}
	v, err := a.Float32s()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrFormat, path, err)
	}
	return v, meta, nil
}
// #endregion vectors

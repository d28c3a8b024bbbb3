package replaysvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/crimsonsky/ai-player-sub001/internal/container"
	"github.com/crimsonsky/ai-player-sub001/internal/replay"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region server-struct
// ServerConfig controls snapshot placement and sampling readiness.
type ServerConfig struct {
	SnapshotDir  string
	SnapshotName string
	Compression  container.Compression
	MinReady     int
}

// Server exposes a replay store over gRPC.
type Server struct {
	store  *replay.Store
	cfg    ServerConfig
	logger *slog.Logger
}

// NewServer wraps store. A nil logger discards output.
func NewServer(store *replay.Store, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.SnapshotName == "" {
		cfg.SnapshotName = "replay.db"
	}
	if cfg.Compression == "" {
		cfg.Compression = container.CompressionNone
	}
	return &Server{store: store, cfg: cfg, logger: logger}
}

var _ ReplayServiceServer = (*Server)(nil)
// #endregion server-struct

// #region handlers
// Add appends transitions atomically: either all are stored or none.
func (s *Server) Add(_ context.Context, req *AddRequest) (*AddResponse, error) {
	batch := make([]replay.Experience, len(req.Transitions))
	for i, t := range req.Transitions {
		batch[i] = t.experience()
	}
	if err := s.store.AddBatch(batch); err != nil {
		return nil, toStatus(err)
	}
	return &AddResponse{Added: len(batch), Size: s.store.Len()}, nil
}

// Sample draws a uniform batch without replacement.
func (s *Server) Sample(_ context.Context, req *SampleRequest) (*SampleResponse, error) {
	if s.cfg.MinReady > 0 && !s.store.IsReady(s.cfg.MinReady) {
		return nil, status.Errorf(codes.FailedPrecondition, "store holds %d of %d required experiences", s.store.Len(), s.cfg.MinReady)
	}
	b, err := s.store.SampleBatch(req.BatchSize)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &SampleResponse{Transitions: make([]Transition, b.Len()), Indices: b.Indices}
	for i := range resp.Transitions {
		resp.Transitions[i] = toTransition(b.Experience(i))
	}
	return resp, nil
}

// Stats reports store counters.
func (s *Server) Stats(context.Context, *StatsRequest) (*StatsResponse, error) {
	st := s.store.Stats()
	return &StatsResponse{
		Capacity:     st.Capacity,
		Size:         st.Size,
		Position:     st.Position,
		TotalAdded:   st.TotalAdded,
		TotalSampled: st.TotalSampled,
		Utilization:  st.Utilization,
		Dense:        st.Dense,
		StateWidth:   st.StateWidth,
		Ready:        s.cfg.MinReady <= 0 || st.Size >= s.cfg.MinReady,
	}, nil
}

// Save writes a snapshot under the configured snapshot directory.
func (s *Server) Save(_ context.Context, req *SaveRequest) (*SaveResponse, error) {
	name := req.Name
	if name == "" {
		name = s.cfg.SnapshotName
	}
	if !filepath.IsLocal(name) {
		return nil, status.Errorf(codes.InvalidArgument, "snapshot name %q must be a local path", name)
	}
	path := filepath.Join(s.cfg.SnapshotDir, name)
	n, err := s.store.Save(path, container.WithCompression(s.cfg.Compression), container.WithLogger(s.logger))
	if err != nil {
		s.logger.Error("snapshot failed", "path", path, "error", err)
		return nil, toStatus(fmt.Errorf("save snapshot: %w", err))
	}
	return &SaveResponse{Path: path, Size: n}, nil
}

// Clear empties the store.
func (s *Server) Clear(context.Context, *ClearRequest) (*ClearResponse, error) {
	return &ClearResponse{Cleared: s.store.Clear()}, nil
}
// #endregion handlers

// #region status
func toStatus(err error) error {
	switch {
	case errors.Is(err, replay.ErrShapeMismatch), errors.Is(err, replay.ErrInvalidBatchSize):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, replay.ErrInsufficientData):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, container.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, container.ErrFormat), errors.Is(err, replay.ErrStrategyMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
// #endregion status

package replaysvc

import (
	"context"
	"fmt"

	"github.com/crimsonsky/ai-player-sub001/internal/replay"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// #region client-struct
// Client wraps the gRPC connection to a replay server.
type Client struct {
	conn   *grpc.ClientConn
	client ReplayServiceClient
}
// #endregion client-struct

// #region constructor
// NewClient connects to a replay server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewReplayServiceClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc ReplayServiceClient) *Client {
	return &Client{client: svc}
}
// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion close

// #region calls
// Add sends experiences to the server and returns the resulting store size.
func (c *Client) Add(ctx context.Context, exps ...replay.Experience) (int, error) {
	req := &AddRequest{Transitions: make([]Transition, len(exps))}
	for i, e := range exps {
		req.Transitions[i] = toTransition(e)
	}
	resp, err := c.client.Add(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("add rpc: %w", err)
	}
	return resp.Size, nil
}

// Sample requests a batch of k experiences.
func (c *Client) Sample(ctx context.Context, k int) (replay.Batch, error) {
	resp, err := c.client.Sample(ctx, &SampleRequest{BatchSize: k})
	if err != nil {
		return replay.Batch{}, fmt.Errorf("sample rpc: %w", err)
	}
	b := replay.Batch{
		States:     make([][]float32, len(resp.Transitions)),
		Actions:    make([]int32, len(resp.Transitions)),
		Rewards:    make([]float32, len(resp.Transitions)),
		NextStates: make([][]float32, len(resp.Transitions)),
		Dones:      make([]bool, len(resp.Transitions)),
		Indices:    resp.Indices,
	}
	for i, t := range resp.Transitions {
		b.States[i] = t.State
		b.Actions[i] = t.Action
		b.Rewards[i] = t.Reward
		b.NextStates[i] = t.NextState
		b.Dones[i] = t.Done
	}
	return b, nil
}

// Stats fetches the server's store counters.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	resp, err := c.client.Stats(ctx, &StatsRequest{})
	if err != nil {
		return nil, fmt.Errorf("stats rpc: %w", err)
	}
	return resp, nil
}

// Save asks the server to snapshot its store. An empty name uses the
// server default; the returned path is server-side.
func (c *Client) Save(ctx context.Context, name string) (string, error) {
	resp, err := c.client.Save(ctx, &SaveRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("save rpc: %w", err)
	}
	return resp.Path, nil
}

// Clear empties the server's store and returns how many experiences it held.
func (c *Client) Clear(ctx context.Context) (int, error) {
	resp, err := c.client.Clear(ctx, &ClearRequest{})
	if err != nil {
		return 0, fmt.Errorf("clear rpc: %w", err)
	}
	return resp.Cleared, nil
}
// #endregion calls

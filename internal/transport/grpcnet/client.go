package grpcnet

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chordring/internal/domain"
	"chordring/internal/ring"
	"chordring/internal/transport"
)

// Client implements transport.Transport by issuing Invoke calls directly
// against a *Pool of real grpc.ClientConn, using the jsonCodec content
// subtype instead of a generated stub.
type Client struct {
	pool  *Pool
	space ring.Space
}

// NewClient builds a Client backed by pool.
func NewClient(pool *Pool, space ring.Space) *Client {
	return &Client{pool: pool, space: space}
}

func (c *Client) invoke(ctx context.Context, peer *domain.Node, method string, req, resp any) error {
	conn, release, err := c.pool.dial(peer.Addr)
	if err != nil {
		return transport.ErrUnreachable
	}
	defer release()

	fullMethod := "/" + serviceName + "/" + method
	err = conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return classifyError(err)
	}
	return nil
}

func classifyError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return transport.ErrUnreachable
	}
	switch st.Code() {
	case codes.NotFound:
		return transport.ErrNotFound
	case codes.FailedPrecondition:
		return transport.ErrNotResponsible
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return transport.ErrUnreachable
	default:
		return errors.New(st.Message())
	}
}

func (c *Client) FindSuccessorForId(ctx context.Context, peer *domain.Node, id ring.ID) (*domain.Node, error) {
	var resp nodeResponse
	if err := c.invoke(ctx, peer, "FindSuccessorForId", &findSuccessorRequest{ID: id.Hex()}, &resp); err != nil {
		return nil, err
	}
	return c.fromWireNode(resp.Node)
}

func (c *Client) GetSuccessorId(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	var resp nodeResponse
	if err := c.invoke(ctx, peer, "GetSuccessorId", &emptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return c.fromWireNode(resp.Node)
}

func (c *Client) GetPredecessor(ctx context.Context, peer *domain.Node) (*domain.Node, error) {
	var resp nodeResponse
	if err := c.invoke(ctx, peer, "GetPredecessor", &emptyRequest{}, &resp); err != nil {
		return nil, err
	}
	return c.fromWireNode(resp.Node)
}

func (c *Client) Notify(ctx context.Context, peer *domain.Node, candidate *domain.Node) error {
	var resp emptyResponse
	return c.invoke(ctx, peer, "Notify", &notifyRequest{Candidate: toWireNode(candidate)}, &resp)
}

func (c *Client) Ping(ctx context.Context, peer *domain.Node) error {
	var resp emptyResponse
	return c.invoke(ctx, peer, "Ping", &emptyRequest{}, &resp)
}

func (c *Client) GetSuccessorsList(ctx context.Context, peer *domain.Node) ([]*domain.Node, error) {
	var resp successorsListResponse
	if err := c.invoke(ctx, peer, "GetSuccessorsList", &emptyRequest{}, &resp); err != nil {
		return nil, err
	}
	nodes := make([]*domain.Node, len(resp.Nodes))
	for i, wn := range resp.Nodes {
		n, err := c.fromWireNode(wn)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func (c *Client) GetStorageValue(ctx context.Context, peer *domain.Node, key ring.ID) ([]byte, error) {
	var resp storageValueResponse
	if err := c.invoke(ctx, peer, "GetStorageValue", &storageKeyRequest{Key: key.Hex()}, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Client) StoreValue(ctx context.Context, peer *domain.Node, res domain.Resource) error {
	var resp emptyResponse
	req := toWireResource(res)
	return c.invoke(ctx, peer, "StoreValue", &req, &resp)
}

func (c *Client) RemoveValue(ctx context.Context, peer *domain.Node, key ring.ID) error {
	var resp emptyResponse
	return c.invoke(ctx, peer, "RemoveValue", &storageKeyRequest{Key: key.Hex()}, &resp)
}

var _ transport.Transport = (*Client)(nil)

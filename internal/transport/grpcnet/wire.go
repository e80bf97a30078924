package grpcnet

import (
	"chordring/internal/domain"
	"chordring/internal/ring"
)

// Wire message shapes for the nine RPCs. Kept deliberately flat and
// JSON-tagged since jsonCodec serializes these directly; there is no
// protobuf descriptor layer underneath.

type wireNode struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}

func toWireNode(n *domain.Node) *wireNode {
	if n == nil {
		return nil
	}
	return &wireNode{ID: n.ID.Hex(), Addr: n.Addr}
}

func (c *Client) fromWireNode(n *wireNode) (*domain.Node, error) {
	if n == nil {
		return nil, nil
	}
	id, err := c.space.FromHex(n.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Node{ID: id, Addr: n.Addr}, nil
}

type findSuccessorRequest struct {
	ID string `json:"id"`
}

type nodeResponse struct {
	Node *wireNode `json:"node"`
}

type notifyRequest struct {
	Candidate *wireNode `json:"candidate"`
}

type emptyRequest struct{}

type emptyResponse struct{}

type successorsListResponse struct {
	Nodes []*wireNode `json:"nodes"`
}

type storageKeyRequest struct {
	Key string `json:"key"`
}

type storageValueResponse struct {
	Value []byte `json:"value"`
}

type storeValueRequest struct {
	Key    string `json:"key"`
	RawKey string `json:"rawKey"`
	Value  []byte `json:"value"`
}

func toWireResource(r domain.Resource) storeValueRequest {
	return storeValueRequest{Key: r.Key.Hex(), RawKey: r.RawKey, Value: r.Value}
}

func (c *Client) fromWireResource(req storeValueRequest) (domain.Resource, error) {
	key, err := c.space.FromHex(req.Key)
	if err != nil {
		return domain.Resource{}, err
	}
	return domain.Resource{Key: key, RawKey: req.RawKey, Value: req.Value}, nil
}

// parseID is a free function variant used server-side, where a *Server
// (not a *Client) holds the space.
func parseID(space ring.Space, hex string) (ring.ID, error) {
	return space.FromHex(hex)
}

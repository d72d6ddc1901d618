package server

import (
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kadseed/seeder/internal/membership"
	"github.com/kadseed/seeder/internal/wire"
)

// handlers holds the per-datagram dependencies shared by all five
// request handlers. It is cheap to construct and carries no state of its
// own beyond what it was given, so the dispatcher builds one per
// datagram rather than synchronizing access to a shared instance.
type handlers struct {
	index        *membership.Index
	log          log.Logger
	pingInterval time.Duration
}

// dispatch decodes env's payload by its type tag and runs the matching
// handler. It returns the reply payload and its response type, and ok
// false when the request type owes no reply (PeerStatus, Bye) or could
// not be decoded.
func (h handlers) dispatch(env *wire.RequestEnvelope) (reply interface{}, replyType wire.ResponseType, ok bool) {
	switch env.Type {
	case wire.RequestHello:
		req, err := wire.DecodeHello(env.Payload)
		if err != nil {
			metricMalformed.Inc(1)
			h.log.Warn("malformed hello payload", "err", err)
			return nil, 0, false
		}
		return h.hello(req), wire.ResponseHello, true

	case wire.RequestGetElitedPeers:
		req, err := wire.DecodeGetElitedPeers(env.Payload)
		if err != nil {
			metricMalformed.Inc(1)
			h.log.Warn("malformed get_elited_peers payload", "err", err)
			return nil, 0, false
		}
		return h.getElitedPeers(req), wire.ResponseGetElitedPeers, true

	case wire.RequestGetPeersByLastAlive:
		req, err := wire.DecodeGetPeersByLastAlive(env.Payload)
		if err != nil {
			metricMalformed.Inc(1)
			h.log.Warn("malformed get_peers_by_last_alive payload", "err", err)
			return nil, 0, false
		}
		return h.getPeersByLastAlive(req), wire.ResponseGetAlivePeers, true

	case wire.RequestPeerStatus:
		req, err := wire.DecodePeerStatus(env.Payload)
		if err != nil {
			metricMalformed.Inc(1)
			h.log.Warn("malformed peer_status payload", "err", err)
			return nil, 0, false
		}
		h.peerStatus(req)
		return nil, 0, false

	case wire.RequestBye:
		req, err := wire.DecodeBye(env.Payload)
		if err != nil {
			metricMalformed.Inc(1)
			h.log.Warn("malformed bye payload", "err", err)
			return nil, 0, false
		}
		h.bye(req)
		return nil, 0, false

	default:
		return nil, 0, false
	}
}

// hello registers a new peer, or reports that it is already registered.
// Only a freshly-added peer is told the configured ping interval.
func (h handlers) hello(req *wire.HelloRequest) *wire.HelloResponse {
	if h.index.Add(req.Address) {
		return &wire.HelloResponse{
			Result:              wire.RegisteredSuccessfully,
			PingIntervalSeconds: uint64(h.pingInterval / time.Second),
		}
	}
	return &wire.HelloResponse{Result: wire.AlreadyRegistered}
}

// getElitedPeers returns up to NumberOfPeers low-connection-count peers.
func (h handlers) getElitedPeers(req *wire.GetElitedPeersRequest) *wire.GetElitedPeersResponse {
	n := req.NumberOfPeers
	if n > math.MaxInt {
		n = math.MaxInt
	}
	peers := h.index.EliteTop(int(n))
	return &wire.GetElitedPeersResponse{Peers: peers}
}

// getPeersByLastAlive returns every peer alive strictly after the
// requested cutoff.
func (h handlers) getPeersByLastAlive(req *wire.GetPeersByLastAliveRequest) *wire.GetAlivePeersResponse {
	peers := h.index.AliveSince(int64(req.LastAliveSince))
	return &wire.GetAlivePeersResponse{Peers: peers}
}

// peerStatus records a peer's reported liveness and connection load.
// There is no reply: clients cannot distinguish an accepted update from
// one targeting an unknown peer, which mirrors the protocol this service
// is modeled on and is preserved deliberately rather than extended.
func (h handlers) peerStatus(req *wire.PeerStatusRequest) {
	h.index.Touch(req.Address, int64(req.LastAlive))
	h.index.SetConnections(req.Address, uint64(len(req.PeerCurrentConnections)))
	h.log.Info("peer status",
		"address", req.Address,
		"last_alive", req.LastAlive,
		"connections", len(req.PeerCurrentConnections),
		"with", strings.Join(req.PeerCurrentConnections, ", "),
	)
}

// bye deregisters a peer. There is no reply, by protocol design.
func (h handlers) bye(req *wire.ByeRequest) {
	h.index.Remove(req.Address)
}

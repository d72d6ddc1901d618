// Package wire implements the seeder's datagram framing and schema
// encoding: a 16-bit length prefix around an RLP-encoded envelope,
// mirroring the Code+Payload framing devp2p uses for its own typed
// messages. In the system this was modeled on, a flatbuffers schema
// compiler produced the equivalent encoders/decoders; here that role is
// played by github.com/ethereum/go-ethereum/rlp plus the Go compiler.
package wire

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
)

// RequestType tags the payload carried by a Request envelope.
type RequestType uint8

const (
	RequestNone RequestType = iota
	RequestHello
	RequestGetElitedPeers
	RequestGetPeersByLastAlive
	RequestPeerStatus
	RequestBye
)

// ResponseType tags the payload carried by a Response envelope.
type ResponseType uint8

const (
	ResponseNone ResponseType = iota
	ResponseHello
	ResponseGetElitedPeers
	ResponseGetAlivePeers
)

// HelloResult is the outcome reported by a HelloResponse.
type HelloResult uint8

const (
	RegisteredSuccessfully HelloResult = iota
	AlreadyRegistered
)

// RequestEnvelope is the outer frame of every request datagram. Payload
// holds the type-specific struct pre-encoded as RLP; callers decode it
// once Type is known via DecodeHello, DecodeGetElitedPeers, and so on.
type RequestEnvelope struct {
	ID      uint64
	Type    RequestType
	Payload rlp.RawValue
}

// ResponseEnvelope mirrors RequestEnvelope for replies.
type ResponseEnvelope struct {
	ID      uint64
	Type    ResponseType
	Payload rlp.RawValue
}

// HelloRequest is the payload of a Hello request: a peer announcing
// itself for the first time.
type HelloRequest struct {
	Address string
}

// GetElitedPeersRequest asks for up to NumberOfPeers low-load peers.
type GetElitedPeersRequest struct {
	NumberOfPeers uint64
}

// GetPeersByLastAliveRequest asks for every peer alive strictly after
// LastAliveSince. Timestamps travel on the wire as unsigned integers
// (RLP has no native signed representation); seconds-since-epoch values
// are non-negative in practice, so the conversion to/from the domain's
// int64 is lossless.
type GetPeersByLastAliveRequest struct {
	LastAliveSince uint64
}

// PeerStatusRequest reports a peer's current liveness and connection
// load. PeerCurrentConnections is logged by the handler but never stored.
type PeerStatusRequest struct {
	Address                string
	LastAlive              uint64
	PeerCurrentConnections []string
}

// ByeRequest deregisters a peer.
type ByeRequest struct {
	Address string
}

// HelloResponse answers a Hello request. PingIntervalSeconds is a
// trailing optional RLP field: it is only encoded (and only decodes to a
// nonzero value) when Result is RegisteredSuccessfully, the same
// trailing-optional-field trick devp2p's handshake messages use for
// fields that are not always present.
type HelloResponse struct {
	Result              HelloResult
	PingIntervalSeconds uint64 `rlp:"optional"`
}

// GetElitedPeersResponse answers a GetElitedPeers request.
type GetElitedPeersResponse struct {
	Peers []string
}

// GetAlivePeersResponse answers a GetPeersByLastAlive request.
type GetAlivePeersResponse struct {
	Peers []string
}

// EncodeRequest frames id/typ/payload as a length-prefixed RLP datagram.
func EncodeRequest(id uint64, typ RequestType, payload interface{}) ([]byte, error) {
	inner, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	env := RequestEnvelope{ID: id, Type: typ, Payload: inner}
	body, err := rlp.EncodeToBytes(&env)
	if err != nil {
		return nil, err
	}
	return frame(body), nil
}

// EncodeResponse frames id/typ/payload as a length-prefixed RLP datagram.
func EncodeResponse(id uint64, typ ResponseType, payload interface{}) ([]byte, error) {
	inner, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	env := ResponseEnvelope{ID: id, Type: typ, Payload: inner}
	body, err := rlp.EncodeToBytes(&env)
	if err != nil {
		return nil, err
	}
	return frame(body), nil
}

// frame prepends the 16-bit little-endian length prefix the wire format
// specifies. It is informational once a buffer is in hand (RLP is
// self-describing) but DecodeRequest/DecodeResponse honor it as
// authoritative, rejecting datagrams where it disagrees with the actual
// remaining byte count.
func frame(body []byte) []byte {
	out := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(out, uint16(len(body)))
	copy(out[2:], body)
	return out
}

func unframe(datagram []byte) ([]byte, error) {
	if len(datagram) < 2 {
		return nil, ErrMalformedFrame
	}
	length := binary.LittleEndian.Uint16(datagram[:2])
	body := datagram[2:]
	if int(length) != len(body) {
		return nil, ErrMalformedFrame
	}
	return body, nil
}

// DecodeRequest parses a length-prefixed datagram into a RequestEnvelope.
// A length-prefix mismatch or an RLP decode failure both surface as
// ErrMalformedFrame; an out-of-range Type surfaces as
// ErrUnknownRequestType. Both are non-fatal: the caller logs and drops.
func DecodeRequest(datagram []byte) (*RequestEnvelope, error) {
	body, err := unframe(datagram)
	if err != nil {
		return nil, err
	}
	var env RequestEnvelope
	if err := rlp.DecodeBytes(body, &env); err != nil {
		return nil, ErrMalformedFrame
	}
	if env.Type > RequestBye {
		return nil, ErrUnknownRequestType
	}
	return &env, nil
}

// DecodeResponse parses a length-prefixed datagram into a
// ResponseEnvelope.
func DecodeResponse(datagram []byte) (*ResponseEnvelope, error) {
	body, err := unframe(datagram)
	if err != nil {
		return nil, err
	}
	var env ResponseEnvelope
	if err := rlp.DecodeBytes(body, &env); err != nil {
		return nil, ErrMalformedFrame
	}
	if env.Type > ResponseGetAlivePeers {
		return nil, ErrUnknownRequestType
	}
	return &env, nil
}

// DecodeHello decodes a Hello request's payload.
func DecodeHello(payload rlp.RawValue) (*HelloRequest, error) {
	var req HelloRequest
	if err := rlp.DecodeBytes(payload, &req); err != nil {
		return nil, ErrMalformedFrame
	}
	return &req, nil
}

// DecodeGetElitedPeers decodes a GetElitedPeers request's payload.
func DecodeGetElitedPeers(payload rlp.RawValue) (*GetElitedPeersRequest, error) {
	var req GetElitedPeersRequest
	if err := rlp.DecodeBytes(payload, &req); err != nil {
		return nil, ErrMalformedFrame
	}
	return &req, nil
}

// DecodeGetPeersByLastAlive decodes a GetPeersByLastAlive request's
// payload.
func DecodeGetPeersByLastAlive(payload rlp.RawValue) (*GetPeersByLastAliveRequest, error) {
	var req GetPeersByLastAliveRequest
	if err := rlp.DecodeBytes(payload, &req); err != nil {
		return nil, ErrMalformedFrame
	}
	return &req, nil
}

// DecodePeerStatus decodes a PeerStatus request's payload.
func DecodePeerStatus(payload rlp.RawValue) (*PeerStatusRequest, error) {
	var req PeerStatusRequest
	if err := rlp.DecodeBytes(payload, &req); err != nil {
		return nil, ErrMalformedFrame
	}
	return &req, nil
}

// DecodeBye decodes a Bye request's payload.
func DecodeBye(payload rlp.RawValue) (*ByeRequest, error) {
	var req ByeRequest
	if err := rlp.DecodeBytes(payload, &req); err != nil {
		return nil, ErrMalformedFrame
	}
	return &req, nil
}

// DecodeHelloResponse decodes a HelloResponse payload.
func DecodeHelloResponse(payload rlp.RawValue) (*HelloResponse, error) {
	var resp HelloResponse
	if err := rlp.DecodeBytes(payload, &resp); err != nil {
		return nil, ErrMalformedFrame
	}
	return &resp, nil
}

// DecodeGetElitedPeersResponse decodes a GetElitedPeersResponse payload.
func DecodeGetElitedPeersResponse(payload rlp.RawValue) (*GetElitedPeersResponse, error) {
	var resp GetElitedPeersResponse
	if err := rlp.DecodeBytes(payload, &resp); err != nil {
		return nil, ErrMalformedFrame
	}
	return &resp, nil
}

// DecodeGetAlivePeersResponse decodes a GetAlivePeersResponse payload.
func DecodeGetAlivePeersResponse(payload rlp.RawValue) (*GetAlivePeersResponse, error) {
	var resp GetAlivePeersResponse
	if err := rlp.DecodeBytes(payload, &resp); err != nil {
		return nil, ErrMalformedFrame
	}
	return &resp, nil
}

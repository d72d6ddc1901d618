package wire

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rlpReencode(env *RequestEnvelope) ([]byte, error) {
	body, err := rlp.EncodeToBytes(env)
	if err != nil {
		return nil, err
	}
	return frame(body), nil
}

func TestHelloRequestRoundTrip(t *testing.T) {
	datagram, err := EncodeRequest(1, RequestHello, &HelloRequest{Address: "10.0.0.1:7000"})
	require.NoError(t, err)

	env, err := DecodeRequest(datagram)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), env.ID)
	assert.Equal(t, RequestHello, env.Type)

	req, err := DecodeHello(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7000", req.Address)
}

func TestHelloResponseOptionalFieldRoundTrip(t *testing.T) {
	datagram, err := EncodeResponse(1, ResponseHello, &HelloResponse{
		Result:              RegisteredSuccessfully,
		PingIntervalSeconds: 30,
	})
	require.NoError(t, err)

	env, err := DecodeResponse(datagram)
	require.NoError(t, err)
	resp, err := DecodeHelloResponse(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, RegisteredSuccessfully, resp.Result)
	assert.Equal(t, uint64(30), resp.PingIntervalSeconds)

	// ALREADY_REGISTERED carries no interval: the trailing optional
	// field round-trips back to its zero value when absent.
	datagram, err = EncodeResponse(1, ResponseHello, &HelloResponse{Result: AlreadyRegistered})
	require.NoError(t, err)
	env, err = DecodeResponse(datagram)
	require.NoError(t, err)
	resp, err = DecodeHelloResponse(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, AlreadyRegistered, resp.Result)
	assert.Zero(t, resp.PingIntervalSeconds)
}

func TestPeerStatusRequestRoundTrip(t *testing.T) {
	datagram, err := EncodeRequest(7, RequestPeerStatus, &PeerStatusRequest{
		Address:                "10.0.0.1:7000",
		LastAlive:              1000,
		PeerCurrentConnections: []string{"x", "y"},
	})
	require.NoError(t, err)

	env, err := DecodeRequest(datagram)
	require.NoError(t, err)
	req, err := DecodePeerStatus(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:7000", req.Address)
	assert.Equal(t, uint64(1000), req.LastAlive)
	assert.Equal(t, []string{"x", "y"}, req.PeerCurrentConnections)
}

func TestGetElitedPeersResponseRoundTrip(t *testing.T) {
	datagram, err := EncodeResponse(3, ResponseGetElitedPeers, &GetElitedPeersResponse{
		Peers: []string{"a", "b"},
	})
	require.NoError(t, err)

	env, err := DecodeResponse(datagram)
	require.NoError(t, err)
	resp, err := DecodeGetElitedPeersResponse(env.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.Peers)
}

func TestDecodeRejectsLengthPrefixMismatch(t *testing.T) {
	datagram, err := EncodeRequest(1, RequestBye, &ByeRequest{Address: "x"})
	require.NoError(t, err)

	tampered := append([]byte(nil), datagram...)
	tampered[0]++ // corrupt the length prefix

	_, err = DecodeRequest(tampered)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeRequest([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownRequestType(t *testing.T) {
	datagram, err := EncodeRequest(1, RequestBye, &ByeRequest{Address: "x"})
	require.NoError(t, err)

	env, err := DecodeRequest(datagram)
	require.NoError(t, err)
	env.Type = RequestType(99)
	reencoded, err := rlpReencode(env)
	require.NoError(t, err)

	_, err = DecodeRequest(reencoded)
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

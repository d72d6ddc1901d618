// Package server binds a consecutive range of UDP sockets, one receiver
// goroutine per socket, and runs decode/dispatch/handle/reply for each
// datagram on a per-socket ordered worker shard.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/JekaMas/workerpool"
	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/kadseed/seeder/internal/membership"
	"github.com/kadseed/seeder/internal/wire"
)

// Config controls the dispatcher's binding and pool sizing.
type Config struct {
	BeginningPort int           // base UDP port; N consecutive ports are bound starting here
	SocketCount   int           // N: number of UDP sockets to bind
	WorkerCount   int           // W: number of single-consumer handler shards, expected >= SocketCount
	PingInterval  time.Duration // value returned to peers on successful Hello
}

var (
	metricRequests = map[wire.RequestType]metrics.Counter{
		wire.RequestHello:              metrics.GetOrRegisterCounter("seeder/requests/hello", nil),
		wire.RequestGetElitedPeers:     metrics.GetOrRegisterCounter("seeder/requests/get_elited_peers", nil),
		wire.RequestGetPeersByLastAlive: metrics.GetOrRegisterCounter("seeder/requests/get_peers_by_last_alive", nil),
		wire.RequestPeerStatus:         metrics.GetOrRegisterCounter("seeder/requests/peer_status", nil),
		wire.RequestBye:                metrics.GetOrRegisterCounter("seeder/requests/bye", nil),
	}
	metricMalformed    = metrics.GetOrRegisterCounter("seeder/errors/malformed_frame", nil)
	metricUnknownType  = metrics.GetOrRegisterCounter("seeder/errors/unknown_request_type", nil)
	metricSendFailures = metrics.GetOrRegisterCounter("seeder/errors/send_failure", nil)
	metricPanics       = metrics.GetOrRegisterCounter("seeder/errors/handler_panic", nil)
)

// Dispatcher owns the bound sockets, the per-socket worker shards, and
// the membership index the handlers mutate/query.
type Dispatcher struct {
	cfg   Config
	index *membership.Index
	log   log.Logger

	// shards is a fixed set of single-worker pools. Each bound socket is
	// pinned to exactly one shard (socket i uses shards[i%len(shards)]),
	// so every datagram a given socket receives is handled by the same
	// single consumer, in the order the receiver submitted it: a socket
	// never has two of its own datagrams running concurrently or
	// out of submission order, even though distinct sockets pinned to
	// distinct shards still run fully in parallel.
	shards []*workerpool.WorkerPool
	conns  []*net.UDPConn
}

// New constructs a Dispatcher. It does not bind any sockets yet; call Run
// to bind and serve.
func New(cfg Config, index *membership.Index) *Dispatcher {
	if cfg.SocketCount <= 0 {
		cfg.SocketCount = 5
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 5
	}
	shards := make([]*workerpool.WorkerPool, cfg.WorkerCount)
	for i := range shards {
		shards[i] = workerpool.New(1)
	}
	return &Dispatcher{
		cfg:    cfg,
		index:  index,
		log:    log.New("component", "dispatcher"),
		shards: shards,
	}
}

// Run binds cfg.SocketCount consecutive UDP ports starting at
// cfg.BeginningPort and serves until ctx is canceled. Any bind failure is
// fatal to the whole call: it is logged at Crit and returned so the
// caller can exit non-zero.
func (d *Dispatcher) Run(ctx context.Context) error {
	for i := 0; i < d.cfg.SocketCount; i++ {
		port := d.cfg.BeginningPort + i
		addr := &net.UDPAddr{Port: port}
		conn, err := net.ListenUDP("udp", addr)
		if err != nil {
			d.log.Write(log.LevelCrit, "failed to bind socket", "port", port, "err", err)
			d.closeAll()
			return fmt.Errorf("bind port %d: %w", port, err)
		}
		d.conns = append(d.conns, conn)
		d.log.Info("bound socket", "port", port)
	}
	d.log.Info("seeder dispatcher started", "sockets", len(d.conns), "shards", len(d.shards))

	group, gctx := errgroup.WithContext(ctx)
	for i, conn := range d.conns {
		conn, shard := conn, d.shards[i%len(d.shards)]
		group.Go(func() error {
			d.receiveLoop(gctx, conn, shard)
			return nil
		})
	}

	<-gctx.Done()
	d.shutdown()
	return group.Wait()
}

// receiveLoop is the goroutine owning one socket for the process
// lifetime: blocking receive, handoff to that socket's shard, back to
// receive. Handing off to a worker (rather than handling inline) keeps
// the next ReadFromUDP from waiting on the previous datagram's handler;
// pinning every datagram from this socket to the same single-worker
// shard keeps them executing in the order they were submitted. It stops
// accepting new reads once ctx is done and lets in-flight shard tasks
// drain via Dispatcher.shutdown.
func (d *Dispatcher) receiveLoop(ctx context.Context, conn *net.UDPConn, shard *workerpool.WorkerPool) {
	buf := make([]byte, 65535)
	for {
		if ctx.Err() != nil {
			return
		}
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Warn("read failed", "local", conn.LocalAddr(), "err", err)
			continue
		}
		datagram := append([]byte(nil), buf[:n]...)
		shard.Submit(func() {
			d.handleDatagram(conn, remote, datagram)
		})
	}
}

// handleDatagram decodes and dispatches a single datagram. A panic here
// would otherwise take down the shard's single worker permanently,
// stalling every datagram still queued behind it; recovering and
// counting it is belt-and-suspenders on top of handlers already being
// written to return errors instead of panicking, so one malformed or
// nonsensical datagram never affects another request.
func (d *Dispatcher) handleDatagram(conn *net.UDPConn, remote *net.UDPAddr, datagram []byte) {
	defer func() {
		if r := recover(); r != nil {
			metricPanics.Inc(1)
			d.log.Write(log.LevelCrit, "handler panic", "recovered", r, "source", remote)
		}
	}()

	env, err := wire.DecodeRequest(datagram)
	if err != nil {
		if errors.Is(err, wire.ErrUnknownRequestType) {
			metricUnknownType.Inc(1)
			d.log.Warn("unknown request type", "source", remote)
		} else {
			metricMalformed.Inc(1)
			d.log.Warn("malformed datagram", "source", remote, "err", err)
		}
		return
	}

	if c, ok := metricRequests[env.Type]; ok {
		c.Inc(1)
	}
	d.log.Info("accepted request", "type", requestTypeName(env.Type), "id", env.ID, "source", remote.IP)

	h := handlers{index: d.index, log: d.log, pingInterval: d.cfg.PingInterval}
	reply, replyType, ok := h.dispatch(env)
	if !ok {
		return
	}
	out, err := wire.EncodeResponse(env.ID, replyType, reply)
	if err != nil {
		d.log.Write(log.LevelCrit, "failed to encode response", "source", remote, "err", err)
		return
	}
	if _, err := conn.WriteToUDP(out, remote); err != nil {
		metricSendFailures.Inc(1)
		d.log.Write(log.LevelCrit, "failed to send response", "source", remote, "err", err)
	}
}

func (d *Dispatcher) shutdown() {
	for _, shard := range d.shards {
		shard.StopWait()
	}
	d.closeAll()
}

func (d *Dispatcher) closeAll() {
	for _, conn := range d.conns {
		conn.Close()
	}
}

func requestTypeName(t wire.RequestType) string {
	switch t {
	case wire.RequestHello:
		return "HELLO"
	case wire.RequestGetElitedPeers:
		return "GET_ELITED_PEERS"
	case wire.RequestGetPeersByLastAlive:
		return "GET_PEERS_BY_LAST_ALIVE"
	case wire.RequestPeerStatus:
		return "PEER_STATUS"
	case wire.RequestBye:
		return "BYE"
	default:
		return "NONE"
	}
}

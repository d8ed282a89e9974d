// Package rere implements the polling transport variant: every call is an
// independent request/response exchange on a fresh connection, which makes
// reconnects implicit and tolerates intermediaries that cannot hold
// long-lived streams.
package rere

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/protocol/codec"
	"github.com/Julianrussmeyer/flower/pkg/protocol/stream"
	"github.com/Julianrussmeyer/flower/pkg/transport"
)

// Connection performs unary exchanges against the coordinator. It keeps no
// network state between calls.
type Connection struct {
	addr string
	tlsc *transport.TLSConfig
	log  *zap.Logger
	reg  *codec.Registry
}

func New(addr string, tlsc *transport.TLSConfig, log *zap.Logger) (*Connection, error) {
	reg, err := transport.NewRegistry()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Connection{addr: addr, tlsc: tlsc, log: log, reg: reg}, nil
}

// Connect probes the coordinator once so startup and reconnects surface
// unreachable servers; no channel is kept open.
func (c *Connection) Connect(ctx context.Context) error {
	raw, err := transport.Dial(ctx, c.addr, c.tlsc)
	if err != nil {
		return transport.Errf("connect", c.addr, err)
	}
	_ = raw.Close()
	c.log.Debug("coordinator reachable", zap.String("addr", c.addr))
	return nil
}

// roundTrip dials, sends req, reads one reply and closes the connection.
func (c *Connection) roundTrip(ctx context.Context, op string, req *protocol.Envelope) (*protocol.Envelope, error) {
	raw, err := transport.Dial(ctx, c.addr, c.tlsc)
	if err != nil {
		return nil, transport.Errf(op, c.addr, err)
	}
	defer raw.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = raw.Close()
		case <-done:
		}
	}()

	sc := stream.New(raw)
	if err := sc.Send(req); err != nil {
		return nil, transport.Errf(op, c.addr, err)
	}
	var reply protocol.Envelope
	if err := sc.Recv(&reply); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transport.Errf(op, c.addr, err)
	}
	return &reply, nil
}

// CreateNode registers this client with one unary exchange.
func (c *Connection) CreateNode(ctx context.Context) (transport.NodeID, error) {
	reply, err := c.roundTrip(ctx, "create_node", protocol.New(protocol.MsgCreateNode))
	if err != nil {
		return 0, err
	}
	switch reply.Header.Type {
	case protocol.MsgCreateNodeAck:
		return transport.NodeID(reply.Header.Node), nil
	case protocol.MsgError:
		return 0, transport.Errf("create_node", c.addr,
			fmt.Errorf("%w: %v", transport.ErrRegistrationRejected, transport.ServerError(reply, c.reg)))
	default:
		return 0, transport.Errf("create_node", c.addr,
			fmt.Errorf("unexpected message type %s", reply.Header.Type))
	}
}

// PullTask polls once. An empty queue is a normal outcome: (nil, nil).
func (c *Connection) PullTask(ctx context.Context, node transport.NodeID) (*protocol.Envelope, error) {
	req := protocol.New(protocol.MsgPullTaskIns)
	req.Header.Node = uint64(node)
	reply, err := c.roundTrip(ctx, "pull_task", req)
	if err != nil {
		return nil, err
	}
	switch reply.Header.Type {
	case protocol.MsgTaskIns:
		return reply, nil
	case protocol.MsgNoTask:
		return nil, nil
	case protocol.MsgError:
		return nil, transport.Errf("pull_task", c.addr, transport.ServerError(reply, c.reg))
	default:
		return nil, transport.Errf("pull_task", c.addr,
			fmt.Errorf("unexpected message type %s", reply.Header.Type))
	}
}

// PushTaskRes sends one result envelope and waits for its ack.
func (c *Connection) PushTaskRes(ctx context.Context, node transport.NodeID, env *protocol.Envelope) error {
	env.Header.Node = uint64(node)
	reply, err := c.roundTrip(ctx, "push_task_res", env)
	if err != nil {
		return err
	}
	switch reply.Header.Type {
	case protocol.MsgPushTaskResAck:
		return nil
	case protocol.MsgError:
		return transport.Errf("push_task_res", c.addr, transport.ServerError(reply, c.reg))
	default:
		return transport.Errf("push_task_res", c.addr,
			fmt.Errorf("unexpected message type %s", reply.Header.Type))
	}
}

// DeleteNode unregisters with one exchange. Any well-formed reply counts:
// unregistration is best effort.
func (c *Connection) DeleteNode(ctx context.Context, node transport.NodeID) error {
	req := protocol.New(protocol.MsgDeleteNode)
	req.Header.Node = uint64(node)
	reply, err := c.roundTrip(ctx, "delete_node", req)
	if err != nil {
		return err
	}
	if reply.Header.Type == protocol.MsgError {
		return transport.Errf("delete_node", c.addr, transport.ServerError(reply, c.reg))
	}
	return nil
}

// Close is a no-op: nothing outlives a call.
func (c *Connection) Close() error { return nil }

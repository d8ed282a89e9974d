// Package bidi implements the streaming transport variant: one persistent
// duplex stream carries every exchange for the lifetime of a session.
package bidi

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/protocol/codec"
	"github.com/Julianrussmeyer/flower/pkg/protocol/stream"
	"github.com/Julianrussmeyer/flower/pkg/transport"
)

// Connection holds one duplex session to the coordinator. Connect may be
// called again after a failure to open a fresh session.
type Connection struct {
	addr string
	tlsc *transport.TLSConfig
	log  *zap.Logger
	reg  *codec.Registry

	mu   sync.Mutex
	raw  io.ReadWriteCloser
	conn *stream.Conn
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

// Connect opens the session stream, replacing any previous one.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.raw != nil {
		_ = c.raw.Close()
		c.raw, c.conn = nil, nil
	}
	c.mu.Unlock()

	raw, err := transport.Dial(ctx, c.addr, c.tlsc)
	if err != nil {
		return transport.Errf("connect", c.addr, err)
	}
	c.mu.Lock()
	c.raw = raw
	c.conn = stream.New(raw)
	c.mu.Unlock()
	c.log.Debug("stream session established", zap.String("addr", c.addr))
	return nil
}

func (c *Connection) session() (*stream.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, transport.Errf("session", c.addr, transport.ErrClosed)
	}
	return c.conn, nil
}

// CreateNode registers this client over the session stream.
func (c *Connection) CreateNode(ctx context.Context) (transport.NodeID, error) {
	sc, err := c.session()
	if err != nil {
		return 0, err
	}
	stop := c.closeOnCancel(ctx)
	defer stop()

	if err := sc.Send(protocol.New(protocol.MsgCreateNode)); err != nil {
		return 0, transport.Errf("create_node", c.addr, err)
	}
	var reply protocol.Envelope
	if err := sc.Recv(&reply); err != nil {
		return 0, transport.Errf("create_node", c.addr, err)
	}
	switch reply.Header.Type {
	case protocol.MsgCreateNodeAck:
		return transport.NodeID(reply.Header.Node), nil
	case protocol.MsgError:
		return 0, transport.Errf("create_node", c.addr,
			joinReject(transport.ServerError(&reply, c.reg)))
	default:
		return 0, transport.Errf("create_node", c.addr,
			unexpectedType(reply.Header.Type))
	}
}

// PullTask blocks until the coordinator sends the next task or the stream
// closes. Ack frames arriving in between are consumed silently.
func (c *Connection) PullTask(ctx context.Context, node transport.NodeID) (*protocol.Envelope, error) {
	sc, err := c.session()
	if err != nil {
		return nil, err
	}
	stop := c.closeOnCancel(ctx)
	defer stop()

	for {
		var env protocol.Envelope
		if err := sc.Recv(&env); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, transport.Errf("pull_task", c.addr, err)
		}
		switch env.Header.Type {
		case protocol.MsgTaskIns:
			return &env, nil
		case protocol.MsgNoTask:
			return nil, nil
		case protocol.MsgPushTaskResAck, protocol.MsgDeleteNodeAck:
			// informational on a stream; keep waiting for the next task
			continue
		case protocol.MsgError:
			return nil, transport.Errf("pull_task", c.addr, transport.ServerError(&env, c.reg))
		default:
			c.log.Warn("ignoring unexpected stream frame", zap.Stringer("type", env.Header.Type))
		}
	}
}

// PushTaskRes sends one result envelope over the session stream.
func (c *Connection) PushTaskRes(ctx context.Context, node transport.NodeID, env *protocol.Envelope) error {
	sc, err := c.session()
	if err != nil {
		return err
	}
	stop := c.closeOnCancel(ctx)
	defer stop()

	env.Header.Node = uint64(node)
	if err := sc.Send(env); err != nil {
		return transport.Errf("push_task_res", c.addr, err)
	}
	return nil
}

// DeleteNode sends the unregistration frame. Best effort: no ack is awaited
// on the stream.
func (c *Connection) DeleteNode(ctx context.Context, node transport.NodeID) error {
	sc, err := c.session()
	if err != nil {
		return err
	}
	stop := c.closeOnCancel(ctx)
	defer stop()

	env := protocol.New(protocol.MsgDeleteNode)
	env.Header.Node = uint64(node)
	if err := sc.Send(env); err != nil {
		return transport.Errf("delete_node", c.addr, err)
	}
	return nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return nil
	}
	err := c.raw.Close()
	c.raw, c.conn = nil, nil
	return err
}

// closeOnCancel tears the session down when ctx is canceled so blocking
// reads and writes unblock. The returned stop func must be called when the
// operation finishes.
func (c *Connection) closeOnCancel(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

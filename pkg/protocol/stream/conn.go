// Package stream frames protocol envelopes over any byte stream.
package stream

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
)

// Conn wraps an io.ReadWriter to send/receive protocol.Envelope frames.
// One reader and one writer may operate concurrently; sends are serialized.
type Conn struct {
	rw io.ReadWriter
	br *bufio.Reader

	mu sync.Mutex
	bw *bufio.Writer
}

func New(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, br: bufio.NewReader(rw), bw: bufio.NewWriter(rw)}
}

func NewNetConn(c net.Conn) *Conn { return New(c) }

func (c *Conn) Send(e *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := e.WriteTo(c.bw); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *Conn) Recv(e *protocol.Envelope) error {
	_, err := e.ReadFrom(c.br)
	return err
}

// Close closes the underlying stream when it is closable.
func (c *Conn) Close() error {
	if cl, ok := c.rw.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

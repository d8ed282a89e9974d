// Package transport defines the client side of the coordinator wire contract
// and the pieces shared by its two implementations.
//
// Key concepts:
//   - Connection: the pull/push/lifecycle surface the task loop drives. Two
//     variants exist: bidi (one persistent duplex stream per session) and
//     rere (one independent request/response exchange per call).
//   - NodeID: the registration handle obtained from CreateNode; the loop owns
//     it and passes it back on every subsequent call.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
)

// NodeID is the opaque registration handle assigned by the coordinator.
type NodeID uint64

// Connection is the transport capability: identical contract across both
// variants. Implementations never retain the NodeID between calls.
type Connection interface {
	// Connect establishes the underlying channel. The bidi variant opens the
	// session stream; the rere variant only verifies reachability.
	Connect(ctx context.Context) error

	// CreateNode registers this client and returns its node id.
	CreateNode(ctx context.Context) (NodeID, error)

	// PullTask returns the next inbound task envelope, or (nil, nil) when no
	// task is queued. The bidi variant blocks until a message arrives or the
	// stream closes; the rere variant performs one exchange and returns.
	PullTask(ctx context.Context, node NodeID) (*protocol.Envelope, error)

	// PushTaskRes sends exactly one outbound result envelope.
	PushTaskRes(ctx context.Context, node NodeID, env *protocol.Envelope) error

	// DeleteNode unregisters the node. Best effort at shutdown.
	DeleteNode(ctx context.Context, node NodeID) error

	// Close releases the underlying channel.
	Close() error
}

// ErrRegistrationRejected marks a CreateNode refused by the coordinator.
// The loop treats it as fatal: the client cannot run without a node identity.
var ErrRegistrationRejected = errors.New("transport: registration rejected")

// ErrClosed is returned by calls after Close.
var ErrClosed = errors.New("transport: connection closed")

// Error wraps a transport fault with the failing operation and address.
type Error struct {
	Op   string
	Addr string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Addr, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Errf wraps err as a transport Error unless it already is one.
func Errf(op, addr string, err error) error {
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Addr: addr, Err: err}
}

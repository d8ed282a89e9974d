package bidi

import (
	"fmt"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/transport"
)

func unexpectedType(t protocol.MsgType) error {
	return fmt.Errorf("unexpected message type %s", t)
}

// joinReject ties a server-side CreateNode refusal to the sentinel the task
// loop checks for.
func joinReject(cause error) error {
	return fmt.Errorf("%w: %v", transport.ErrRegistrationRejected, cause)
}

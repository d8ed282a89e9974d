package transport

import (
	"fmt"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/protocol/codec"
)

// NewRegistry returns a codec registry with both wire codecs installed.
func NewRegistry() (*codec.Registry, error) {
	reg := codec.NewRegistry()
	c, err := codec.CBOR()
	if err != nil {
		return nil, fmt.Errorf("init cbor codec: %w", err)
	}
	reg.Register(c)
	return reg, nil
}

// ServerError extracts the message of an MsgError envelope.
func ServerError(env *protocol.Envelope, reg *codec.Registry) error {
	var body protocol.ErrorBody
	if _, err := protocol.DecodeEnvelopeBody(env, &body, reg); err != nil {
		return fmt.Errorf("server error (undecodable body: %v)", err)
	}
	return fmt.Errorf("server error: %s", body.Message)
}

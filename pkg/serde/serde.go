// Package serde translates between wire envelopes and the domain task types.
// Both directions are pure: decode(encode(x)) == x for every task produced
// by this process.
package serde

import (
	"errors"
	"fmt"

	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/protocol/codec"
	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// ErrUnsupportedTask marks an envelope whose body does not carry exactly one
// recognized operation payload. The envelope identity is still recoverable
// from its header.
var ErrUnsupportedTask = errors.New("serde: unsupported task payload")

// Translator maps envelopes to domain tasks and back using a codec registry.
type Translator struct {
	reg    *codec.Registry
	format protocol.Format // encode-side format; decode follows the wire marker
}

// New returns a Translator that encodes CBOR and decodes CBOR or JSON.
func New() (*Translator, error) {
	reg := codec.NewRegistry()
	c, err := codec.CBOR()
	if err != nil {
		return nil, fmt.Errorf("serde: init cbor codec: %w", err)
	}
	reg.Register(c)
	return &Translator{reg: reg, format: protocol.FormatCBOR}, nil
}

// DecodeTaskIns converts an inbound MsgTaskIns envelope into a domain task.
func (t *Translator) DecodeTaskIns(env *protocol.Envelope) (*typing.TaskIns, error) {
	if env.Header.Type != protocol.MsgTaskIns {
		return nil, fmt.Errorf("serde: decode task: unexpected message type %s", env.Header.Type)
	}
	var body protocol.TaskInsBody
	if _, err := protocol.DecodeEnvelopeBody(env, &body, t.reg); err != nil {
		return nil, fmt.Errorf("serde: decode task body: %w", err)
	}
	ins := &typing.TaskIns{
		ID:      env.Header.TaskID,
		GroupID: env.Header.GroupID,
	}
	n := 0
	if body.GetParameters != nil {
		n++
		ins.Kind = typing.TaskGetParameters
		ins.GetParameters = &typing.GetParametersIns{Config: scalarsFromWire(body.GetParameters.Config)}
	}
	if body.GetProperties != nil {
		n++
		ins.Kind = typing.TaskGetProperties
		ins.GetProperties = &typing.GetPropertiesIns{Config: scalarsFromWire(body.GetProperties.Config)}
	}
	if body.Fit != nil {
		n++
		ins.Kind = typing.TaskFit
		ins.Fit = &typing.FitIns{
			Parameters: parametersFromWire(body.Fit.Parameters),
			Config:     scalarsFromWire(body.Fit.Config),
		}
	}
	if body.Evaluate != nil {
		n++
		ins.Kind = typing.TaskEvaluate
		ins.Evaluate = &typing.EvaluateIns{
			Parameters: parametersFromWire(body.Evaluate.Parameters),
			Config:     scalarsFromWire(body.Evaluate.Config),
		}
	}
	if n != 1 {
		return nil, ErrUnsupportedTask
	}
	return ins, nil
}

// EncodeTaskIns converts a domain task into an MsgTaskIns envelope. The
// coordinator side of the exchange; kept here so the round-trip law is owned
// by one package.
func (t *Translator) EncodeTaskIns(ins *typing.TaskIns) (*protocol.Envelope, error) {
	var body protocol.TaskInsBody
	switch ins.Kind {
	case typing.TaskGetParameters:
		if ins.GetParameters == nil {
			return nil, fmt.Errorf("serde: encode task %s: missing payload", ins.Kind)
		}
		body.GetParameters = &protocol.GetParametersIns{Config: scalarsToWire(ins.GetParameters.Config)}
	case typing.TaskGetProperties:
		if ins.GetProperties == nil {
			return nil, fmt.Errorf("serde: encode task %s: missing payload", ins.Kind)
		}
		body.GetProperties = &protocol.GetPropertiesIns{Config: scalarsToWire(ins.GetProperties.Config)}
	case typing.TaskFit:
		if ins.Fit == nil {
			return nil, fmt.Errorf("serde: encode task %s: missing payload", ins.Kind)
		}
		body.Fit = &protocol.FitIns{
			Parameters: parametersToWire(ins.Fit.Parameters),
			Config:     scalarsToWire(ins.Fit.Config),
		}
	case typing.TaskEvaluate:
		if ins.Evaluate == nil {
			return nil, fmt.Errorf("serde: encode task %s: missing payload", ins.Kind)
		}
		body.Evaluate = &protocol.EvaluateIns{
			Parameters: parametersToWire(ins.Evaluate.Parameters),
			Config:     scalarsToWire(ins.Evaluate.Config),
		}
	default:
		return nil, fmt.Errorf("serde: encode task: %w", ErrUnsupportedTask)
	}
	h := protocol.Header{
		Version: protocol.Version,
		Type:    protocol.MsgTaskIns,
		TaskID:  ins.ID,
		GroupID: ins.GroupID,
	}
	return protocol.NewEnvelopeWithBody(h, t.format, &body, t.reg)
}

// EncodeTaskRes converts a domain reply into an MsgPushTaskRes envelope
// carrying the identity of the task that produced it.
func (t *Translator) EncodeTaskRes(res *typing.TaskRes) (*protocol.Envelope, error) {
	var body protocol.TaskResBody
	switch {
	case res.Failure != nil:
		body.Error = statusToWirePtr(*res.Failure)
	case res.Kind == typing.TaskGetParameters && res.GetParameters != nil:
		body.GetParameters = &protocol.GetParametersRes{
			Status:     statusToWire(res.GetParameters.Status),
			Parameters: parametersToWire(res.GetParameters.Parameters),
		}
	case res.Kind == typing.TaskGetProperties && res.GetProperties != nil:
		body.GetProperties = &protocol.GetPropertiesRes{
			Status:     statusToWire(res.GetProperties.Status),
			Properties: scalarsToWire(res.GetProperties.Properties),
		}
	case res.Kind == typing.TaskFit && res.Fit != nil:
		body.Fit = &protocol.FitRes{
			Status:      statusToWire(res.Fit.Status),
			Parameters:  parametersToWire(res.Fit.Parameters),
			NumExamples: res.Fit.NumExamples,
			Metrics:     scalarsToWire(res.Fit.Metrics),
		}
	case res.Kind == typing.TaskEvaluate && res.Evaluate != nil:
		body.Evaluate = &protocol.EvaluateRes{
			Status:      statusToWire(res.Evaluate.Status),
			Loss:        res.Evaluate.Loss,
			NumExamples: res.Evaluate.NumExamples,
			Metrics:     scalarsToWire(res.Evaluate.Metrics),
		}
	default:
		return nil, fmt.Errorf("serde: encode result for task %s: missing payload", res.ID)
	}
	h := protocol.Header{
		Version: protocol.Version,
		Type:    protocol.MsgPushTaskRes,
		TaskID:  res.ID,
		GroupID: res.GroupID,
	}
	return protocol.NewEnvelopeWithBody(h, t.format, &body, t.reg)
}

// DecodeTaskRes converts an MsgPushTaskRes envelope back into a domain reply.
func (t *Translator) DecodeTaskRes(env *protocol.Envelope) (*typing.TaskRes, error) {
	if env.Header.Type != protocol.MsgPushTaskRes {
		return nil, fmt.Errorf("serde: decode result: unexpected message type %s", env.Header.Type)
	}
	var body protocol.TaskResBody
	if _, err := protocol.DecodeEnvelopeBody(env, &body, t.reg); err != nil {
		return nil, fmt.Errorf("serde: decode result body: %w", err)
	}
	res := &typing.TaskRes{
		ID:      env.Header.TaskID,
		GroupID: env.Header.GroupID,
	}
	n := 0
	if body.GetParameters != nil {
		n++
		res.Kind = typing.TaskGetParameters
		res.GetParameters = &typing.GetParametersRes{
			Status:     statusFromWire(body.GetParameters.Status),
			Parameters: parametersFromWire(body.GetParameters.Parameters),
		}
	}
	if body.GetProperties != nil {
		n++
		res.Kind = typing.TaskGetProperties
		res.GetProperties = &typing.GetPropertiesRes{
			Status:     statusFromWire(body.GetProperties.Status),
			Properties: scalarsFromWire(body.GetProperties.Properties),
		}
	}
	if body.Fit != nil {
		n++
		res.Kind = typing.TaskFit
		res.Fit = &typing.FitRes{
			Status:      statusFromWire(body.Fit.Status),
			Parameters:  parametersFromWire(body.Fit.Parameters),
			NumExamples: body.Fit.NumExamples,
			Metrics:     scalarsFromWire(body.Fit.Metrics),
		}
	}
	if body.Evaluate != nil {
		n++
		res.Kind = typing.TaskEvaluate
		res.Evaluate = &typing.EvaluateRes{
			Status:      statusFromWire(body.Evaluate.Status),
			Loss:        body.Evaluate.Loss,
			NumExamples: body.Evaluate.NumExamples,
			Metrics:     scalarsFromWire(body.Evaluate.Metrics),
		}
	}
	if body.Error != nil {
		if n != 0 {
			return nil, ErrUnsupportedTask
		}
		st := statusFromWire(*body.Error)
		res.Failure = &st
		return res, nil
	}
	if n != 1 {
		return nil, ErrUnsupportedTask
	}
	return res, nil
}

// Package typing holds the domain-level types exchanged between the task
// loop, the transports and a user-supplied Client: parameters, statuses and
// the request/response pair for each supported operation.
package typing

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// TaskID identifies a single task issued by the coordinator. Opaque to the
// client; a response must carry the id of the task that produced it.
type TaskID [16]byte

// GroupID is the routing/ancestry reference the coordinator attaches to a
// task. Opaque to the client and echoed back unchanged.
type GroupID [16]byte

func (id TaskID) String() string  { return hex.EncodeToString(id[:]) }
func (id GroupID) String() string { return hex.EncodeToString(id[:]) }

// NewTaskID generates a random 16-byte id. Normally ids come from the
// coordinator; this exists for tests and tooling.
func NewTaskID() (out TaskID, err error) {
	_, err = io.ReadFull(rand.Reader, out[:])
	return
}

// Code is the machine-readable half of a Status.
type Code int

const (
	CodeOK Code = iota
	CodeError
	CodeGetPropertiesNotImplemented
	CodeGetParametersNotImplemented
	CodeFitNotImplemented
	CodeEvaluateNotImplemented
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeError:
		return "error"
	case CodeGetPropertiesNotImplemented:
		return "get_properties_not_implemented"
	case CodeGetParametersNotImplemented:
		return "get_parameters_not_implemented"
	case CodeFitNotImplemented:
		return "fit_not_implemented"
	case CodeEvaluateNotImplemented:
		return "evaluate_not_implemented"
	default:
		return "unknown"
	}
}

// Status is carried on every operation response.
type Status struct {
	Code    Code
	Message string
}

// Parameters is an ordered sequence of opaque tensor buffers plus a format
// tag. Order is significant and must survive every transformation. Treat as
// immutable once constructed.
type Parameters struct {
	Tensors    [][]byte
	TensorType string
}

// ScalarKind discriminates the value held by a Scalar.
type ScalarKind uint8

const (
	ScalarNone ScalarKind = iota
	ScalarFloat
	ScalarInt
	ScalarString
	ScalarBool
	ScalarBytes
)

// Scalar is the closed value union used in config, properties and metrics
// maps: exactly one of the typed fields is meaningful, selected by Kind.
type Scalar struct {
	Kind  ScalarKind
	Float float64
	Int   int64
	Str   string
	Bool  bool
	Bytes []byte
}

func FloatScalar(v float64) Scalar { return Scalar{Kind: ScalarFloat, Float: v} }
func IntScalar(v int64) Scalar     { return Scalar{Kind: ScalarInt, Int: v} }
func StringScalar(v string) Scalar { return Scalar{Kind: ScalarString, Str: v} }
func BoolScalar(v bool) Scalar     { return Scalar{Kind: ScalarBool, Bool: v} }
func BytesScalar(v []byte) Scalar  { return Scalar{Kind: ScalarBytes, Bytes: v} }

// GetParametersIns asks the client for its current parameters.
type GetParametersIns struct {
	Config map[string]Scalar
}

type GetParametersRes struct {
	Status     Status
	Parameters Parameters
}

// GetPropertiesIns asks the client to report properties selected by Config.
type GetPropertiesIns struct {
	Config map[string]Scalar
}

type GetPropertiesRes struct {
	Status     Status
	Properties map[string]Scalar
}

// FitIns instructs the client to train on local data starting from the given
// global parameters.
type FitIns struct {
	Parameters Parameters
	Config     map[string]Scalar
}

type FitRes struct {
	Status      Status
	Parameters  Parameters
	NumExamples int64
	Metrics     map[string]Scalar
}

// EvaluateIns instructs the client to score the given global parameters on
// local data without updating them.
type EvaluateIns struct {
	Parameters Parameters
	Config     map[string]Scalar
}

type EvaluateRes struct {
	Status      Status
	Loss        float64
	NumExamples int64
	Metrics     map[string]Scalar
}

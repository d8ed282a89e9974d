package serde

import (
	"github.com/Julianrussmeyer/flower/pkg/protocol"
	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// Field-level converters between wire and domain shapes. Sequences and maps
// are copied without reordering or deduplication.

func parametersToWire(p typing.Parameters) protocol.Parameters {
	return protocol.Parameters{Tensors: p.Tensors, TensorType: p.TensorType}
}

func parametersFromWire(p protocol.Parameters) typing.Parameters {
	return typing.Parameters{Tensors: p.Tensors, TensorType: p.TensorType}
}

func statusToWire(s typing.Status) protocol.Status {
	return protocol.Status{Code: int32(s.Code), Message: s.Message}
}

func statusToWirePtr(s typing.Status) *protocol.Status {
	w := statusToWire(s)
	return &w
}

func statusFromWire(s protocol.Status) typing.Status {
	return typing.Status{Code: typing.Code(s.Code), Message: s.Message}
}

func scalarToWire(s typing.Scalar) protocol.Scalar {
	switch s.Kind {
	case typing.ScalarFloat:
		v := s.Float
		return protocol.Scalar{Float: &v}
	case typing.ScalarInt:
		v := s.Int
		return protocol.Scalar{Int: &v}
	case typing.ScalarString:
		v := s.Str
		return protocol.Scalar{Str: &v}
	case typing.ScalarBool:
		v := s.Bool
		return protocol.Scalar{Bool: &v}
	case typing.ScalarBytes:
		v := s.Bytes
		if v == nil {
			v = []byte{}
		}
		return protocol.Scalar{Bytes: &v}
	default:
		return protocol.Scalar{}
	}
}

func scalarFromWire(s protocol.Scalar) typing.Scalar {
	switch {
	case s.Float != nil:
		return typing.FloatScalar(*s.Float)
	case s.Int != nil:
		return typing.IntScalar(*s.Int)
	case s.Str != nil:
		return typing.StringScalar(*s.Str)
	case s.Bool != nil:
		return typing.BoolScalar(*s.Bool)
	case s.Bytes != nil:
		return typing.BytesScalar(*s.Bytes)
	default:
		return typing.Scalar{}
	}
}

func scalarsToWire(m map[string]typing.Scalar) map[string]protocol.Scalar {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]protocol.Scalar, len(m))
	for k, v := range m {
		out[k] = scalarToWire(v)
	}
	return out
}

func scalarsFromWire(m map[string]protocol.Scalar) map[string]typing.Scalar {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]typing.Scalar, len(m))
	for k, v := range m {
		out[k] = scalarFromWire(v)
	}
	return out
}

// Package client defines the user-supplied Client capability and the handler
// that dispatches inbound tasks to it.
package client

import "github.com/Julianrussmeyer/flower/pkg/typing"

// Client is the externally supplied implementation of the four operations a
// coordinator may request. Calls are synchronous and never concurrent: the
// task loop keeps at most one dispatch in flight.
type Client interface {
	GetParameters(ins typing.GetParametersIns) (typing.GetParametersRes, error)
	GetProperties(ins typing.GetPropertiesIns) (typing.GetPropertiesRes, error)
	Fit(ins typing.FitIns) (typing.FitRes, error)
	Evaluate(ins typing.EvaluateIns) (typing.EvaluateRes, error)
}

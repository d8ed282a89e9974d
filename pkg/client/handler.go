package client

import (
	"fmt"

	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// Handle invokes exactly one Client operation for ins and always returns one
// reply carrying the task's identity. A Client error or panic never escapes:
// it surfaces as a response with an Error status so the coordinator receives
// exactly one reply per task it issued.
func Handle(ins *typing.TaskIns, c Client) (res *typing.TaskRes) {
	defer func() {
		if r := recover(); r != nil {
			res = failure(ins, fmt.Sprintf("client panic in %s: %v", ins.Kind, r))
		}
	}()

	switch ins.Kind {
	case typing.TaskGetParameters:
		out, err := c.GetParameters(*ins.GetParameters)
		if err != nil {
			return failure(ins, fmt.Sprintf("get_parameters failed: %v", err))
		}
		return &typing.TaskRes{ID: ins.ID, GroupID: ins.GroupID, Kind: ins.Kind, GetParameters: &out}
	case typing.TaskGetProperties:
		out, err := c.GetProperties(*ins.GetProperties)
		if err != nil {
			return failure(ins, fmt.Sprintf("get_properties failed: %v", err))
		}
		return &typing.TaskRes{ID: ins.ID, GroupID: ins.GroupID, Kind: ins.Kind, GetProperties: &out}
	case typing.TaskFit:
		out, err := c.Fit(*ins.Fit)
		if err != nil {
			return failure(ins, fmt.Sprintf("fit failed: %v", err))
		}
		return &typing.TaskRes{ID: ins.ID, GroupID: ins.GroupID, Kind: ins.Kind, Fit: &out}
	case typing.TaskEvaluate:
		out, err := c.Evaluate(*ins.Evaluate)
		if err != nil {
			return failure(ins, fmt.Sprintf("evaluate failed: %v", err))
		}
		return &typing.TaskRes{ID: ins.ID, GroupID: ins.GroupID, Kind: ins.Kind, Evaluate: &out}
	default:
		return failure(ins, fmt.Sprintf("unsupported task kind %d", ins.Kind))
	}
}

// failure builds an Error-status reply preserving the task identity. Kind is
// left unset: a failure reply carries no operation payload on the wire.
func failure(ins *typing.TaskIns, msg string) *typing.TaskRes {
	return &typing.TaskRes{
		ID:      ins.ID,
		GroupID: ins.GroupID,
		Failure: &typing.Status{Code: typing.CodeError, Message: msg},
	}
}

package typing

// TaskKind enumerates the closed set of operations a task may carry.
type TaskKind uint8

const (
	TaskUnknown TaskKind = iota
	TaskGetParameters
	TaskGetProperties
	TaskFit
	TaskEvaluate
)

func (k TaskKind) String() string {
	switch k {
	case TaskGetParameters:
		return "get_parameters"
	case TaskGetProperties:
		return "get_properties"
	case TaskFit:
		return "fit"
	case TaskEvaluate:
		return "evaluate"
	default:
		return "unknown"
	}
}

// TaskIns is an inbound task: identity plus exactly one operation request,
// selected by Kind. The non-matching payload pointers are nil.
type TaskIns struct {
	ID      TaskID
	GroupID GroupID
	Kind    TaskKind

	GetParameters *GetParametersIns
	GetProperties *GetPropertiesIns
	Fit           *FitIns
	Evaluate      *EvaluateIns
}

// TaskRes is the outbound reply for one TaskIns. ID and GroupID must equal
// the inbound envelope's. Exactly one response payload is set for a handled
// operation; Failure is set instead when the task could not be mapped to an
// operation at all (undecodable or unsupported payload).
type TaskRes struct {
	ID      TaskID
	GroupID GroupID
	Kind    TaskKind

	GetParameters *GetParametersRes
	GetProperties *GetPropertiesRes
	Fit           *FitRes
	Evaluate      *EvaluateRes

	Failure *Status
}

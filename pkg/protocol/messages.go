package protocol

// Wire body structs for body-bearing message types. Field tags are part of
// the wire contract; CBOR is the default encoding with JSON kept for
// debugging and tooling.

// Parameters mirrors the domain parameter set on the wire. Tensor order is
// significant and preserved as-is.
type Parameters struct {
	Tensors    [][]byte `json:"tensors" cbor:"tensors"`
	TensorType string   `json:"tensor_type" cbor:"tensor_type"`
}

// Scalar is the wire form of the scalar value union: exactly one field set.
// Every arm is a pointer so that empty values (zero, "", empty bytes) still
// mark which variant is present.
type Scalar struct {
	Float *float64 `json:"float,omitempty" cbor:"float,omitempty"`
	Int   *int64   `json:"int,omitempty" cbor:"int,omitempty"`
	Str   *string  `json:"str,omitempty" cbor:"str,omitempty"`
	Bool  *bool    `json:"bool,omitempty" cbor:"bool,omitempty"`
	Bytes *[]byte  `json:"bytes,omitempty" cbor:"bytes,omitempty"`
}

// Status accompanies every operation response.
type Status struct {
	Code    int32  `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

type GetParametersIns struct {
	Config map[string]Scalar `json:"config,omitempty" cbor:"config,omitempty"`
}

type GetParametersRes struct {
	Status     Status     `json:"status" cbor:"status"`
	Parameters Parameters `json:"parameters" cbor:"parameters"`
}

type GetPropertiesIns struct {
	Config map[string]Scalar `json:"config,omitempty" cbor:"config,omitempty"`
}

type GetPropertiesRes struct {
	Status     Status            `json:"status" cbor:"status"`
	Properties map[string]Scalar `json:"properties,omitempty" cbor:"properties,omitempty"`
}

type FitIns struct {
	Parameters Parameters        `json:"parameters" cbor:"parameters"`
	Config     map[string]Scalar `json:"config,omitempty" cbor:"config,omitempty"`
}

type FitRes struct {
	Status      Status            `json:"status" cbor:"status"`
	Parameters  Parameters        `json:"parameters" cbor:"parameters"`
	NumExamples int64             `json:"num_examples" cbor:"num_examples"`
	Metrics     map[string]Scalar `json:"metrics,omitempty" cbor:"metrics,omitempty"`
}

type EvaluateIns struct {
	Parameters Parameters        `json:"parameters" cbor:"parameters"`
	Config     map[string]Scalar `json:"config,omitempty" cbor:"config,omitempty"`
}

type EvaluateRes struct {
	Status      Status            `json:"status" cbor:"status"`
	Loss        float64           `json:"loss" cbor:"loss"`
	NumExamples int64             `json:"num_examples" cbor:"num_examples"`
	Metrics     map[string]Scalar `json:"metrics,omitempty" cbor:"metrics,omitempty"`
}

// TaskInsBody is the MsgTaskIns payload: exactly one operation request set.
// A body with none set (for example an operation this build does not know)
// is rejected by the translator.
type TaskInsBody struct {
	GetParameters *GetParametersIns `json:"get_parameters,omitempty" cbor:"get_parameters,omitempty"`
	GetProperties *GetPropertiesIns `json:"get_properties,omitempty" cbor:"get_properties,omitempty"`
	Fit           *FitIns           `json:"fit,omitempty" cbor:"fit,omitempty"`
	Evaluate      *EvaluateIns      `json:"evaluate,omitempty" cbor:"evaluate,omitempty"`
}

// TaskResBody is the MsgPushTaskRes payload: exactly one operation response,
// or Error alone when the task could not be mapped to an operation.
type TaskResBody struct {
	GetParameters *GetParametersRes `json:"get_parameters,omitempty" cbor:"get_parameters,omitempty"`
	GetProperties *GetPropertiesRes `json:"get_properties,omitempty" cbor:"get_properties,omitempty"`
	Fit           *FitRes           `json:"fit,omitempty" cbor:"fit,omitempty"`
	Evaluate      *EvaluateRes      `json:"evaluate,omitempty" cbor:"evaluate,omitempty"`

	Error *Status `json:"error,omitempty" cbor:"error,omitempty"`
}

// ErrorBody is the MsgError payload.
type ErrorBody struct {
	Message string `json:"message" cbor:"message"`
}

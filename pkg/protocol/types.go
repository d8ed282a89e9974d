package protocol

// MsgType identifies the logical message carried by an envelope.
type MsgType uint8

const (
	MsgUnknown MsgType = iota
	MsgCreateNode
	MsgCreateNodeAck
	MsgDeleteNode
	MsgDeleteNodeAck
	MsgPullTaskIns
	MsgTaskIns
	MsgNoTask
	MsgPushTaskRes
	MsgPushTaskResAck
	MsgError
)

func (t MsgType) String() string {
	switch t {
	case MsgCreateNode:
		return "create_node"
	case MsgCreateNodeAck:
		return "create_node_ack"
	case MsgDeleteNode:
		return "delete_node"
	case MsgDeleteNodeAck:
		return "delete_node_ack"
	case MsgPullTaskIns:
		return "pull_task_ins"
	case MsgTaskIns:
		return "task_ins"
	case MsgNoTask:
		return "no_task"
	case MsgPushTaskRes:
		return "push_task_res"
	case MsgPushTaskResAck:
		return "push_task_res_ack"
	case MsgError:
		return "error"
	default:
		return "unknown"
	}
}

// Flags bitmask (uint32). Reserved bits stay zero on the wire.
const (
	FlagCompressed uint32 = 1 << 0 // payload compressed
	FlagEncrypted  uint32 = 1 << 1 // payload encrypted
)

// ContentType hints for payload decoding.
// Kept as constants to avoid coupling; not serialized in header.
const (
	ContentUnknown = "application/octet-stream"
	ContentCBOR    = "application/cbor"
	ContentJSON    = "application/json"
)

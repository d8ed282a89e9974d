package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/Julianrussmeyer/flower/pkg/typing"
)

// Fixed header layout (56 bytes) shared by both transport modes.
// All integer fields are little-endian.
//
//	0  ..1   Magic   'F''L' (0x464c)
//	2        Version u8
//	3        Type    u8
//	4  ..7   Flags   u32
//	8  ..11  PayloadLen u32
//	12 ..27  TaskID  [16]byte
//	28 ..43  GroupID [16]byte
//	44 ..51  Node    u64
//	52 ..55  Reserved u32
const (
	headerSize = 56
	magicWord  = uint16(0x464c) // 'F''L'
)

// Version of the wire protocol spoken by this build.
const Version = 1

// Header describes metadata for an envelope.
type Header struct {
	Version    uint8
	Type       MsgType
	Flags      uint32
	PayloadLen uint32
	TaskID     typing.TaskID
	GroupID    typing.GroupID
	Node       uint64
}

// MarshalBinary encodes the header into a 56-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(buf[0:2], magicWord)
	buf[2] = h.Version
	buf[3] = byte(h.Type)
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.PayloadLen)
	copy(buf[12:28], h.TaskID[:])
	copy(buf[28:44], h.GroupID[:])
	binary.LittleEndian.PutUint64(buf[44:52], h.Node)
	// 52..55 reserved stays zero
	return buf, nil
}

// UnmarshalBinary decodes the header from a 56-byte buffer.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < headerSize {
		return errors.New("short header")
	}
	if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
		return errors.New("bad magic")
	}
	h.Version = buf[2]
	h.Type = MsgType(buf[3])
	h.Flags = binary.LittleEndian.Uint32(buf[4:8])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[8:12])
	copy(h.TaskID[:], buf[12:28])
	copy(h.GroupID[:], buf[28:44])
	h.Node = binary.LittleEndian.Uint64(buf[44:52])
	return nil
}

package wire

import "encoding/binary"

// MessageType is the leading u32 LE tag on every frame.
type MessageType uint32

const (
	MsgUnknown      MessageType = 0
	MsgServerHello  MessageType = 1
	MsgGenericText  MessageType = 2
	MsgGameMessage  MessageType = 3
	MsgGamePacket   MessageType = 4
)

// Tank packet sub-types (offset 4 of a GAME_PACKET frame).
const (
	SubCallFunction byte = 1
	SubDisconnect   byte = 26
)

// TankHeaderSize is the fixed header length of every GAME_PACKET frame.
const TankHeaderSize = 60

// TankHeader is the 60-byte header of a GAME_PACKET frame. Bytes outside
// the named fields are opaque and must be preserved verbatim on rewrite.
type TankHeader struct {
	MessageType MessageType
	SubType     byte
	OriginNetID int32
	TargetNetID int32
	StateFlags  uint32
	InfoDelay   int32
	ExtraLen    uint32
	Raw         [TankHeaderSize]byte // full original header bytes
}

// ParseTankHeader reads the fixed header fields out of a >=60 byte buffer.
// It does not validate buf's length; callers must check first.
func ParseTankHeader(buf []byte) TankHeader {
	var h TankHeader
	copy(h.Raw[:], buf[:TankHeaderSize])
	h.MessageType = MessageType(binary.LittleEndian.Uint32(buf[0:4]))
	h.SubType = buf[4]
	h.OriginNetID = int32(binary.LittleEndian.Uint32(buf[8:12]))
	h.TargetNetID = int32(binary.LittleEndian.Uint32(buf[12:16]))
	h.StateFlags = binary.LittleEndian.Uint32(buf[16:20])
	h.InfoDelay = int32(binary.LittleEndian.Uint32(buf[24:28]))
	h.ExtraLen = binary.LittleEndian.Uint32(buf[56:60])
	return h
}

// PutExtraLen rewrites the extra-payload length field in Raw, keeping every
// other header byte untouched.
func (h *TankHeader) PutExtraLen(n uint32) {
	h.ExtraLen = n
	binary.LittleEndian.PutUint32(h.Raw[56:60], n)
}

// BuildTankFrame assembles a full frame from a header and extra payload,
// optionally appending a trailing NUL.
func BuildTankFrame(h TankHeader, extra []byte, trailingNUL bool) []byte {
	h.PutExtraLen(uint32(len(extra)))
	size := TankHeaderSize + len(extra)
	if trailingNUL {
		size++
	}
	buf := make([]byte, size)
	copy(buf, h.Raw[:])
	copy(buf[TankHeaderSize:], extra)
	return buf
}

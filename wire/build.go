package wire

import "encoding/binary"

// BuildTextFrame assembles a SERVER_HELLO/GENERIC_TEXT/GAME_MESSAGE frame
// from a message type and a text record.
func BuildTextFrame(msgType MessageType, rec TextRecord) []byte {
	body := rec.Emit(DefaultDelimiter)
	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(msgType))
	copy(buf[4:], body)
	return buf
}

// BuildCallFunction builds a CALL_FUNCTION tank frame whose first variant
// argument is the function name, followed by args. netID/targetNetID/delay
// populate the matching header fields; other header bytes are zeroed.
func BuildCallFunction(functionName string, args []any, netID, targetNetID, delay int32, trailingNUL bool) []byte {
	entries := make([]Entry, 0, len(args)+1)
	entries = append(entries, EncodeArg(0, functionName))
	for i, a := range args {
		entries = append(entries, EncodeArg(byte(i+1), a))
	}
	extra := EncodeVariantList(entries)

	var h TankHeader
	binary.LittleEndian.PutUint32(h.Raw[0:4], uint32(MsgGamePacket))
	h.Raw[4] = SubCallFunction
	binary.LittleEndian.PutUint32(h.Raw[8:12], uint32(netID))
	binary.LittleEndian.PutUint32(h.Raw[12:16], uint32(targetNetID))
	binary.LittleEndian.PutUint32(h.Raw[24:28], uint32(delay))
	h.MessageType = MsgGamePacket
	h.SubType = SubCallFunction
	h.OriginNetID = netID
	h.TargetNetID = targetNetID
	h.InfoDelay = delay

	return BuildTankFrame(h, extra, trailingNUL)
}

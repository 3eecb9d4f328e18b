package wire

import "encoding/binary"

// Kind is the coarse shape a raw datagram was classified as.
type Kind int

const (
	KindRaw  Kind = iota // unrecognized message type, or too short to parse
	KindText             // SERVER_HELLO / GENERIC_TEXT / GAME_MESSAGE
	KindTank             // GAME_PACKET
)

// PacketId is the derived semantic tag used by the relay core and hooks. It
// never appears on the wire.
type PacketId int

const (
	Unknown PacketId = iota
	ServerHello
	Quit
	QuitToExit
	JoinRequest
	ValidateWorld
	Input
	Log
	Disconnect
	OnSendToServer
	OnSpawn
	OnRemove
	OnNameChanged
	OnChangeSkin
)

var textActionTable = map[string]PacketId{
	"quit":           Quit,
	"quit_to_exit":   QuitToExit,
	"join_request":   JoinRequest,
	"validate_world": ValidateWorld,
	"input":          Input,
	"log":            Log,
}

var functionTable = map[string]PacketId{
	"OnSendToServer": OnSendToServer,
	"OnSpawn":        OnSpawn,
	"OnRemove":       OnRemove,
	"OnNameChanged":  OnNameChanged,
	"OnChangeSkin":   OnChangeSkin,
}

// Packet is the result of classifying one RawFrame.
type Packet struct {
	Kind        Kind
	ID          PacketId
	MessageType MessageType
	TrailingNUL bool
	Raw         []byte // the full original frame, unmodified

	// Text frames only.
	RawBody []byte // UTF-8 body after the leading 4-byte message type
	Text    TextRecord

	// Cached first value of the "text" key for Input packets, falling back
	// to the stray-leading-pipe recovery path when no "text" key exists.
	InputText string

	// Tank frames only.
	Header   TankHeader
	Extra    []byte
	Variants []Entry
}

// Classify strips at most one trailing NUL, reads the leading message type,
// and dispatches to the text or tank parser. Anything shorter than a
// message type, or carrying an unrecognized type, classifies as KindRaw /
// Unknown and is forwarded unchanged by the relay core.
func Classify(raw []byte) Packet {
	trailingNUL := false
	body := raw
	if len(body) > 0 && body[len(body)-1] == 0 {
		trailingNUL = true
		body = body[:len(body)-1]
	}
	if len(body) < 4 {
		return Packet{Kind: KindRaw, ID: Unknown, Raw: raw, TrailingNUL: trailingNUL}
	}
	msgType := MessageType(binary.LittleEndian.Uint32(body[0:4]))

	switch msgType {
	case MsgServerHello, MsgGenericText, MsgGameMessage:
		return classifyText(raw, body, msgType, trailingNUL)
	case MsgGamePacket:
		return classifyTank(raw, body, msgType, trailingNUL)
	default:
		return Packet{Kind: KindRaw, ID: Unknown, MessageType: msgType, Raw: raw, TrailingNUL: trailingNUL}
	}
}

func classifyText(raw, body []byte, msgType MessageType, trailingNUL bool) Packet {
	text := body[4:]
	rec := ParseTextRecord(text, DefaultDelimiter)

	id := Unknown
	if msgType == MsgServerHello {
		id = ServerHello
	} else if pid, ok := textActionTable[rec.Get("action", 0)]; ok {
		id = pid
	}

	p := Packet{
		Kind:        KindText,
		ID:          id,
		MessageType: msgType,
		TrailingNUL: trailingNUL,
		Raw:         raw,
		RawBody:     text,
		Text:        rec,
	}
	if id == Input {
		p.InputText = rec.Get("text", 0)
		if p.InputText == "" {
			if v, ok := RawEmptyKeyValue(text, DefaultDelimiter); ok {
				p.InputText = v
			}
		}
	}
	return p
}

func classifyTank(raw, body []byte, msgType MessageType, trailingNUL bool) Packet {
	// A zero last byte may belong to the header or the extra payload, so a
	// tank frame is measured on raw and only a NUL past the declared extra
	// counts as trailing.
	if len(raw) < TankHeaderSize {
		return Packet{Kind: KindRaw, ID: Unknown, MessageType: msgType, Raw: raw, TrailingNUL: trailingNUL}
	}
	h := ParseTankHeader(raw)
	end := TankHeaderSize + int(h.ExtraLen)
	if end > len(raw) {
		end = len(raw)
	}
	extra := raw[TankHeaderSize:end]
	trailingNUL = len(raw) > end && raw[len(raw)-1] == 0

	p := Packet{
		Kind:        KindTank,
		MessageType: msgType,
		TrailingNUL: trailingNUL,
		Raw:         raw,
		Header:      h,
		Extra:       extra,
	}

	switch h.SubType {
	case SubDisconnect:
		p.ID = Disconnect
	case SubCallFunction:
		if entries, err := DecodeVariantList(extra); err == nil {
			p.Variants = entries
			if len(entries) > 0 && entries[0].Tag == TagString {
				if pid, ok := functionTable[entries[0].Str]; ok {
					p.ID = pid
				}
			}
		}
	}
	return p
}

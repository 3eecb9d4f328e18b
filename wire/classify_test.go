package wire

import (
	"encoding/binary"
	"testing"
)

func textFrame(msgType MessageType, body string) []byte {
	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(msgType))
	copy(buf[4:], body)
	return buf
}

func TestClassifyServerHello(t *testing.T) {
	p := Classify(textFrame(MsgServerHello, "proto|1"))
	if p.Kind != KindText || p.ID != ServerHello {
		t.Fatalf("got %+v", p)
	}
}

func TestClassifyInputFromTextKey(t *testing.T) {
	p := Classify(textFrame(MsgGameMessage, "action|input\ntext|\x00/warp FOO"))
	if p.ID != Input {
		t.Fatalf("expected Input, got %v", p.ID)
	}
	if p.InputText != "\x00/warp FOO" {
		t.Fatalf("unexpected input text %q", p.InputText)
	}
}

func TestClassifyInputFallsBackToEmptyKeyLine(t *testing.T) {
	p := Classify(textFrame(MsgGameMessage, "action|input\n|/warp FOO"))
	if p.ID != Input {
		t.Fatalf("expected Input, got %v", p.ID)
	}
	if p.InputText != "/warp FOO" {
		t.Fatalf("unexpected fallback input text %q", p.InputText)
	}
}

func TestClassifyTextFrameTooShortIsRaw(t *testing.T) {
	p := Classify([]byte{1, 0})
	if p.Kind != KindRaw {
		t.Fatalf("expected raw, got %+v", p)
	}
}

func TestClassifyTrailingNUL(t *testing.T) {
	raw := append(textFrame(MsgServerHello, "a|1"), 0)
	p := Classify(raw)
	if !p.TrailingNUL {
		t.Fatalf("expected trailing NUL detected")
	}
	if string(p.RawBody) != "a|1" {
		t.Fatalf("unexpected raw body %q", p.RawBody)
	}
}

func TestClassifyTankDisconnect(t *testing.T) {
	var h TankHeader
	binary.LittleEndian.PutUint32(h.Raw[0:4], uint32(MsgGamePacket))
	h.Raw[4] = SubDisconnect
	frame := BuildTankFrame(h, nil, false)
	p := Classify(frame)
	if p.Kind != KindTank || p.ID != Disconnect {
		t.Fatalf("got %+v", p)
	}
}

func TestClassifyTankShortIsRaw(t *testing.T) {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(MsgGamePacket))
	p := Classify(buf)
	if p.Kind != KindRaw {
		t.Fatalf("expected raw for undersized tank frame, got %+v", p)
	}
}

func TestClassifyCallFunctionOnSendToServer(t *testing.T) {
	frame := BuildCallFunction("OnSendToServer",
		[]any{17000, 7, 12, "5.6.7.8|door|uuid", 0, "player"},
		0, 0, 0, true)
	p := Classify(frame)
	if p.Kind != KindTank || p.ID != OnSendToServer {
		t.Fatalf("got %+v", p)
	}
	if len(p.Variants) != 7 {
		t.Fatalf("expected 7 variant entries, got %d", len(p.Variants))
	}
	if p.Variants[4].Str != "5.6.7.8|door|uuid" {
		t.Fatalf("unexpected route text %q", p.Variants[4].Str)
	}
}

func TestClassifyExtraClampedToBufferLength(t *testing.T) {
	var h TankHeader
	binary.LittleEndian.PutUint32(h.Raw[0:4], uint32(MsgGamePacket))
	h.Raw[4] = SubCallFunction
	binary.LittleEndian.PutUint32(h.Raw[56:60], 1000) // claims far more than present
	frame := make([]byte, TankHeaderSize+3)
	copy(frame, h.Raw[:])
	p := Classify(frame)
	if len(p.Extra) != 3 {
		t.Fatalf("expected clamp to 3 bytes, got %d", len(p.Extra))
	}
}

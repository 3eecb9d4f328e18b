package inject

import (
	"testing"

	"go.uber.org/zap"

	"github.com/trixolol/GrowProxy/wire"
)

func TestBuildLogFrameRoundTrips(t *testing.T) {
	frame := buildLogFrame("hello world")
	pkt := wire.Classify(frame)
	if pkt.Text.Get("action", 0) != "log" {
		t.Fatalf("expected action=log, got %+v", pkt.Text)
	}
	if pkt.Text.Get("msg", 0) != "hello world" {
		t.Fatalf("expected msg=hello world, got %+v", pkt.Text)
	}
}

func TestBuildQuitToExitFrame(t *testing.T) {
	pkt := wire.Classify(buildQuitToExitFrame())
	if pkt.ID != wire.QuitToExit {
		t.Fatalf("expected QuitToExit id, got %v", pkt.ID)
	}
}

func TestBuildJoinRequestFrameOmitsEmptyInvitedWorld(t *testing.T) {
	pkt := wire.Classify(buildJoinRequestFrame("START", ""))
	if pkt.ID != wire.JoinRequest {
		t.Fatalf("expected JoinRequest id, got %v", pkt.ID)
	}
	if pkt.Text.Get("name", 0) != "START" {
		t.Fatalf("expected name=START, got %+v", pkt.Text)
	}
	if pkt.Text.Contains("invited_world") {
		t.Fatalf("expected no invited_world line when empty")
	}
}

func TestBuildJoinRequestFrameIncludesInvitedWorld(t *testing.T) {
	pkt := wire.Classify(buildJoinRequestFrame("START", "LOBBY"))
	if pkt.Text.Get("invited_world", 0) != "LOBBY" {
		t.Fatalf("expected invited_world=LOBBY, got %+v", pkt.Text)
	}
}

func TestBuildVariantFramePrependsFunctionNameAndSetsTrailingNUL(t *testing.T) {
	opts := DefaultVariantOptions()
	frame := buildVariantFrame("OnTalkBubble", []any{"hello"}, opts)
	if frame[len(frame)-1] != 0 {
		t.Fatalf("expected trailing NUL byte")
	}
	pkt := wire.Classify(frame)
	if len(pkt.Variants) < 2 || pkt.Variants[0].Str != "OnTalkBubble" {
		t.Fatalf("expected function name as first variant, got %+v", pkt.Variants)
	}
	if pkt.Variants[1].Str != "hello" {
		t.Fatalf("expected arg0 == hello, got %+v", pkt.Variants[1])
	}
}

func TestSendReturnsFalseWhenPeerIsNil(t *testing.T) {
	log := zap.NewNop().Sugar()
	if SendLog(nil, "hi", log) {
		t.Fatalf("expected SendLog to no-op false on nil peer")
	}
	if SendQuitToExit(nil, log) {
		t.Fatalf("expected SendQuitToExit to no-op false on nil peer")
	}
	if SendJoinRequest(nil, "START", "", log) {
		t.Fatalf("expected SendJoinRequest to no-op false on nil peer")
	}
	if SendVariantToClient(nil, "OnTalkBubble", []any{"hi"}, DefaultVariantOptions(), log) {
		t.Fatalf("expected SendVariantToClient to no-op false on nil peer")
	}
}

func TestDefaultVariantOptions(t *testing.T) {
	opts := DefaultVariantOptions()
	if opts.NetID != -1 || opts.TargetNetID != 0 || opts.Delay != 0 || opts.ChannelID != 0 {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}

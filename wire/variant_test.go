package wire

import (
	"math"
	"testing"
)

func TestVariantRoundTripAllTypes(t *testing.T) {
	entries := []Entry{
		EncodeArg(0, float32(3.5)),
		EncodeArg(1, "hello world"),
		EncodeArg(2, [2]float32{1.5, -2.5}),
		EncodeArg(3, [3]float32{1, 2, 3}),
		EncodeArg(4, uint32(4294967295)),
		EncodeArg(5, int32(-100)),
	}
	raw := EncodeVariantList(entries)
	decoded, err := DecodeVariantList(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(decoded), len(entries))
	}
	if decoded[0].Tag != TagFloat || decoded[0].F32 != 3.5 {
		t.Fatalf("float mismatch: %+v", decoded[0])
	}
	if decoded[1].Tag != TagString || decoded[1].Str != "hello world" {
		t.Fatalf("string mismatch: %+v", decoded[1])
	}
	if decoded[2].Tag != TagVec2 || decoded[2].V2 != [2]float32{1.5, -2.5} {
		t.Fatalf("vec2 mismatch: %+v", decoded[2])
	}
	if decoded[3].Tag != TagVec3 || decoded[3].V3 != [3]float32{1, 2, 3} {
		t.Fatalf("vec3 mismatch: %+v", decoded[3])
	}
	if decoded[4].Tag != TagUnsigned || decoded[4].U32 != 4294967295 {
		t.Fatalf("unsigned mismatch: %+v", decoded[4])
	}
	if decoded[5].Tag != TagSigned || decoded[5].I32 != -100 {
		t.Fatalf("signed mismatch: %+v", decoded[5])
	}
}

func TestVariantUnmodifiedReEmissionIsByteIdentical(t *testing.T) {
	raw := EncodeVariantList([]Entry{EncodeArg(0, "OnChangeSkin"), EncodeArg(1, uint32(7))})
	decoded, err := DecodeVariantList(raw)
	if err != nil {
		t.Fatal(err)
	}
	reEmitted := EncodeVariantList(decoded)
	if string(reEmitted) != string(raw) {
		t.Fatalf("re-emission diverged:\n got %x\nwant %x", reEmitted, raw)
	}
}

func TestVariantAutoTagSelection(t *testing.T) {
	if e := EncodeArg(0, 0); e.Tag != TagUnsigned {
		t.Fatalf("0 should encode as unsigned, got %v", e.Tag)
	}
	if e := EncodeArg(0, math.MaxUint32); e.Tag != TagUnsigned {
		t.Fatalf("max uint32 should encode as unsigned, got %v", e.Tag)
	}
	if e := EncodeArg(0, -1); e.Tag != TagSigned {
		t.Fatalf("-1 should encode as signed, got %v", e.Tag)
	}
	if e := EncodeArg(0, math.MinInt32); e.Tag != TagSigned {
		t.Fatalf("min int32 should encode as signed, got %v", e.Tag)
	}
	if e := EncodeArg(0, math.NaN()); e.Tag != TagString {
		t.Fatalf("NaN should encode as string, got %v", e.Tag)
	}
	if e := EncodeArg(0, math.Inf(1)); e.Tag != TagString {
		t.Fatalf("+Inf should encode as string, got %v", e.Tag)
	}
	if e := EncodeArg(0, 1.5); e.Tag != TagFloat {
		t.Fatalf("1.5 should encode as float, got %v", e.Tag)
	}
}

func TestVariantMalformedTagFails(t *testing.T) {
	buf := []byte{1, 0, 200}
	if _, err := DecodeVariantList(buf); err == nil {
		t.Fatalf("expected malformed tag to fail")
	}
}

func TestVariantTruncatedPayloadFails(t *testing.T) {
	buf := []byte{1, 0, byte(TagUnsigned), 1, 2}
	if _, err := DecodeVariantList(buf); err == nil {
		t.Fatalf("expected truncated payload to fail")
	}
}

func TestVariantEmptyBufferFails(t *testing.T) {
	if _, err := DecodeVariantList(nil); err != ErrNoVariantEntries {
		t.Fatalf("expected ErrNoVariantEntries, got %v", err)
	}
}

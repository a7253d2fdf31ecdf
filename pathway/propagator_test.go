package pathway

import (
	"encoding/hex"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeVector(t *testing.T) {
	p := Pathway{
		Hash:           17210443572488294574,
		PathwayStartNs: 1677632342000000000,
		EdgeStartNs:    1677632342000000000,
	}
	got := hex.EncodeToString(Encode(p))
	want := "aed0118d3ec7d7eee09ff0aad361e09ff0aad361"
	if got != want {
		t.Fatalf("Encode() = %s, want %s", got, want)
	}

	gotStr := EncodeString(p)
	want2 := "rtARjT7H1+7gn/Cq02Hgn/Cq02E="
	if gotStr != want2 {
		t.Fatalf("EncodeString() = %s, want %s", gotStr, want2)
	}
}

func TestRoundTrip(t *testing.T) {
	p := Pathway{
		Hash:           17210443572488294574,
		PathwayStartNs: 1677632342000000000,
		EdgeStartNs:    1677632342000000000,
	}
	decoded, ok := Decode(Encode(p))
	if !ok {
		t.Fatal("Decode(Encode(p)) failed")
	}
	if diff := cmp.Diff(p, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	decodedStr, ok := DecodeString(EncodeString(p))
	if !ok {
		t.Fatal("DecodeString(EncodeString(p)) failed")
	}
	if diff := cmp.Diff(p, decodedStr); diff != "" {
		t.Fatalf("base64 round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripMillisecondTruncation(t *testing.T) {
	// pathway_start/edge_start are only representable to millisecond
	// precision on the wire; sub-ms components are dropped.
	p := Pathway{Hash: 1, PathwayStartNs: 1_234_567_000, EdgeStartNs: 1_234_567_000}
	decoded, ok := Decode(Encode(p))
	if !ok {
		t.Fatal("decode failed")
	}
	wantMs := (p.PathwayStartNs / 1_000_000) * 1_000_000
	if decoded.PathwayStartNs != wantMs {
		t.Fatalf("PathwayStartNs = %d, want %d", decoded.PathwayStartNs, wantMs)
	}
}

func TestDecodeMalformedYieldsNoPathway(t *testing.T) {
	if _, ok := Decode([]byte{1, 2, 3}); ok {
		t.Fatal("expected malformed binary payload to decode to no pathway")
	}
	if _, ok := DecodeString("not-valid-base64!!"); ok {
		t.Fatal("expected malformed base64 payload to decode to no pathway")
	}
}

type fakeCarrier map[string][]byte

func (f fakeCarrier) Get(key string) ([]byte, bool) {
	for k, v := range f {
		if equalFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func (f fakeCarrier) Set(key string, value []byte) { f[key] = value }

func (f fakeCarrier) Del(key string) {
	for k := range f {
		if equalFold(k, key) {
			delete(f, k)
		}
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func TestInjectExtractHeadersBinaryWins(t *testing.T) {
	p := Pathway{Hash: 99, PathwayStartNs: 2_000_000_000, EdgeStartNs: 2_500_000_000}
	c := fakeCarrier{}
	InjectHeaders(c, p)

	// Simulate a stale base64 header also being present; binary must win.
	c.Set(headerBase64, []byte(EncodeString(Pathway{Hash: 1})))

	got, ok := ExtractHeaders(c)
	if !ok {
		t.Fatal("expected a pathway to be extracted")
	}
	if got.Hash != p.Hash {
		t.Fatalf("binary form should win when both present, got hash %d want %d", got.Hash, p.Hash)
	}
}

func TestExtractHeadersAbsent(t *testing.T) {
	c := fakeCarrier{}
	_, ok := ExtractHeaders(c)
	if ok {
		t.Fatal("expected no pathway when no headers are present")
	}
}

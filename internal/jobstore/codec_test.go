package jobstore

import (
	"testing"

	"github.com/petrijr/copilot/pkg/api"
)

// Typed nil pointers must encode to nothing, not to the JSON "null" that a
// naive marshal would produce.
func TestEncodeArtifact_NilHandling(t *testing.T) {
	cases := []any{
		nil,
		(*api.ProcessGraph)(nil),
		(*api.DataModel)(nil),
		(*api.FormModel)(nil),
	}
	for _, c := range cases {
		blob, err := encodeArtifact(c)
		if err != nil {
			t.Fatalf("encodeArtifact(%T) failed: %v", c, err)
		}
		if blob != nil {
			t.Fatalf("encodeArtifact(%T) should yield nil, got %q", c, blob)
		}
	}
}

func TestDecodeArtifact_RoundTripAndEmpty(t *testing.T) {
	empty, err := decodeArtifact[api.ProcessGraph](nil)
	if err != nil {
		t.Fatalf("decode of empty blob failed: %v", err)
	}
	if empty != nil {
		t.Fatal("empty blob should decode to nil artifact")
	}

	graph := &api.ProcessGraph{
		Name: "P",
		Activities: []api.Activity{
			{ID: "node_start", Type: api.NodeStartEvent, NextActivityID: "node_end"},
			{ID: "node_end", Type: api.NodeEndEvent},
		},
	}
	blob, err := encodeArtifact(graph)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := decodeArtifact[api.ProcessGraph](blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Name != "P" || len(got.Activities) != 2 {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

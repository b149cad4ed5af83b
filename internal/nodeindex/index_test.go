package nodeindex_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/tonykolomeytsev/figx/internal/nodeindex"
)

type node struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Children []node `json:"children,omitempty"`
}

type doc struct {
	Document node `json:"document"`
}

func synthDoc() doc {
	return doc{Document: node{
		ID: "0:0", Name: "Document", Type: "DOCUMENT",
		Children: []node{
			{
				ID: "1:0", Name: "Page 1", Type: "CANVAS",
				Children: []node{
					{
						ID: "2:0", Name: "Icons", Type: "FRAME",
						Children: []node{
							{
								ID: "3:0", Name: "Puzzle", Type: "FRAME",
								Children: []node{
									{ID: "4:0", Name: "24", Type: "COMPONENT"},
									{ID: "4:1", Name: "48", Type: "COMPONENT"},
								},
							},
						},
					},
					{ID: "2:1", Name: "Environment / Puzzle", Type: "COMPONENT"},
				},
			},
		},
	}}
}

// pipeReader feeds encoded JSON through an io.Pipe so Resolve calls issued
// before encoding finishes can observe streaming liveness.
func pipeReader(t *testing.T, d doc) (io.Reader, <-chan struct{}) {
	t.Helper()
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		enc := json.NewEncoder(pw)
		_ = enc.Encode(d)
		pw.Close()
	}()
	return pr, done
}

func TestIndex_ResolvesNestedPathWithoutDocumentOrPagePrefix(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	if err := x.Populate(buf.Bytes(), nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	id, err := x.Resolve(context.Background(), "Icons / Puzzle / 24")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "4:0" {
		t.Fatalf("got id %q, want 4:0", id)
	}

	if _, err := x.Resolve(context.Background(), "Document / Page 1 / Icons / Puzzle / 24"); err == nil {
		t.Fatal("document/page-prefixed path must not resolve")
	}
}

func TestIndex_TopLevelComponentPath(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	if err := x.Populate(buf.Bytes(), nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	id, err := x.Resolve(context.Background(), "Environment / Puzzle")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "2:1" {
		t.Fatalf("got id %q, want 2:1", id)
	}
}

func TestIndex_NotFoundAfterComplete(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	if err := x.Populate(buf.Bytes(), nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	if _, err := x.Resolve(context.Background(), "Icons / Nonexistent"); err == nil {
		t.Fatal("expected not-found error for a path absent from the document")
	}
}

func TestIndex_StreamingLiveness(t *testing.T) {
	x := nodeindex.New()
	r, done := pipeReader(t, synthDoc())

	go x.Start(context.Background(), r, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := x.Resolve(ctx, "Icons / Puzzle / 48")
	if err != nil {
		t.Fatalf("Resolve before parse completion: %v", err)
	}
	if id != "4:1" {
		t.Fatalf("got id %q, want 4:1", id)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("encoder goroutine never finished")
	}
}

func TestIndex_MonotonicResolve(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	if err := x.Populate(buf.Bytes(), nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	id1, err := x.Resolve(context.Background(), "Icons / Puzzle / 24")
	if err != nil {
		t.Fatalf("Resolve (1st): %v", err)
	}
	id2, err := x.Resolve(context.Background(), "Icons / Puzzle / 24")
	if err != nil {
		t.Fatalf("Resolve (2nd): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("resolution changed across calls: %q != %q", id1, id2)
	}
}

func TestIndex_ContainerTagging(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	// "2:0" (Icons frame) is the container; everything beneath it should
	// carry its node-id as the tag.
	if err := x.Populate(buf.Bytes(), []string{"2:0"}); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	if _, err := x.Resolve(context.Background(), "Icons / Puzzle / 24"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	tag, ok := x.Tag("Icons / Puzzle / 24")
	if !ok {
		t.Fatal("expected a container tag")
	}
	if tag != "2:0" {
		t.Fatalf("got tag %q, want 2:0", tag)
	}

	if _, ok := x.Tag("Environment / Puzzle"); ok {
		t.Fatal("node outside the container must carry no tag")
	}
}

func TestIndex_ResolveCancelledByContext(t *testing.T) {
	x := nodeindex.New()
	r, _ := io.Pipe()
	go x.Start(context.Background(), r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := x.Resolve(ctx, "Icons / Puzzle / 24"); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestIndex_ProgressReportsSeenCount(t *testing.T) {
	x := nodeindex.New()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(synthDoc())
	if err := x.Populate(buf.Bytes(), nil); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	seen, _ := x.Progress()
	if seen == 0 {
		t.Fatal("expected a nonzero seen count after a completed parse")
	}
	if !x.Done() {
		t.Fatal("expected Done() to be true after Populate")
	}
}

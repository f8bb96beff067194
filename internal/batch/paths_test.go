package batch

import (
	"path/filepath"
	"testing"

	"mert-convert/internal/discovery"
	"mert-convert/internal/model"
)

func TestOutputPathFor(t *testing.T) {
	out := filepath.Join("/srv", "out")
	cases := []struct {
		name    string
		asset   discovery.Asset
		flatten bool
		want    string
	}{
		{
			name:  "mirror keeps relative dirs",
			asset: discovery.Asset{Path: "/in/a/b/pic.JPG", Root: "/in", Kind: model.KindImage},
			want:  filepath.Join(out, "a", "b", "pic.webp"),
		},
		{
			name:    "flatten keeps base name",
			asset:   discovery.Asset{Path: "/in/a/b/clip.mov", Root: "/in", Kind: model.KindVideo},
			flatten: true,
			want:    filepath.Join(out, "clip.webm"),
		},
		{
			name:  "single file root",
			asset: discovery.Asset{Path: "/in/pic.png", Root: "/in", Kind: model.KindImage},
			want:  filepath.Join(out, "pic.webp"),
		},
		{
			name:  "asset outside root falls back to base name",
			asset: discovery.Asset{Path: "/elsewhere/pic.png", Root: "/in", Kind: model.KindImage},
			want:  filepath.Join(out, "pic.webp"),
		},
		{
			name:  "decomposed names are normalized",
			asset: discovery.Asset{Path: "/in/cafe\u0301.png", Root: "/in", Kind: model.KindImage},
			want:  filepath.Join(out, "caf\u00e9.webp"),
		},
	}
	for _, tc := range cases {
		if got := OutputPathFor(tc.asset, out, tc.flatten); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestCollisionResolver(t *testing.T) {
	cr := NewCollisionResolver()
	if got := cr.Resolve("/a/x.png", "/out/x.webp"); got != "/out/x.webp" {
		t.Fatalf("first claimant should keep the name, got %q", got)
	}
	if got := cr.Resolve("/a/x.png", "/out/x.webp"); got != "/out/x.webp" {
		t.Fatalf("same input should get its own name back, got %q", got)
	}
	if got := cr.Resolve("/b/x.png", "/out/x.webp"); got != "/out/x-2.webp" {
		t.Fatalf("second claimant: got %q", got)
	}
	if got := cr.Resolve("/c/X.jpg", "/out/X.webp"); got != "/out/X-3.webp" {
		t.Fatalf("case-only difference should collide, got %q", got)
	}
	if got := cr.Resolve("/d/x.gif", "/out/x.webp"); got != "/out/x-4.webp" {
		t.Fatalf("fourth claimant: got %q", got)
	}
}

func TestBudgetFor(t *testing.T) {
	cases := []struct {
		available int
		ratio     float64
		want      int
	}{
		{available: 8, ratio: 0.75, want: 6},
		{available: 1, ratio: 0.75, want: 1},
		{available: 3, ratio: 0.75, want: 2},
		{available: 16, ratio: 0, want: 12},
		{available: 4, ratio: 1, want: 4},
	}
	for _, tc := range cases {
		if got := budgetFor(tc.available, tc.ratio); got != tc.want {
			t.Fatalf("budgetFor(%d, %v) = %d, want %d", tc.available, tc.ratio, got, tc.want)
		}
	}
	if got := WorkerBudget(5, 0.75); got != 5 {
		t.Fatalf("positive override should win, got %d", got)
	}
	if got := WorkerBudget(0, 0.75); got < 1 {
		t.Fatalf("budget must be at least 1, got %d", got)
	}
}

package merge

import (
	"testing"
	"time"

	"github.com/dkeller9/capver/internal/version"
)

func sp(s string) *string {
	return &s
}

func v(id string, parent *string, ts time.Time) *version.Version {
	return &version.Version{ID: id, Kind: version.KindLinear, Parent: parent, Timestamp: ts}
}

// buildDivergent returns a history with root v1 and two children v2, v3.
func buildDivergent(t *testing.T) *version.History {
	t.Helper()
	h := version.NewHistory("cap1", "main")
	now := time.Now()
	h.Append(v("v1", nil, now), "main")
	h.Append(v("v2", sp("v1"), now.Add(time.Second)), "main")
	h.Branches["feature"] = "v1"
	h.Append(v("v3", sp("v1"), now.Add(2*time.Second)), "feature")
	return h
}

func TestFindCommonAncestor_Divergent(t *testing.T) {
	h := buildDivergent(t)
	anc := FindCommonAncestor(h, h.Lookup("v2"), h.Lookup("v3"))
	if anc == nil || anc.ID != "v1" {
		t.Fatalf("ancestor = %v, want v1", anc)
	}
}

func TestFindCommonAncestor_SelfIsAncestor(t *testing.T) {
	h := buildDivergent(t)
	// v1 is an ancestor of v2, so merging v1 and v2 resolves to v1.
	anc := FindCommonAncestor(h, h.Lookup("v1"), h.Lookup("v2"))
	if anc == nil || anc.ID != "v1" {
		t.Fatalf("ancestor = %v, want v1", anc)
	}
}

func TestFindCommonAncestor_Nearest(t *testing.T) {
	h := version.NewHistory("cap1", "main")
	now := time.Now()
	h.Append(v("v1", nil, now), "main")
	h.Append(v("v2", sp("v1"), now.Add(time.Second)), "main")
	h.Append(v("v3", sp("v2"), now.Add(2*time.Second)), "main")
	h.Branches["feature"] = "v2"
	h.Append(v("v4", sp("v2"), now.Add(3*time.Second)), "feature")

	// v2 is nearer than v1.
	anc := FindCommonAncestor(h, h.Lookup("v3"), h.Lookup("v4"))
	if anc == nil || anc.ID != "v2" {
		t.Fatalf("ancestor = %v, want v2", anc)
	}
}

func TestFindCommonAncestor_ThroughMergeParents(t *testing.T) {
	h := version.NewHistory("cap1", "main")
	now := time.Now()
	h.Append(v("v1", nil, now), "main")
	h.Append(v("v2", sp("v1"), now.Add(time.Second)), "main")
	h.Branches["feature"] = "v1"
	h.Append(v("v3", sp("v1"), now.Add(2*time.Second)), "feature")

	m := &version.Version{
		ID:           "m1",
		Kind:         version.KindMerge,
		Parent:       sp("v2"),
		SourceParent: sp("v3"),
		Timestamp:    now.Add(3 * time.Second),
	}
	h.Append(m, "main")

	// v3 is reachable from m1 only through the merge's source parent.
	anc := FindCommonAncestor(h, m, h.Lookup("v3"))
	if anc == nil || anc.ID != "v3" {
		t.Fatalf("ancestor = %v, want v3", anc)
	}
}

func TestFindCommonAncestor_NoSharedRoot(t *testing.T) {
	h := version.NewHistory("cap1", "main")
	now := time.Now()
	a := v("a", nil, now)
	b := v("b", nil, now)
	h.Versions = append(h.Versions, a, b)

	if anc := FindCommonAncestor(h, a, b); anc != nil {
		t.Errorf("ancestor = %v, want nil for disjoint roots", anc)
	}
}

func TestThreeWayMerge_BothUnchanged(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	changes := ThreeWayMerge(anc, anc, anc)
	if len(changes) != 0 {
		t.Errorf("merging two copies of the ancestor = %d changes, want 0", len(changes))
	}
	if ConflictCount(changes) != 0 {
		t.Error("unexpected conflicts")
	}
}

func TestThreeWayMerge_OnlySourceChanged(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{"a.py": "h2"}
	tgt := map[string]string{"a.py": "h1"}

	changes := ThreeWayMerge(anc, src, tgt)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	fc := changes[0]
	if fc.Type != version.Modified || *fc.NewHash != "h2" {
		t.Errorf("change = %+v, want clean modify to h2", fc)
	}
	if fc.Conflict() != "" {
		t.Error("clean source-side change flagged as conflict")
	}
}

func TestThreeWayMerge_OnlyTargetChanged(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{"a.py": "h1"}
	tgt := map[string]string{"a.py": "h3"}

	// Target content is already in place; nothing to apply.
	changes := ThreeWayMerge(anc, src, tgt)
	if len(changes) != 0 {
		t.Errorf("len(changes) = %d, want 0", len(changes))
	}
}

func TestThreeWayMerge_ModifyModifyConflict(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{"a.py": "h2"}
	tgt := map[string]string{"a.py": "h3"}

	changes := ThreeWayMerge(anc, src, tgt)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	fc := changes[0]
	if fc.Type != version.Merged {
		t.Errorf("Type = %s, want merged", fc.Type)
	}
	if fc.Conflict() != version.ConflictModifyModify {
		t.Errorf("conflict = %q, want modify-modify", fc.Conflict())
	}
	if *fc.NewHash != "h2" {
		t.Errorf("NewHash = %s, want h2 (source preference)", *fc.NewHash)
	}
	if fc.Metadata[version.TargetHashKey] != "h3" {
		t.Errorf("target hash annotation = %v, want h3", fc.Metadata[version.TargetHashKey])
	}
}

func TestThreeWayMerge_Asymmetric(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{"a.py": "h2"}
	tgt := map[string]string{"a.py": "h3"}

	ab := ThreeWayMerge(anc, src, tgt)
	ba := ThreeWayMerge(anc, tgt, src)

	if *ab[0].NewHash == *ba[0].NewHash {
		t.Error("merge should prefer the source side in both directions")
	}
	if *ab[0].NewHash != "h2" || *ba[0].NewHash != "h3" {
		t.Errorf("got %s / %s, want h2 / h3", *ab[0].NewHash, *ba[0].NewHash)
	}
}

func TestThreeWayMerge_DeleteModifyConflict(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{"a.py": "h2"}
	tgt := map[string]string{}

	changes := ThreeWayMerge(anc, src, tgt)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	fc := changes[0]
	if fc.Type != version.Merged || fc.Conflict() != version.ConflictDeleteModify {
		t.Errorf("change = %+v, want delete-modify conflict", fc)
	}
	if *fc.NewHash != "h2" {
		t.Errorf("NewHash = %s, want h2 (source content kept)", *fc.NewHash)
	}
}

func TestThreeWayMerge_DeletedInSource(t *testing.T) {
	anc := map[string]string{"a.py": "h1"}
	src := map[string]string{}
	tgt := map[string]string{"a.py": "h1"}

	// Source-side deletion: target content kept, no conflict, no entry.
	changes := ThreeWayMerge(anc, src, tgt)
	if len(changes) != 0 {
		t.Errorf("len(changes) = %d, want 0", len(changes))
	}
}

func TestThreeWayMerge_BothAddedSame(t *testing.T) {
	src := map[string]string{"new.py": "h1"}
	tgt := map[string]string{"new.py": "h1"}

	changes := ThreeWayMerge(nil, src, tgt)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].Type != version.Created || changes[0].Conflict() != "" {
		t.Errorf("change = %+v, want clean created", changes[0])
	}
}

func TestThreeWayMerge_NilAncestor(t *testing.T) {
	src := map[string]string{"a.py": "h2"}
	tgt := map[string]string{"a.py": "h3"}

	changes := ThreeWayMerge(nil, src, tgt)
	if len(changes) != 1 {
		t.Fatalf("len(changes) = %d, want 1", len(changes))
	}
	if changes[0].Conflict() != version.ConflictModifyModify {
		t.Errorf("conflict = %q, want modify-modify for rootless divergence", changes[0].Conflict())
	}
}

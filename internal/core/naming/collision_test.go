package naming

import "testing"

func TestCollisionResolverSuffixesDuplicates(t *testing.T) {
	cr := NewCollisionResolver()
	got := []string{
		cr.Resolve("cat.png"),
		cr.Resolve("cat.png"),
		cr.Resolve("dog.png"),
		cr.Resolve("cat.png"),
		cr.Resolve("cat-4.png"),
		cr.Resolve("cat.png"),
	}
	want := []string{"cat.png", "cat-2.png", "dog.png", "cat-3.png", "cat-4.png", "cat-5.png"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resolve #%d = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCollisionResolverWithoutExtension(t *testing.T) {
	cr := NewCollisionResolver()
	_ = cr.Resolve("scan")
	if got := cr.Resolve("scan"); got != "scan-2" {
		t.Fatalf("unexpected name %q", got)
	}
}

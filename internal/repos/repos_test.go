package repos

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveEmptyPrefix(t *testing.T) {
	l := NewList("w3c/scribe2", "w3c/aria")
	for i := 0; i < 3; i++ {
		got, err := l.Resolve("")
		if err != nil {
			t.Fatalf("Resolve(\"\") error = %v", err)
		}
		if got.FullName() != "w3c/scribe2" {
			t.Errorf("Resolve(\"\") = %v, want w3c/scribe2", got.FullName())
		}
	}

	empty := NewList()
	if _, err := empty.Resolve(""); !errors.Is(err, ErrNoRepository) {
		t.Errorf("Resolve(\"\") on empty list error = %v, want ErrNoRepository", err)
	}
}

func TestResolveExactBeforePrefix(t *testing.T) {
	// "scribe" exactly names the second entry even though the first
	// entry's name starts with the same letters.
	l := NewList("w3c/scribe2", "w3c/scribe")
	got, err := l.Resolve("scribe")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if got.FullName() != "w3c/scribe" {
		t.Errorf("Resolve(\"scribe\") = %v, want w3c/scribe", got.FullName())
	}

	got, err = l.Resolve("scr")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if got.FullName() != "w3c/scribe2" {
		t.Errorf("Resolve(\"scr\") = %v, want MRU prefix match w3c/scribe2", got.FullName())
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	l := NewList("w3c/Scribe2")
	got, err := l.Resolve("scribe2")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if got.Name != "Scribe2" {
		t.Errorf("Resolve(\"scribe2\") = %v, want Scribe2", got.Name)
	}
}

func TestResolveLiteralOwnerName(t *testing.T) {
	l := NewList()
	got, err := l.Resolve("foo/bar")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if got.FullName() != "foo/bar" {
		t.Errorf("Resolve(\"foo/bar\") = %v, want foo/bar", got.FullName())
	}
}

func TestResolveBorrowsOwner(t *testing.T) {
	l := NewList("w3c/scribe2")
	got, err := l.Resolve("aria")
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if got.FullName() != "w3c/aria" {
		t.Errorf("Resolve(\"aria\") = %v, want w3c/aria", got.FullName())
	}

	empty := NewList()
	if _, err := empty.Resolve("aria"); !errors.Is(err, ErrNoRepository) {
		t.Errorf("Resolve(\"aria\") on empty list error = %v, want ErrNoRepository", err)
	}
}

func TestAddTextMovesToFront(t *testing.T) {
	l := NewList("w3c/scribe2")
	if _, err := l.AddText("w3c/aria"); err != nil {
		t.Fatalf("AddText error = %v", err)
	}
	if _, err := l.AddText("scribe2"); err != nil {
		t.Fatalf("AddText error = %v", err)
	}
	want := []string{"w3c/scribe2", "w3c/aria"}
	if got := l.FullNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("FullNames() = %v, want %v", got, want)
	}
}

func TestAddTextIdempotent(t *testing.T) {
	l := NewList()
	for i := 0; i < 2; i++ {
		if _, err := l.AddText("w3c/aria"); err != nil {
			t.Fatalf("AddText error = %v", err)
		}
	}
	if got := l.FullNames(); !reflect.DeepEqual(got, []string{"w3c/aria"}) {
		t.Errorf("FullNames() = %v, want single w3c/aria", got)
	}
}

func TestAddTextMultipleTokens(t *testing.T) {
	l := NewList("w3c/scribe2")
	added, err := l.AddText("aria, w3c/html whatwg/dom")
	if err != nil {
		t.Fatalf("AddText error = %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("AddText added %d repos, want 3", len(added))
	}
	want := []string{"whatwg/dom", "w3c/html", "w3c/aria", "w3c/scribe2"}
	if got := l.FullNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("FullNames() = %v, want %v", got, want)
	}
}

func TestAddTextURL(t *testing.T) {
	l := NewList()
	if _, err := l.AddText("https://github.com/w3c/scribe2"); err != nil {
		t.Fatalf("AddText error = %v", err)
	}
	if got := l.FullNames(); !reflect.DeepEqual(got, []string{"w3c/scribe2"}) {
		t.Errorf("FullNames() = %v, want w3c/scribe2", got)
	}
}

func TestRemoveText(t *testing.T) {
	l := NewList("w3c/scribe2", "w3c/aria")
	removed, missing := l.RemoveText("aria nosuch")
	if !reflect.DeepEqual(removed, []string{"aria"}) {
		t.Errorf("removed = %v, want [aria]", removed)
	}
	if !reflect.DeepEqual(missing, []string{"nosuch"}) {
		t.Errorf("missing = %v, want [nosuch]", missing)
	}
	if got := l.FullNames(); !reflect.DeepEqual(got, []string{"w3c/scribe2"}) {
		t.Errorf("FullNames() = %v, want [w3c/scribe2]", got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Repo
	}{
		{"w3c/scribe2", Repo{Owner: "w3c", Name: "scribe2"}},
		{"https://github.com/w3c/scribe2", Repo{Owner: "w3c", Name: "scribe2"}},
		{"https://github.com/w3c/scribe2/", Repo{Owner: "w3c", Name: "scribe2"}},
		{"scribe2", Repo{Name: "scribe2"}},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

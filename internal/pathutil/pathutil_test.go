package pathutil

import "testing"

func TestClean(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"a/b.txt":        "a/b.txt",
		"/a/b.txt":       "a/b.txt",
		"a/b.txt/":       "a/b.txt",
		"a//b.txt":       "a/b.txt",
		"./a/./b.txt":    "a/b.txt",
		"a\\b\\c.txt":    "a/b/c.txt",
	}

	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("", "a.txt"); got != "a.txt" {
		t.Errorf("Join(%q,%q) = %q", "", "a.txt", got)
	}

	if got := Join("a", "b.txt"); got != "a/b.txt" {
		t.Errorf("Join(%q,%q) = %q", "a", "b.txt", got)
	}
}

func TestBaseDir(t *testing.T) {
	if got := Base("a/b/c.txt"); got != "c.txt" {
		t.Errorf("Base = %q", got)
	}

	if got := Dir("a/b/c.txt"); got != "a/b" {
		t.Errorf("Dir = %q", got)
	}

	if got := Dir("c.txt"); got != "" {
		t.Errorf("Dir of root-level path = %q, want empty", got)
	}
}

func TestDepth(t *testing.T) {
	cases := map[string]int{
		"":          0,
		"a.txt":     1,
		"a/b.txt":   2,
		"a/b/c.txt": 3,
	}

	for in, want := range cases {
		if got := Depth(in); got != want {
			t.Errorf("Depth(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestIsWithin(t *testing.T) {
	if !IsWithin("a", "a/b.txt") {
		t.Error("expected a/b.txt within a")
	}

	if !IsWithin("a", "a") {
		t.Error("a folder is within itself")
	}

	if IsWithin("a", "ab/c.txt") {
		t.Error("ab should not be considered within a (prefix, not path component)")
	}

	if !IsWithin("", "anything") {
		t.Error("empty ancestor (sync root) contains everything")
	}
}

func TestToRemotePath(t *testing.T) {
	cases := []struct {
		root, rel, want string
	}{
		{"", "", ""},
		{"", "a/b.txt", "/a/b.txt"},
		{"apps/dropsync", "", "/apps/dropsync"},
		{"apps/dropsync", "a/b.txt", "/apps/dropsync/a/b.txt"},
		{"/apps/dropsync/", "a/b.txt", "/apps/dropsync/a/b.txt"},
	}

	for _, c := range cases {
		if got := ToRemotePath(c.root, c.rel); got != c.want {
			t.Errorf("ToRemotePath(%q,%q) = %q, want %q", c.root, c.rel, got, c.want)
		}
	}
}

func TestRelativeTo(t *testing.T) {
	cases := []struct {
		root, display, want string
	}{
		{"", "", ""},
		{"", "/a/b.txt", "a/b.txt"},
		{"apps/dropsync", "/apps/dropsync", ""},
		{"apps/dropsync", "/apps/dropsync/a/b.txt", "a/b.txt"},
	}

	for _, c := range cases {
		if got := RelativeTo(c.root, c.display); got != c.want {
			t.Errorf("RelativeTo(%q,%q) = %q, want %q", c.root, c.display, got, c.want)
		}
	}
}

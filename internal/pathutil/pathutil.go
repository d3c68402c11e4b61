// Package pathutil implements the canonical POSIX-style path handling
// shared by every component that touches a relative sync path
// (data-model.md §3, §4.8).
package pathutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator is the canonical path separator used in every index key.
const Separator = "/"

// Clean normalizes an arbitrary filesystem-relative path into the
// canonical in-memory form: forward slashes, no leading slash, no
// trailing slash, no "." components, and NFC-normalized names so a file
// created on an NFD-producing filesystem (classic macOS behavior) does
// not appear to rename itself on every scan.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", Separator)
	p = norm.NFC.String(p)

	parts := strings.Split(p, Separator)
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		// ".." components are rejected by the caller before reaching here;
		// Clean only strips the degenerate cases produced by joining.
		out = append(out, part)
	}

	return strings.Join(out, Separator)
}

// Join joins a parent canonical path and a child name into a canonical path.
func Join(parent, name string) string {
	if parent == "" {
		return Clean(name)
	}

	return Clean(parent + Separator + name)
}

// Base returns the final path component, mirroring path.Base but operating
// on the canonical in-memory separator regardless of host OS.
func Base(p string) string {
	if p == "" {
		return ""
	}

	idx := strings.LastIndex(p, Separator)
	if idx < 0 {
		return p
	}

	return p[idx+1:]
}

// Dir returns the parent canonical path, or "" if p has no parent.
func Dir(p string) string {
	idx := strings.LastIndex(p, Separator)
	if idx < 0 {
		return ""
	}

	return p[:idx]
}

// Depth returns the number of path segments, used to order folder
// operations top-down (creates) or bottom-up (deletes).
func Depth(p string) int {
	if p == "" {
		return 0
	}

	return strings.Count(p, Separator) + 1
}

// IsWithin reports whether child is at or under the folder ancestor,
// used to elide a queued delete whose parent folder is already queued
// (applier §4.6 "Delete-Remote").
func IsWithin(ancestor, child string) bool {
	if ancestor == "" {
		return true
	}

	if child == ancestor {
		return true
	}

	return strings.HasPrefix(child, ancestor+Separator)
}

// ToRemotePath renders a canonical relative path as the absolute remote
// path the RemoteStore expects, rooted at remoteRoot. An empty relPath
// renders as "/" + remoteRoot, or as the empty string ("list from root")
// when remoteRoot is the account root.
func ToRemotePath(remoteRoot, relPath string) string {
	remoteRoot = strings.Trim(remoteRoot, Separator)

	switch {
	case remoteRoot == "" && relPath == "":
		return ""
	case remoteRoot == "":
		return Separator + relPath
	case relPath == "":
		return Separator + remoteRoot
	default:
		return Separator + remoteRoot + Separator + relPath
	}
}

// RelativeTo strips remoteRoot from an absolute path_display value
// returned by the remote listing, yielding the canonical relative path.
// Returns "" for the root itself (§4.3: "skipping the root itself").
func RelativeTo(remoteRoot, pathDisplay string) string {
	root := strings.Trim(remoteRoot, Separator)
	p := strings.Trim(pathDisplay, Separator)

	if p == root {
		return ""
	}

	if root == "" {
		return Clean(p)
	}

	trimmed := strings.TrimPrefix(p, root+Separator)

	return Clean(trimmed)
}

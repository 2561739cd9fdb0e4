package remap

import (
	"slices"

	"playlist-relinker/internal/pathmodel"
	"playlist-relinker/internal/playlist"
)

// DefaultDepth groups by drive plus top-level folder.
const DefaultDepth = 1

// Ref points at one parsed entry of a loaded playlist.
type Ref struct {
	File  *playlist.File
	Entry *playlist.Entry
}

// Path returns the entry's current path.
func (r Ref) Path() pathmodel.Path {
	return r.Entry.Path
}

// Refs collects the parsed entries of files in file and playlist order.
// Unparsed entries are not paths and are never grouped.
func Refs(files ...*playlist.File) []Ref {
	var refs []Ref
	for _, f := range files {
		if f == nil {
			continue
		}
		for _, e := range f.PathEntries() {
			refs = append(refs, Ref{File: f, Entry: e})
		}
	}
	return refs
}

// RootGroup is a set of entries sharing one root key.
type RootGroup struct {
	Key     string
	Root    pathmodel.Path // the root as written by the group's first member
	Members []Ref
}

// Files returns the distinct playlists that contribute to the group, in
// order of first appearance.
func (g RootGroup) Files() []*playlist.File {
	var files []*playlist.File
	seen := make(map[*playlist.File]bool)
	for _, m := range g.Members {
		if !seen[m.File] {
			seen[m.File] = true
			files = append(files, m.File)
		}
	}
	return files
}

// Group partitions refs by root key at the given depth. Members keep their
// input order within a group and groups are sorted by key using byte-wise
// comparison, so the result does not depend on the order files were loaded.
func Group(refs []Ref, depth int) []RootGroup {
	if len(refs) == 0 {
		return nil
	}

	index := make(map[string]int)
	var groups []RootGroup
	for _, ref := range refs {
		root := ref.Path().Root(depth)
		key := root.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, RootGroup{Key: key, Root: root})
		}
		groups[i].Members = append(groups[i].Members, ref)
	}

	slices.SortFunc(groups, func(a, b RootGroup) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return groups
}

// Drives returns the distinct upper-case drive letters used by the parsed
// entries of files, sorted.
func Drives(files []*playlist.File) []string {
	seen := make(map[string]bool)
	for _, ref := range Refs(files...) {
		if d := ref.Path().Drive(); d != "" {
			seen[d] = true
		}
	}
	drives := make([]string, 0, len(seen))
	for d := range seen {
		drives = append(drives, d)
	}
	slices.Sort(drives)
	return drives
}

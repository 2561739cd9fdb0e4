// Package remap clusters playlist entries by shared root and computes path
// substitutions for them.
//
// Grouping works across any number of loaded playlists: entries whose paths
// share a drive (or UNC volume) and the same leading folders land in one
// RootGroup, whichever file they came from. Groups are returned sorted by key
// and always form an exact partition of the input.
//
// Substitutions are computed first and applied later:
//
//	res := remap.ApplyRootSubstitution(group, oldRoot, newRoot)
//	for _, f := range res.Failures {
//		log.Printf("%s:%d: %v", f.File, f.Line, f.Err)
//	}
//	res.Commit()
//
// Nothing is modified until Commit is called, so a caller may show the
// pending changes and discard them.
//
// Drive swaps read every target letter from a snapshot of the mapping taken
// before any entry is touched, which makes cyclic mappings such as C→D, D→C
// safe.
package remap

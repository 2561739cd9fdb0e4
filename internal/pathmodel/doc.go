// Package pathmodel provides a structured, separator-agnostic representation
// of the file paths found inside playlists.
//
// Playlists written on different systems mix several path conventions:
//   - Drive-letter paths (e.g., C:\Music\Artist\track.mp3)
//   - UNC paths (e.g., \\server\share\Music\track.flac)
//   - POSIX absolute paths (e.g., /home/me/Music/track.ogg)
//   - Relative paths (e.g., ..\Music\track.mp3)
//
// A Path stores the drive or UNC volume, the absolute flag, the separator the
// path was written with, and its components. Prefix comparison and prefix
// replacement work on components rather than on raw strings, so a root written
// as "S:/Music" matches an entry written as "S:\Music\x.mp3".
//
// An unmodified Path always serializes back to the exact text it was parsed
// from, including case, doubled separators and mixed separators.
package pathmodel

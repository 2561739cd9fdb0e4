// Package playlist provides format-aware reading and writing of playlist files
// that preserves everything the relinker does not deliberately change.
//
// Currently supported formats:
//   - Plain text (.m3u, .m3u8, .fplite, .txt): one path per significant line
//   - Binary (.fpl): foobar2000 playlists, handled as an opaque record stream
//
// Plain-text handling keeps every byte of the original file:
//   - Each line keeps its own terminator (CRLF, LF, CR or none)
//   - A UTF-8 byte order mark is remembered and written back
//   - Files that are not valid UTF-8 are decoded as ISO-8859-1 and re-encoded
//     the same way on save
//   - Lines starting with "#" (e.g., #EXTM3U, #EXTINF) and blank lines are kept
//     verbatim and attached to the path line that follows them
//   - "file://" style URI prefixes and surrounding whitespace are kept around
//     the parsed path
//
// Lines that are not local file references, such as stream URLs, are kept
// verbatim and flagged with a ParseError instead of failing the whole file.
//
// The binary format is only partially understood. Path strings found in its
// string table are exposed as entries and may be rewritten in place as long as
// their encoded length does not change; every other byte is left untouched.
package playlist

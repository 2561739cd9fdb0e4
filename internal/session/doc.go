/*
Package session orchestrates relinking jobs: it loads playlists, groups their
entries by root, applies substitutions and writes the results back safely.

A Session never writes a playlist without first checking that the file on
disk still holds the bytes it loaded, and, unless the caller opts out, a
backup of those bytes is persisted before the overwrite. Files whose content
would not change are not written at all.

Batch operations (BatchDriveSwap, Relink) treat each file independently. A
failure to read, back up or write one file is reported in that file's
FileResult and the batch moves on; the context is checked between files.
Every save attempt, including failures, is recorded in the optional ledger
under a per-batch run ID.
*/
package session

// Package backup keeps the untouched bytes of a playlist before it is
// overwritten.
//
// Backups live in a folder (default "backup") beside the playlist. The first
// backup of rock.m3u8 is backup/rock.m3u8; later ones are named
// rock.20260301T120000Z.m3u8 and, within the same second,
// rock.20260301T120000Z-1.m3u8. Files are created exclusively so an older
// backup is never replaced, and backups are never deleted.
//
// Manager.Write refuses to touch a playlist unless it is given the Handle of
// a snapshot that is still on disk; the overwrite goes through
// filesystem.WriteFileAtomic.
package backup

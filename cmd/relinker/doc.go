// Command relinker repairs playlists from a terminal.
//
// It offers the operations of the API server as subcommands:
//
//	relinker scan                       list playlists in --dir
//	relinker groups                     show entries grouped by root
//	relinker preview --map OLD=NEW      show what a relink would change
//	relinker relink --map OLD=NEW       replace roots, with backups
//	relinker drives                     list drive letters in use
//	relinker swap-drives --map C=D      change drive letters, with backups
//	relinker backups PLAYLIST           list the backups of a playlist
//	relinker restore PLAYLIST BACKUP    put a backup back in place
//	relinker history                    show the save ledger
//
// Commands that take playlists read them from the arguments, or scan --dir
// when none are given. Commands that write ask for confirmation when stdin
// is a terminal, unless --yes is set.
//
// Flags default to the same environment variables as the server (SCAN_DIR,
// SCAN_RECURSIVE, GROUP_DEPTH, BACKUP_DIR_NAME, DATABASE_DIR, SCAN_WORKERS).
//
// Exit status is 0 on success, 1 for usage errors, 2 when some files could
// not be saved and 3 when the user declined.
package main

package commands

// Message constants
const (
	MsgRootShort = "Make a folder reproducible by specifying its contents in a manifest"
	MsgRootLong  = `refold materializes a directory from a declarative TOML manifest.
Every file names one or more sources (local files, http, git, sftp,
archives, inline text); refold fetches the first valid one, verifies
hash pins, applies the declared edits and writes the assembled folder
in one pass.`

	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagTags    = "Activate a tag (prefix with '!' to deactivate a default tag)"
	MsgFlagYes     = "Skip the confirmation prompt"
	MsgFlagSkip    = "Only replace the first-level entries the manifest tracks"
	MsgFlagKeys    = "Path to an age identity file for decryption (repeatable)"

	MsgSyncShort = "Sync a manifest to a destination folder"
	MsgSyncLong  = `Resolves the manifest for the requested tags and writes the resulting
folder to the destination. By default the destination is replaced
wholesale; with --skip-first-level only the first-level entries the
manifest declares are replaced and unrelated siblings survive.`
	MsgSyncExample = `  # Sync with the default tags
  refold sync manifest.toml ./out

  # Activate a tag, drop a default one
  refold sync manifest.toml ./out -t linux -t '!minimal'

  # Sync from a repository, pinned to a branch
  refold sync 'git@example.com:conf.git#main:manifest.toml' ./out`

	MsgConfigShort = "Sync a manifest into the user configuration directory"
	MsgConfigLong  = `Syncs into the XDG configuration directory (usually ~/.config),
always in skip-first-level mode so unrelated application folders are
left alone.`

	MsgCleanShort = "Remove what a previous sync created"
	MsgCleanLong  = `Deletes the destination folder. With --skip-first-level only the
first-level entries the manifest tracks are deleted, which requires
resolving the manifest first.`

	MsgCheckShort = "Verify that every active file can be built"
	MsgCheckLong  = `Fetches every active file of the manifest and verifies its hash pin.
Also reports whether the manifest is fully pinned, meaning its output
cannot change under it.`

	MsgShowShort = "Fetch a single source and print or save it"
	MsgListShort = "List the paths a sync would write"
	MsgTagsShort = "List the tags declared by a manifest tree"
	MsgHashShort = "Print the hash of a file, ready to paste into a manifest"

	MsgExampleShort = "Write an annotated example manifest"

	MsgNotConfirmed = "folder overwrite not confirmed"
	MsgCompleted    = "Operation completed"
)

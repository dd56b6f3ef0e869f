package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions

var initToolDef = mcp.NewTool("version_init",
	mcp.WithDescription("Create a capsule's version history with an initial version from a snapshot of files."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule to initialize."),
	),
	mcp.WithObject("files",
		mcp.Required(),
		mcp.Description("Map of relative file path to file content."),
	),
	mcp.WithString("documentation",
		mcp.Description("Markdown documentation bundled with the snapshot."),
	),
	mcp.WithObject("metadata",
		mcp.Description("Arbitrary metadata recorded on the initial version."),
	),
	mcp.WithString("author",
		mcp.Description("Author recorded on the initial version."),
	),
	mcp.WithString("message",
		mcp.Description("Message recorded on the initial version."),
	),
)

var commitToolDef = mcp.NewTool("version_commit",
	mcp.WithDescription("Commit a new snapshot of a capsule. Returns the new version, or the parent version when nothing changed."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithObject("files",
		mcp.Required(),
		mcp.Description("Map of relative file path to file content."),
	),
	mcp.WithString("documentation",
		mcp.Description("Markdown documentation bundled with the snapshot."),
	),
	mcp.WithObject("metadata",
		mcp.Description("Arbitrary metadata recorded on the version."),
	),
	mcp.WithString("parent",
		mcp.Description("Parent version id. Defaults to the HEAD of the current branch."),
	),
	mcp.WithString("branch",
		mcp.Description("Branch whose HEAD advances. Defaults to the current branch."),
	),
	mcp.WithString("author",
		mcp.Description("Author recorded on the version."),
	),
	mcp.WithString("message",
		mcp.Description("Commit message."),
	),
)

var showToolDef = mcp.NewTool("version_show",
	mcp.WithDescription("Fetch a single version by id, or the HEAD of the current branch when no id is given."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("version_id",
		mcp.Description("Version id. Defaults to the current branch HEAD."),
	),
)

var logToolDef = mcp.NewTool("version_log",
	mcp.WithDescription("List a capsule's versions most-recent first, optionally restricted to one branch's ancestry."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("branch",
		mcp.Description("Walk this branch's parent chain instead of listing all versions."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of versions to return."),
	),
)

var diffToolDef = mcp.NewTool("version_diff",
	mcp.WithDescription("Compute the file-level change set between two versions of a capsule."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("from",
		mcp.Required(),
		mcp.Description("Base version id."),
	),
	mcp.WithString("to",
		mcp.Required(),
		mcp.Description("Target version id."),
	),
)

var branchToolDef = mcp.NewTool("version_branch",
	mcp.WithDescription("Create a branch pointing at an existing version."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("name",
		mcp.Required(),
		mcp.Description("Name of the new branch."),
	),
	mcp.WithString("from",
		mcp.Description("Version id to branch from. Defaults to the current branch HEAD."),
	),
)

var branchesToolDef = mcp.NewTool("version_branches",
	mcp.WithDescription("List a capsule's branches with their HEAD versions."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
)

var tagToolDef = mcp.NewTool("version_tag",
	mcp.WithDescription("Attach a tag to a version. Re-tagging is a no-op."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("version_id",
		mcp.Required(),
		mcp.Description("Version to tag."),
	),
	mcp.WithString("tag",
		mcp.Required(),
		mcp.Description("Tag name, e.g. v1.0 or release."),
	),
	mcp.WithString("message",
		mcp.Description("Optional annotation stored with the tag."),
	),
)

var mergeToolDef = mcp.NewTool("version_merge",
	mcp.WithDescription("Three-way merge of a source version into a target version. Conflicts are annotated on the change set, never blocking."),
	mcp.WithString("capsule_id",
		mcp.Required(),
		mcp.Description("Identifier of the capsule."),
	),
	mcp.WithString("source",
		mcp.Required(),
		mcp.Description("Version id being merged in."),
	),
	mcp.WithString("target",
		mcp.Required(),
		mcp.Description("Version id being merged into. The merge version is appended on top of it."),
	),
	mcp.WithString("author",
		mcp.Description("Author recorded on the merge version."),
	),
	mcp.WithString("message",
		mcp.Description("Merge message. Defaults to 'Merge <source> into <target>'."),
	),
)

var capsulesToolDef = mcp.NewTool("version_capsules",
	mcp.WithDescription("List every capsule id known to the store."),
)

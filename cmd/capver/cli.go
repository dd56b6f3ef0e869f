package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dkeller9/capver/internal/capsule"
	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/engine"
	"github.com/dkeller9/capver/internal/errors"
	"github.com/dkeller9/capver/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(eng *engine.Engine, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "capver",
		Usage:   "Capsule version control",
		Version: Version,
		Commands: []*cli.Command{
			initCmd(eng),
			commitCmd(eng),
			showCmd(eng),
			logCmd(eng),
			diffCmd(eng),
			branchCmd(eng),
			branchesCmd(eng),
			tagCmd(eng),
			mergeCmd(eng),
			capsulesCmd(eng),
			serveCmd(eng, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// snapshotFlags are shared by init and commit.
func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Directory to snapshot (otherwise reads snapshot JSON from stdin)"},
		&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author recorded on the version"},
		&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Version message"},
	}
}

// readSnapshot builds a snapshot from --dir or from stdin JSON.
// The stdin document is {"files": {...}, "documentation": "...", "metadata": {...}}.
func readSnapshot(c *cli.Context) (*capsule.Snapshot, error) {
	if dir := c.String("dir"); dir != "" {
		return capsule.LoadDir(dir)
	}

	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("snapshot JSON must be piped via stdin, or pass --dir")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	snap := &capsule.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, errors.NewInvalidRequest("invalid snapshot JSON: " + err.Error())
	}
	return snap, nil
}

// initCmd creates the init command.
func initCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Create a capsule's history with an initial version",
		ArgsUsage: "<capsule-id>",
		Flags:     snapshotFlags(),
		Action: func(c *cli.Context) error {
			snap, err := readSnapshot(c)
			if err != nil {
				return outputError(err)
			}

			output, err := eng.Init(context.Background(), engine.InitInput{
				CapsuleID: c.Args().First(),
				Snapshot:  snap,
				Author:    c.String("author"),
				Message:   c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// commitCmd creates the commit command.
func commitCmd(eng *engine.Engine) *cli.Command {
	flags := append(snapshotFlags(),
		&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent version id (defaults to the current branch HEAD)"},
		&cli.StringFlag{Name: "branch", Aliases: []string{"b"}, Usage: "Branch whose HEAD advances"},
	)
	return &cli.Command{
		Name:      "commit",
		Usage:     "Commit a new snapshot of a capsule",
		ArgsUsage: "<capsule-id>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			snap, err := readSnapshot(c)
			if err != nil {
				return outputError(err)
			}

			output, err := eng.Commit(context.Background(), engine.CommitInput{
				CapsuleID: c.Args().First(),
				Snapshot:  snap,
				Parent:    c.String("parent"),
				Branch:    c.String("branch"),
				Author:    c.String("author"),
				Message:   c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a version (defaults to the current branch HEAD)",
		ArgsUsage: "<capsule-id> [version-id]",
		Action: func(c *cli.Context) error {
			output, err := eng.GetVersion(context.Background(), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// logCmd creates the log command.
func logCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "log",
		Usage:     "List versions most-recent first",
		ArgsUsage: "<capsule-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "branch", Aliases: []string{"b"}, Usage: "Walk this branch's parent chain"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum entries to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.GetHistory(context.Background(), engine.HistoryInput{
				CapsuleID: c.Args().First(),
				Branch:    c.String("branch"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"versions": output})
		},
	}
}

// diffCmd creates the diff command.
func diffCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show the change set between two versions",
		ArgsUsage: "<capsule-id> <from-version> <to-version>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 {
				return outputError(errors.NewInvalidRequest("capsule id and two version ids are required"))
			}

			output, err := eng.GetDiff(context.Background(), c.Args().Get(0), c.Args().Get(1), c.Args().Get(2))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"changes": output})
		},
	}
}

// branchCmd creates the branch command.
func branchCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "branch",
		Usage:     "Create a branch pointing at a version",
		ArgsUsage: "<capsule-id> <name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Aliases: []string{"f"}, Usage: "Version to branch from (defaults to the current branch HEAD)"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.CreateBranch(context.Background(), engine.BranchInput{
				CapsuleID: c.Args().Get(0),
				Name:      c.Args().Get(1),
				From:      c.String("from"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// branchesCmd creates the branches command.
func branchesCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "branches",
		Usage:     "List a capsule's branches",
		ArgsUsage: "<capsule-id>",
		Action: func(c *cli.Context) error {
			output, err := eng.ListBranches(context.Background(), c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"branches": output})
		},
	}
}

// tagCmd creates the tag command.
func tagCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Attach a tag to a version",
		ArgsUsage: "<capsule-id> <version-id> <tag>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Annotation stored with the tag"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.TagVersion(context.Background(), engine.TagInput{
				CapsuleID: c.Args().Get(0),
				VersionID: c.Args().Get(1),
				Tag:       c.Args().Get(2),
				Message:   c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// mergeCmd creates the merge command.
func mergeCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Three-way merge of a source version into a target version",
		ArgsUsage: "<capsule-id> <source-version> <target-version>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author recorded on the merge version"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Merge message"},
		},
		Action: func(c *cli.Context) error {
			output, err := eng.Merge(context.Background(), engine.MergeInput{
				CapsuleID: c.Args().Get(0),
				Source:    c.Args().Get(1),
				Target:    c.Args().Get(2),
				Author:    c.String("author"),
				Message:   c.String("message"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// capsulesCmd creates the capsules command.
func capsulesCmd(eng *engine.Engine) *cli.Command {
	return &cli.Command{
		Name:  "capsules",
		Usage: "List every capsule id in the store",
		Action: func(c *cli.Context) error {
			output, err := eng.ListCapsules(context.Background())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"capsules": output})
		},
	}
}

// serveCmd creates the serve command for the web UI.
func serveCmd(eng *engine.Engine, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8321, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(eng, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vcErr, ok := err.(*errors.VCError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vcErr.Code, vcErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

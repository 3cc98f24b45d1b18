// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-run setup of the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the local database",
		Action: r.Setup,
	}
}

// loginCommand runs the GitHub OAuth login through the backend.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with GitHub",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "Authorization code from the callback URL (skips the browser)",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the login URL instead of opening a browser",
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the backend session and forget the stored cookie",
		Action: r.Logout,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in user",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.WhoAmI,
	}
}

// authCommand handles session inspection and manual session import.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the stored session",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show identity and session cookie expiry",
				Action: r.AuthStatus,
			},
			{
				Name:  "import",
				Usage: "Import the session cookie from a browser 'Copy as cURL' file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.AuthImport,
			},
		},
	}
}

// listCommand renders one dashboard page.
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls", "dashboard"},
		Usage:   "List your tutorials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "search",
				Aliases: []string{"s"},
				Usage:   "Filter by title",
			},
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Page number",
				Value:   1,
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Only tutorials created on or after this date (YYYY-MM-DD)",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Only tutorials created on or before this date (YYYY-MM-DD)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON (default when stdout is not a terminal)",
			},
		},
		Action: r.List,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show a tutorial",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, md or json",
				Value:   "txt",
			},
		},
		Action: r.Show,
	}
}

func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Change a tutorial's title or content",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Usage: "New title",
			},
			&cli.StringFlag{
				Name:  "content",
				Usage: "New content",
			},
			&cli.StringFlag{
				Name:  "content-file",
				Usage: "Read new content from a file (- for stdin)",
			},
		},
		Action: r.Edit,
	}
}

func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload a JSON transcript and generate a tutorial from it",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "path"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the generated tutorial as JSON",
			},
		},
		Action: r.Upload,
	}
}

// exportCommand writes every tutorial to disk.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export all tutorials to files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: tutorials_export_{epoch})",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "File format: md, txt or json",
				Value:   "md",
			},
			&cli.StringFlag{
				Name:    "search",
				Aliases: []string{"s"},
				Usage:   "Only export tutorials matching this title search",
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip tutorials already exported to the same format",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file writers (default from config)",
			},
		},
		Action: r.Export,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authenticated GET, prints the raw response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive TUI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "route",
				Usage: "Start route, e.g. /upload or /tutorial/{id}",
				Value: "/dashboard",
			},
		},
		Action: r.TUI,
	}
}

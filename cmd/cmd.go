// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func pathArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "path"}}
}

// setupCommand handles setup operations for the database, config file and credentials.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "rollback", Usage: "Undo the most recent migration"},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config file, optionally overriding API and OIDC settings",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "api-url", Usage: "Base URL of the club API"},
					&cli.StringFlag{Name: "issuer", Usage: "OIDC issuer URL"},
					&cli.StringFlag{Name: "client-id", Usage: "OIDC client ID"},
					&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config file"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "token",
				Usage: "Store a bearer token lifted from a browser request",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupToken,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with the OIDC provider (authorization code + PKCE)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: 5 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the signed in member and token expiry",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "token",
				Usage:  "Print a valid access token, refreshing it if needed",
				Action: r.AuthToken,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the response body",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct write with a JSON body",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "method",
						Aliases: []string{"X"},
						Usage:   "HTTP method",
						Value:   "POST",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// browseCommand prints one resource
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "browse",
		Aliases:   []string{"get", "show"},
		Usage:     "Fetch a resource and print its attributes, links and forms",
		Arguments: pathArg(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, markdown, csv, json or raw",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:  "rel",
				Usage: "Embedded relation exported by the csv format",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.Browse,
	}
}

// formCommand inspects and submits HAL-FORMS templates
func formCommand(r *Runner) *cli.Command {
	templateFlag := &cli.StringFlag{
		Name:    "template",
		Aliases: []string{"t"},
		Usage:   "Template key (default: the resource's primary template)",
	}

	return &cli.Command{
		Name:  "form",
		Usage: "Inspect and submit forms",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "List the fields of a form",
				Arguments: pathArg(),
				Flags:     []cli.Flag{templateFlag},
				Action:    r.FormShow,
			},
			{
				Name:      "submit",
				Usage:     "Fill and submit a form",
				Arguments: pathArg(),
				Flags: []cli.Flag{
					templateFlag,
					&cli.StringSliceFlag{
						Name:    "set",
						Aliases: []string{"s"},
						Usage:   "Field assignment name=value (repeatable; nested names use dots)",
					},
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON object applied before --set",
					},
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Prompt for every field",
					},
				},
				Action: r.FormSubmit,
			},
		},
	}
}

// dumpCommand crawls the API
func dumpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "Crawl the link graph from a resource and print or export it",
		Arguments: pathArg(),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Levels of links to follow, 0 for the resource alone (-1: crawler.max_depth)",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "max",
				Usage: "Stop after this many resources (0: unbounded)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Save the link graph to this file",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Export every resource: json, csv, markdown or txt",
			},
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Export directory (default: halx_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent export workers",
				Value: 5,
			},
		},
		Action: r.Dump,
	}
}

// historyCommand lists and clears recorded navigation
func historyCommand(r *Runner) *cli.Command {
	sessionFlag := &cli.StringFlag{
		Name:  "session",
		Usage: "Only this browsing session",
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Navigation history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List visited resources",
				Flags: []cli.Flag{
					sessionFlag,
					&cli.IntFlag{Name: "limit", Usage: "Most recent entries to show", Value: 50},
				},
				Action: r.HistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Delete history",
				Flags:  []cli.Flag{sessionFlag},
				Action: r.HistoryClear,
			},
		},
	}
}

// cacheCommand manages resources stored by the crawler
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Locally cached resources",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached resources",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: "collection, item, form or unrecognized"},
					&cli.StringFlag{Name: "prefix", Usage: "Only hrefs starting with this prefix"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum entries to show", Value: 100},
				},
				Action: r.CacheList,
			},
			{
				Name:      "show",
				Usage:     "Print a cached body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "href"}},
				Action:    r.CacheShow,
			},
			{
				Name:  "clear",
				Usage: "Delete cached resources",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Only entries fetched longer ago than this",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch interactive TUI for browsing and submitting forms",
		Arguments: pathArg(),
		Action:    r.TUI,
	}
}

// serveCommand serves the HTML browser.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"web"},
		Usage:   "Serve the API as HTML pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default: web.host)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default: web.port)"},
			&cli.BoolFlag{Name: "open", Usage: "Open the root page in a browser"},
		},
		Action: r.Serve,
	}
}

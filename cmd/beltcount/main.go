// Command beltcount counts colored objects crossing a line in a conveyor video.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig   = "config"
	flagInput    = "input"
	flagOutput   = "output"
	flagLog      = "log"
	flagDB       = "db"
	flagPolicy   = "policy"
	flagLineY    = "line-y"
	flagDisplay  = "display"
	flagTray     = "tray"
	flagHTTP     = "http"
	flagStatic   = "static"
	flagLogLevel = "log-level"
	flagLimit    = "limit"
)

func main() {
	app := &cli.App{
		Name:  "beltcount",
		Usage: "count colored objects crossing a line on a conveyor belt",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "process a video and write the annotated copy and crossing log",
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:  "runs",
				Usage: "inspect stored run history",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDB, Usage: "run history database", Required: true},
				},
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list recent runs",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: flagLimit, Usage: "maximum runs to show, 0 for all", Value: 20},
						},
						Action: listRunsAction,
					},
					{
						Name:      "show",
						Usage:     "show one run and its crossings",
						ArgsUsage: "<run-id>",
						Action:    showRunAction,
					},
					{
						Name:      "delete",
						Usage:     "delete a run and its crossings",
						ArgsUsage: "<run-id>",
						Action:    deleteRunAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "beltcount: %v\n", err)
		os.Exit(1)
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "YAML settings file"},
		&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Usage: "input video path"},
		&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "annotated output video path, empty to skip"},
		&cli.StringFlag{Name: flagLog, Usage: "crossing log path"},
		&cli.StringFlag{Name: flagDB, Usage: "record the run in this SQLite database"},
		&cli.StringFlag{Name: flagPolicy, Usage: "counting policy: per_frame or edge"},
		&cli.IntFlag{Name: flagLineY, Usage: "detection line row, 0 for half the frame height"},
		&cli.BoolFlag{Name: flagDisplay, Usage: "show annotated frames in a window, q to stop"},
		&cli.BoolFlag{Name: flagTray, Usage: "show the count in the system tray"},
		&cli.StringFlag{Name: flagHTTP, Usage: "serve the live view and metrics on this address, e.g. :8080"},
		&cli.StringFlag{Name: flagStatic, Usage: "directory of static files for the live view"},
		&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn, or error"},
	}
}

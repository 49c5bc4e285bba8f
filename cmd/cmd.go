// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func policyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "policy",
		Aliases: []string{"p"},
		Usage:   "Sync policy: unconditional or critical (defaults to sync.policy)",
	}
}

// serveCommand starts the webhook listener
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Listen for Asana webhook deliveries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to bind (defaults to server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (defaults to server.port or PORT)",
			},
			&cli.BoolFlag{
				Name:  "sync",
				Usage: "Process deliveries before responding instead of in the background",
			},
			policyFlag(),
		},
		Action: r.Serve,
	}
}

// syncCommand runs one sync pass by hand
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy a parent task's priority to its subtasks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "parent",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "subtask",
				Aliases: []string{"s"},
				Usage:   "Only update this subtask",
			},
			policyFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "no-record",
				Usage: "Do not write the run to the audit log",
			},
		},
		Action: r.Sync,
	}
}

// inspectCommand shows what each policy would do with a task
func inspectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show a task's priority field and the gate result under each policy",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "task",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Inspect,
	}
}

// historyCommand lists the sync audit log
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded subtask writes and skipped runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of records",
				Value:   50,
			},
			&cli.StringFlag{
				Name:  "parent",
				Usage: "Only records for this parent task",
			},
			&cli.StringFlag{
				Name:  "delivery",
				Usage: "Only records written while processing this delivery",
			},
			&cli.StringFlag{
				Name:  "outcome",
				Usage: "Only records with this outcome (updated, failed, skipped_gate_declined, ...)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: csv, json or text (default: table)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to this file instead of stdout",
			},
		},
		Action: r.History,
	}
}

// deliveriesCommand lists recorded webhook deliveries
func deliveriesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "deliveries",
		Usage: "List recorded webhook deliveries",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of deliveries",
				Value:   20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Deliveries,
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the audit database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

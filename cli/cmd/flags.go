// Package cmd builds the command line entrypoint shared by slave programs.
package cmd

import "github.com/urfave/cli/v2"

// Flag names. The single letter forms are what controllers pass.
const (
	flagCmdFD     = "c"
	flagNotifyFD  = "n"
	flagLogLevel  = "l"
	flagTimestamp = "t"
	flagConfig    = "config"
	flagMaxBlob   = "max-blob"
)

// SlaveFlags returns the flags every slave accepts.
func SlaveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    flagCmdFD,
			Aliases: []string{"cmd-fd"},
			Usage:   "Command channel descriptor (required)",
			Value:   -1,
		},
		&cli.IntFlag{
			Name:    flagNotifyFD,
			Aliases: []string{"notify-fd"},
			Usage:   "Notification channel descriptor (required)",
			Value:   -1,
		},
		&cli.IntFlag{
			Name:    flagLogLevel,
			Aliases: []string{"log-level"},
			Usage:   "Log level: 1 crit, 2 err, 3 warn, 4 info, 5 debug",
		},
		&cli.BoolFlag{
			Name:    flagTimestamp,
			Aliases: []string{"timestamps"},
			Usage:   "Add timestamps to log entries",
		},
		&cli.StringFlag{
			Name:  flagConfig,
			Usage: "Path to YAML config file",
		},
		&cli.StringFlag{
			Name:  flagMaxBlob,
			Usage: "Largest accepted blob per buffer (e.g. 4M); 0 selects the 16M default",
		},
	}
}

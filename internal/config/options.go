package config

import (
	"errors"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Options are the command-line flags. Set flags take precedence over the
// config file.
type Options struct {
	Config  string `long:"config" short:"c" env:"PLUSPRESS_CONFIG" default:"config.yaml" description:"Path to the config file"`
	UserID  string `long:"user-id" env:"PLUSPRESS_USER_ID" description:"Feed user whose activities are mirrored (overrides feed.user_id)"`
	Once    bool   `long:"once" description:"Run a single sync and exit"`
	DryRun  bool   `long:"dry-run" description:"Log what would be published without writing to the blog"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
}

// ParseOptions parses args. It returns nil options and no error when help
// was requested.
func ParseOptions(args []string) (*Options, error) {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parse options: %w", err)
	}

	return &opts, nil
}

func (c *Config) Apply(opts *Options) {
	if opts.UserID != "" {
		c.Feed.UserID = opts.UserID
	}
	if opts.Once {
		c.Sync.Interval = 0
	}
	if opts.DryRun {
		c.Sync.DryRun = true
	}
	if opts.Verbose {
		c.LogLevel = "debug"
	}
}

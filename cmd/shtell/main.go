package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"SHTELL_CONFIG" description:"config file, defaults if not set"`
	Rules  string `short:"r" long:"rules" env:"SHTELL_RULES" description:"rules file, overrides the config"`
	Apply  bool   `long:"apply" description:"write changes to storage, dry-run otherwise"`
	JSON   bool   `long:"json" description:"print results as JSON"`
	Limit  int    `long:"limit" default:"0" description:"max records loaded per policy or source, 0 for all"`

	Curate     CurateCmd     `command:"curate" description:"clean up content of sources with cleanup policies"`
	Games      GamesCmd      `command:"games" description:"review mobile compatibility of games"`
	Categorize CategorizeCmd `command:"categorize" description:"assign category, subcategory and tags"`
	Archive    ArchiveCmd    `command:"archive" description:"assess internet archive collections"`
	Enhance    EnhanceCmd    `command:"enhance" description:"fill missing metadata and AI summaries"`
	Ingest     IngestCmd     `command:"ingest" description:"ingest new items of feed sources"`
	Status     StatusCmd     `command:"status" description:"show record counts by category and status"`
	Serve      ServeCmd      `command:"serve" description:"run read-only HTTP API"`

	// common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

// CurateCmd runs cleanup policies
type CurateCmd struct {
	Policies []string `short:"p" long:"policy" description:"policy name, all cleanup policies if not set"`
}

// GamesCmd runs the compatibility review
type GamesCmd struct {
	Policy   string `short:"p" long:"policy" default:"webgames" description:"compatibility policy"`
	Category string `long:"category" default:"webgames" description:"category of reviewed records"`
	Status   string `long:"status" default:"desktop-only" description:"status of reviewed records, all for any"`
}

// CategorizeCmd classifies records of sources
type CategorizeCmd struct {
	Sources []string `short:"s" long:"source" description:"source name, all sources with rules if not set"`
}

// ArchiveCmd runs archive policies
type ArchiveCmd struct {
	Policies []string `short:"p" long:"policy" description:"policy name, all archive policies if not set"`
}

// EnhanceCmd fills metadata of records
type EnhanceCmd struct {
	Sources    []string `short:"s" long:"source" description:"source name"`
	Categories []string `long:"category" description:"category name"`
}

// IngestCmd collects new items of feeds
type IngestCmd struct {
	Feeds []string `short:"f" long:"feed" description:"feed name, all configured feeds if not set"`
}

// StatusCmd reports counts
type StatusCmd struct {
	Sources    []string `short:"s" long:"source" description:"source name"`
	Categories []string `long:"category" description:"category name"`
}

// ServeCmd runs the HTTP API
type ServeCmd struct {
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides the config"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	setupLog(opts.Debug)
	lgr.Printf("[DEBUG] starting shtell version %s, command %s", revision, parser.Active.Name)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts, parser.Active.Name, os.Stdout)
	cancel()

	if err != nil {
		lgr.Printf("[ERROR] %s failed: %v", parser.Active.Name, err)
		os.Exit(1)
	}
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer), lgr.Out(os.Stderr), lgr.Err(os.Stderr))
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

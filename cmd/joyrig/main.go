// Package main is the entry point for the joyrig daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joyrig/joyrig/internal/app"
	"github.com/joyrig/joyrig/internal/profile"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, check := parseFlags()

	if check != "" {
		return runCheck(check)
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		application.Shutdown()
	}()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runCheck validates a profile file and reports its issues without
// starting the daemon.
func runCheck(path string) int {
	p, issues, err := profile.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", issue)
	}
	fmt.Printf("%s: %d modes, %d bindings, %d actions\n",
		p.Name, len(p.Modes), len(p.Bindings), p.Library.Len())
	if len(issues) > 0 {
		return 1
	}
	return 0
}

func parseFlags() (app.Options, string) {
	var opts app.Options
	var check string
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.Profile, "profile", "", "Profile file, overrides the configured one")
	flag.StringVar(&opts.Profile, "p", "", "Profile file (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&check, "check", "", "Validate a profile file and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "joyrig - controller input remapping daemon\n\n")
		fmt.Fprintf(os.Stderr, "Usage: joyrig [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  joyrig                          Run with defaults\n")
		fmt.Fprintf(os.Stderr, "  joyrig -c joyrig.toml           Run with a configuration file\n")
		fmt.Fprintf(os.Stderr, "  joyrig -p sim.yaml              Run a specific profile\n")
		fmt.Fprintf(os.Stderr, "  joyrig -check sim.yaml          Validate a profile\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("joyrig %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.LogLevel != "" {
		switch opts.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
			os.Exit(1)
		}
	}

	return opts, check
}

// Package cmd implements the miniapp CLI commands.
//
// A root command dispatches to subcommands (simulate, probe, features)
// that register themselves from init.
package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/go-drift/miniapp/cmd/miniapp/internal/config"
	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/privacylog"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(g *Globals, args []string) error
	SubCommands []*Command
}

// Globals holds settings shared by every command.
type Globals struct {
	ConfigDir string
	Verbose   bool
}

var rootCmd = &Command{
	Name:  "miniapp",
	Short: "miniapp - Mini App bridge tooling",
	Long: `miniapp runs a simulated Mini App host and drives the bridge
runtime against it. Use it to try the bridge without a real
container or to check what a given host API version supports.

Use "miniapp <command> --help" for more information about a command.`,
	Usage: "miniapp <command> [flags]",
}

var commands = make(map[string]*Command)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// Execute runs the CLI with the given arguments.
func Execute() error {
	return execute(os.Args[1:])
}

func execute(args []string) error {
	if len(args) == 0 {
		printHelp(rootCmd)
		return nil
	}

	g := &Globals{}
	var filtered []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help", "help":
			if len(filtered) == 0 {
				printHelp(rootCmd)
				return nil
			}
			filtered = append(filtered, arg)
		case "-v", "--version", "version":
			if len(filtered) == 0 {
				fmt.Printf("miniapp version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filtered = append(filtered, arg)
		case "--verbose":
			g.Verbose = true
		case "--config-dir":
			if i+1 >= len(args) {
				return fmt.Errorf("--config-dir requires a directory path")
			}
			g.ConfigDir = args[i+1]
			i++
		default:
			filtered = append(filtered, arg)
		}
	}
	if len(filtered) == 0 {
		printHelp(rootCmd)
		return nil
	}

	name := filtered[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", name)
		printHelp(rootCmd)
		return fmt.Errorf("unknown command: %s", name)
	}

	cmdArgs := filtered[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(cmd)
			return nil
		}
	}
	return cmd.Run(g, cmdArgs)
}

// LoadConfig reads miniapp.yaml from --config-dir or the project root.
func (g *Globals) LoadConfig() (*config.Config, error) {
	dir := g.ConfigDir
	if dir == "" {
		root, err := config.FindProjectRoot()
		if err != nil {
			return nil, err
		}
		dir = root
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// Logger builds the CLI logger and installs it as the bridge and error
// handler default. Sensitive fields are redacted.
func (g *Globals) Logger() (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.DisableStacktrace = true
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if g.Verbose {
		zcfg.Level.SetLevel(zapcore.DebugLevel)
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	l = privacylog.Wrap(l)
	bridge.SetLogger(l)
	errors.SetHandler(&errors.LogHandler{Logger: l, Verbose: g.Verbose})
	return l, nil
}

func printHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
	fmt.Println()
	fmt.Println("Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Printf("  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -h, --help           Show help for a command")
	fmt.Println("  -v, --version        Show version information")
	fmt.Println("  --config-dir DIR     Read miniapp.yaml from DIR (default: project root)")
	fmt.Println("  --verbose            Log every frame")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  MINIAPP_ADDR         Simulator listen address")
	fmt.Println("  MINIAPP_VERSION      Simulated host API version")
	fmt.Println("  MINIAPP_PLATFORM     Simulated host platform")
	fmt.Println("  MINIAPP_CALL_TIMEOUT Bridge call timeout (e.g. 5s)")
	fmt.Println("  MINIAPP_RATE_LIMIT   Outbound calls per second per method")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  miniapp simulate                 Serve a simulated host")
	fmt.Println("  miniapp probe                    Drive the bridge against it")
	fmt.Println("  miniapp features 7.10            Show what API 7.10 supports")
}

func printCommandHelp(cmd *Command) {
	fmt.Println(cmd.Long)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s\n", cmd.Usage)
}

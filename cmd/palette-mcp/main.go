package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/subject-palette/internal/config"
	"github.com/ironsheep/subject-palette/internal/imaging"
	"github.com/ironsheep/subject-palette/internal/pipeline"
	"github.com/ironsheep/subject-palette/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := ""

	// Handle --version, --help and --config
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v", "version":
			fmt.Printf("palette-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("palette-mcp - MCP server for subject color palettes")
			fmt.Println()
			fmt.Println("Usage: palette-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --config <file>  YAML configuration file")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PALETTE_LOG_LEVEL=debug      Enable debug logging")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client.")
			return
		case "--config", "-c":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "palette-mcp: --config needs a file argument")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		default:
			fmt.Fprintf(os.Stderr, "palette-mcp: unknown option %s\n", args[i])
			os.Exit(2)
		}
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "palette-mcp: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	logLevel := cfg.Log.SlogLevel()
	if os.Getenv("PALETTE_LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Debug("palette MCP server starting",
		"version", Version,
		"built", BuildTime,
		"commit", GitCommit)

	srv := server.New(pipeline.FromConfig(cfg, logger), imaging.NewImageCache(), logger)
	srv.SetVersion(Version)
	if cfg.Cache.ClearSchedule != "" {
		if err := srv.ScheduleCacheClear(cfg.Cache.ClearSchedule); err != nil {
			logger.Error("invalid cache schedule", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

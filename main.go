package main

import (
	"fmt"
	"os"
	"strings"

	"postwall/app/config"
	"postwall/app/logger"
	"postwall/service"

	"go.uber.org/zap"
)

const CliVersion = "1.0.0"

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain dispatches the subcommand in os.Args.
func RealMain() {
	if len(os.Args) < 2 {
		printHelp()
		exit(1)
		return
	}

	switch strings.ToLower(os.Args[1]) {
	case "help":
		printHelp()
	case "version":
		fmt.Printf("postwall version %s\n", CliVersion)
	case "serve":
		serve()
	case "db":
		cfg := config.Load()
		if code := service.HandleDBCommand(cfg.DBPath, os.Args[2:]); code != 0 {
			exit(code)
		}
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		exit(1)
	}
}

func printHelp() {
	fmt.Println(`Usage: postwall <command> [options]
Commands:
  help                           Display this help message.
  version                        Show version information.
  serve                          Run the HTTP API (configured through the environment or .env).
  db <init|clean|backup|restore> Maintain the Badger database at DB_PATH.`)
}

func serve() {
	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exit(1)
		return
	}
	defer log.Sync()

	if err := service.RunAppServer(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		exit(1)
	}
}

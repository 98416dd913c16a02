package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abrezinsky/derbyrush/internal/app"
	"github.com/abrezinsky/derbyrush/internal/config"
	"github.com/abrezinsky/derbyrush/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

var (
	version = "dev"
)

// showLogo prints the DerbyRush banner
func showLogo() {
	width := 58
	border := ""
	for i := 0; i < width; i++ {
		border += "═"
	}

	logo := []string{
		`    ____            _          ____            _      `,
		`   |  _ \  ___ _ __| |__  _   _|  _ \ _   _ ___| |__   `,
		`   | | | |/ _ \ '__| '_ \| | | | |_) | | | / __| '_ \  `,
		`   | |_| |  __/ |  | |_) | |_| |  _ <| |_| \__ \ | | | `,
		`   |____/ \___|_|  |_.__/ \__, |_| \_\\__,_|___/_| |_| `,
		`                          |___/                        `,
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range logo {
		for len(line) < width {
			line += " "
		}
		fmt.Printf("  %s║%s%s%s║%s\n", cyan, yellow, line, cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $DERBYRUSH_CONFIG)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (overrides config)")
	finishLine := flag.Int("finish", 0, "Finish line position (overrides config)")
	openBrowser := flag.Bool("open", false, "Open the host display in the local browser")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `DerbyRush - Tap-to-Race Party Game Server

Usage:
  derbyrush [options]

Options:
  -config str    Path to YAML config file (default $DERBYRUSH_CONFIG)
  -addr str      HTTP listen address, e.g. :3000
  -loglevel str  Log level: debug, info, warn, error
  -finish int    Finish line position (100 short track, 300 long track)
  -open          Open the host display in the local browser
  -version       Show version and exit
  -help          Show this help message

Environment:
  DERBYRUSH_*    Any config key, e.g. DERBYRUSH_FINISH_LINE=300

Examples:
  derbyrush                          # Run on :3000 with a 100-step track
  derbyrush -addr :8080              # Run on port 8080
  derbyrush -finish 300              # Long track
  derbyrush -config derby.yaml       # Load settings from a file

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("derbyrush %s\n", version)
		os.Exit(0)
	}

	showLogo()

	path := *configPath
	if path == "" {
		path = config.EnvConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Flags win over file and env
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *finishLine > 0 {
		cfg.FinishLine = *finishLine
	}
	if *openBrowser {
		cfg.OpenBrowser = true
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	a := app.New(appLog, cfg)
	defer a.Close()

	if err := a.Run(); err != nil {
		log.Fatal(err)
	}
}

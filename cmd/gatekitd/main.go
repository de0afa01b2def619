// Package main is the entry point for gatekitd, the chat-gateway
// dispatcher runtime.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ashlock/gatekit/internal/audit"
	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/buildinfo"
	"github.com/ashlock/gatekit/internal/commands"
	"github.com/ashlock/gatekit/internal/config"
	"github.com/ashlock/gatekit/internal/kernel"
	"github.com/ashlock/gatekit/internal/parser"
	"github.com/ashlock/gatekit/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "serve":
			runServe(logger, *configPath)
		case "check":
			runCheck(logger, *configPath)
		case "version":
			fmt.Println(buildinfo.String())
			for k, v := range buildinfo.BuildInfo() {
				fmt.Printf("  %-12s %s\n", k+":", v)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
			os.Exit(1)
		}
		return
	}

	fmt.Println("gatekitd - chat gateway command dispatcher")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Connect to the gateway and start dispatching")
	fmt.Println("  check    Load and validate the config file, then exit")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func loadConfig(logger *slog.Logger, configPath string) *config.Config {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	logger.Info("config loaded", "path", cfgPath)
	return cfg
}

func runCheck(logger *slog.Logger, configPath string) {
	cfg := loadConfig(logger, configPath)
	if _, err := config.LoadFuzzyDict(cfg.FuzzyDictPath); err != nil {
		logger.Error("fuzzy dict invalid", "error", err)
		os.Exit(1)
	}
	fmt.Printf("config OK: connect_url=%s bot_name=%s\n", cfg.ConnectURL(), cfg.BotName)
}

func runServe(logger *slog.Logger, configPath string) {
	logger.Info("starting gatekitd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg := loadConfig(logger, configPath)

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	fuzzy, err := config.LoadFuzzyDict(cfg.FuzzyDictPath)
	if err != nil {
		logger.Error("failed to load fuzzy dict", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.AuditDBPath), 0o755); err != nil {
		logger.Error("failed to create audit db directory", "error", err)
		os.Exit(1)
	}
	auditStore, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		logger.Error("failed to open audit db", "path", cfg.AuditDBPath, "error", err)
		os.Exit(1)
	}
	defer auditStore.Close()

	p, err := parser.New(parser.Config{
		Start:         cfg.CommandStart,
		PriorityStart: cfg.PriorityCommandStart,
		Separators:    cfg.CommandSep,
	})
	if err != nil {
		logger.Error("invalid command-parsing config", "error", err)
		os.Exit(1)
	}

	authChecker := auth.NewChecker(auth.Config{
		OwnerID:       cfg.Owner,
		SuperUsers:    cfg.SuperUser,
		WhiteList:     cfg.WhiteList,
		BlackList:     cfg.BlackList,
		AllowedGroups: cfg.WhiteGroupList,
	})
	noticeChecker := auth.NewNoticeChecker(auth.Config{
		OwnerID:    cfg.Owner,
		SuperUsers: cfg.SuperUser,
		WhiteList:  cfg.WhiteList,
		BlackList:  cfg.BlackList,
	})

	reg := registry.New()
	profileURL := fmt.Sprintf("https://github.com/ashlock/gatekit#%s", cfg.BotName)
	builtins := []*registry.Descriptor{
		commands.Echo(),
		commands.SystemEcho(),
		commands.Help(),
		commands.Info(commands.InfoConfig{BotName: cfg.BotName, ProfileURL: profileURL}),
		commands.Poke(),
		commands.Status(),
	}
	for _, d := range builtins {
		if err := reg.Register(d); err != nil {
			logger.Error("failed to register built-in command", "command", d.Name, "error", err)
			os.Exit(1)
		}
	}
	if err := reg.PreloadAll(); err != nil {
		logger.Error("preload failed", "error", err)
		os.Exit(1)
	}

	workingTime, workingTimeOK := cfg.WorkingTime()

	k, err := kernel.New(kernel.Config{
		ConnectURL:       cfg.ConnectURL(),
		Cooldown:         cfg.CooldownTime(),
		WorkQueueLen:     cfg.WorkQueueLen,
		PriorityQueueLen: cfg.PriorityQueueLen,
		KernelTimeout:    cfg.KernelTimeout(),
		TaskTimeout:      cfg.TaskTimeout(),
		WorkingTime:      workingTime,
		WorkingTimeOK:    workingTimeOK,

		Registry:      reg,
		AuthChecker:   authChecker,
		NoticeChecker: noticeChecker,
		Parser:        p,
		Fuzzy:         fuzzy,
		Audit:         &audit.DispatchSink{Store: auditStore, Logger: logger},

		SnowflakeDatacenterID: cfg.SnowflakeDatacenterID,
		SnowflakeWorkerID:     cfg.SnowflakeWorkerID,

		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to construct kernel", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		k.Stop()
	}()

	if err := k.Run(ctx); err != nil {
		logger.Error("kernel stopped with an error", "error", err)
		os.Exit(1)
	}
	logger.Info("gatekitd stopped")
}

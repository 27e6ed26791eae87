package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BranchIntl/silex/config"
)

const usage = `silex: a queue-backed background worker

Usage:
  silex push [options] message...
  silex consume [options]

Run "silex <command> -h" for the options of a command.

Example:
  silex push -queue=test "message: 0" "message: 1"
  silex consume -queue=test -workers=4
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "push":
		err = push(os.Args[2:])
	case "consume":
		err = consume(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "silex: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand and override the config file
type commonFlags struct {
	configPath string
	broker     string
	queue      string
	logLevel   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", os.Getenv("SILEX_CONFIG"), "path to a YAML config file")
	fs.StringVar(&c.broker, "broker", "", "broker type: redis, rabbitmq or memory")
	fs.StringVar(&c.queue, "queue", "", "queue name")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
}

func (c *commonFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}

	if c.broker != "" {
		cfg.Broker = config.BrokerType(c.broker)
	}
	if c.queue != "" {
		cfg.Engine.Queue = c.queue
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func push(args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	timeout := fs.Duration("timeout", 15*time.Second, "overall timeout for the push")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return fmt.Errorf("push: no messages given")
	}

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	broker, err := cfg.NewBroker()
	if err != nil {
		return err
	}
	if err := broker.Connect(ctx); err != nil {
		return err
	}
	defer broker.Close()

	for _, message := range fs.Args() {
		if err := broker.Push(ctx, cfg.Engine.Queue, message); err != nil {
			return err
		}
	}

	logger.Info("Pushed messages", "queue", cfg.Engine.Queue, "count", fs.NArg(), "broker", broker.Type())
	return nil
}

func consume(args []string) error {
	fs := flag.NewFlagSet("consume", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	workers := fs.Int("workers", -1, "number of workers, 0 for the CPU based default")
	exitOnEmpty := fs.Bool("exit-on-empty", false, "exit once the queue is drained")
	fs.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	if *workers >= 0 {
		cfg.Engine.Workers = *workers
	}
	if *exitOnEmpty {
		cfg.Engine.ExitOnEmpty = true
	}

	engine, err := cfg.NewEngine(printMessage, logger)
	if err != nil {
		return err
	}

	return engine.Run(context.Background())
}

func printMessage(ctx context.Context, message string) error {
	fmt.Printf("receive message: %s\n", message)
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/erpnext-gateway/cmd/gatewayctl/cli"
	"github.com/odyssey-erp/erpnext-gateway/internal/app"
)

const usage = `usage:
  gatewayctl jobs stats [--json]
  gatewayctl jobs resubmit --doctype "Payment Entry" --name ACC-PAY-0001`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 || args[0] != "jobs" {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobsCLI := cli.NewJobsCLI(cfg.RedisOptions().AsynqOpt())
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			slog.Default().Warn("close jobs cli", slog.Any("error", err))
		}
	}()

	switch args[1] {
	case "stats":
		fs := flag.NewFlagSet("jobs stats", flag.ContinueOnError)
		jsonOut := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		return jobsCLI.StatsCommand(ctx, cli.StatsOptions{JSONOutput: *jsonOut})
	case "resubmit":
		fs := flag.NewFlagSet("jobs resubmit", flag.ContinueOnError)
		doctype := fs.String("doctype", "", "document type, Supplier Quotation or Payment Entry")
		name := fs.String("name", "", "document name")
		if err := fs.Parse(args[2:]); err != nil {
			return 2
		}
		return jobsCLI.ResubmitCommand(ctx, cli.ResubmitOptions{Doctype: *doctype, Name: *name})
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
}

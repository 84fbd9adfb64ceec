package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gateflow/gateflow/pkg/log"
	"github.com/gateflow/gateflow/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	cmd := &cli.Command{
		Name:                  "gateflow",
		Usage:                 "Validate, harden and version AI-generated workflow graphs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces via OTLP",
				Sources: cli.EnvVars("GATEFLOW_TRACING"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			validateCommand(),
			scanCommand(),
			versionsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newTracer returns an OTLP-exporting tracer when --tracing is set,
// nil otherwise.
func newTracer(ctx context.Context, command *cli.Command) (trace.Tracer, error) {
	if !command.Bool("tracing") {
		return nil, nil
	}

	tracer, err := otelhelper.NewTracer(ctx, "gateflow")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	return tracer, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gateflow/gateflow/pkg/log"
	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/validation"
	cli "github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate a workflow graph JSON document",
		ArgsUsage: "[graph.json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail on warnings as well as errors",
			},
			&cli.BoolFlag{
				Name:  "no-heal",
				Usage: "Disable automatic healing of fixable findings",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the corrected graph to this file when healing applied changes",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			return runValidate(ctx, command)
		},
	}
}

func runValidate(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("validate")

	graph, err := readGraph(command.Args().First())
	if err != nil {
		return err
	}

	tracer, err := newTracer(ctx, command)
	if err != nil {
		return err
	}

	var pipelineOpts []validation.PipelineOption
	if tracer != nil {
		pipelineOpts = append(pipelineOpts, validation.WithTracer(tracer))
	}

	pipeline := validation.NewPipeline(logger, pipelineOpts...)

	opts := validation.Options{
		AutoHeal:   !command.Bool("no-heal"),
		StrictMode: command.Bool("strict"),
	}

	result := pipeline.Validate(ctx, graph, opts)

	for _, finding := range result.Errors {
		printFinding("error", finding)
	}

	for _, finding := range result.Warnings {
		printFinding("warning", finding)
	}

	if result.CorrectedGraph != nil && command.String("output") != "" {
		if err := writeGraph(command.String("output"), result.CorrectedGraph); err != nil {
			return err
		}

		logger.InfoContext(ctx, "Wrote corrected graph", "path", command.String("output"))
	}

	if !result.IsValid {
		return fmt.Errorf("validation failed: %d errors, %d warnings", len(result.Errors), len(result.Warnings))
	}

	fmt.Printf("valid: %d nodes, %d edges, %d warnings\n", len(graph.Nodes), len(graph.Edges), len(result.Warnings))

	return nil
}

func printFinding(level string, finding validation.ValidationError) {
	location := ""
	if finding.NodeID != "" {
		location = " node=" + finding.NodeID
	} else if finding.EdgeID != "" {
		location = " edge=" + finding.EdgeID
	}

	fmt.Printf("%s [%s]%s %s\n", level, finding.Code, location, finding.Message)
}

func readGraph(path string) (*models.WorkflowGraph, error) {
	var raw []byte
	var err error

	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}

	var graph models.WorkflowGraph
	if err := json.Unmarshal(raw, &graph); err != nil {
		return nil, fmt.Errorf("failed to parse graph JSON: %w", err)
	}

	return &graph, nil
}

func writeGraph(path string, graph *models.WorkflowGraph) error {
	data, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}

	return nil
}

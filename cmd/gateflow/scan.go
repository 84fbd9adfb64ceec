package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gateflow/gateflow/pkg/security"
	cli "github.com/urfave/cli/v3"
)

func scanCommand() *cli.Command {
	allowFlag := &cli.StringSliceFlag{
		Name:    "allow-domain",
		Usage:   "Additional allowed outbound domain (repeatable)",
		Sources: cli.EnvVars("GATEFLOW_ALLOW_DOMAINS"),
	}

	return &cli.Command{
		Name:    "scan",
		Aliases: []string{"s"},
		Usage:   "Scan prompts and generated code for security issues",
		Commands: []*cli.Command{
			{
				Name:      "prompt",
				Usage:     "Scan a generation prompt for injection attempts",
				ArgsUsage: "[prompt.txt]",
				Flags:     []cli.Flag{allowFlag},
				Action: func(ctx context.Context, command *cli.Command) error {
					text, err := readInput(command.Args().First())
					if err != nil {
						return err
					}

					result := newScanner(command).SanitizePrompt(text)

					printIssues(result.Issues)

					if !result.IsSecure {
						return fmt.Errorf("prompt rejected: %d issues found", len(result.Issues))
					}

					fmt.Println(result.SanitizedText)

					return nil
				},
			},
			{
				Name:      "code",
				Usage:     "Analyze generated code for unsafe constructs",
				ArgsUsage: "[code.js]",
				Flags:     []cli.Flag{allowFlag},
				Action: func(ctx context.Context, command *cli.Command) error {
					code, err := readInput(command.Args().First())
					if err != nil {
						return err
					}

					result := newScanner(command).AnalyzeCode(code)

					printIssues(result.Issues)

					if !result.IsSafe {
						return fmt.Errorf("code blocked: %d issues found", len(result.Issues))
					}

					fmt.Printf("safe: %d non-blocking issues\n", len(result.Issues))

					return nil
				},
			},
		},
	}
}

func newScanner(command *cli.Command) *security.Scanner {
	extra := command.StringSlice("allow-domain")
	if len(extra) == 0 {
		return security.NewScanner()
	}

	domains := append(security.DefaultAllowList().Domains(), extra...)

	return security.NewScanner(security.WithAllowList(security.NewAllowList(domains...)))
}

func printIssues(issues []security.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", issue.Severity, issue.Type, issue.Description)
	}
}

func readInput(path string) (string, error) {
	var raw []byte
	var err error

	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}

	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return string(raw), nil
}

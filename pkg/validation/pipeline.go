package validation

import (
	"context"
	"log/slog"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/otelhelper"
	"github.com/gateflow/gateflow/pkg/security"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options control a pipeline run.
type Options struct {
	// AutoHeal invokes the auto-healer once when at least one finding
	// carries a healable code.
	AutoHeal bool
	// StrictMode treats any finding, warnings included, as invalidating.
	StrictMode bool
}

// DefaultOptions enables auto-healing and disables strict mode.
func DefaultOptions() Options {
	return Options{AutoHeal: true, StrictMode: false}
}

// Pipeline orchestrates schema validation, business rules, graph analysis,
// security scanning of embedded code, and optional auto-healing into a
// single call. The pipeline itself holds no mutable state and is safe for
// concurrent use.
type Pipeline struct {
	schema   *SchemaValidator
	business *BusinessRuleValidator
	analyzer *GraphAnalyzer
	scanner  *security.Scanner
	healer   *AutoHealer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithTracer attaches a tracer; each validation run becomes a span.
func WithTracer(tracer trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// WithScanner overrides the default security scanner, e.g. to supply a
// custom outbound domain allow-list.
func WithScanner(scanner *security.Scanner) PipelineOption {
	return func(p *Pipeline) {
		p.scanner = scanner
	}
}

// NewPipeline creates a validation pipeline.
func NewPipeline(logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	pipeline := &Pipeline{
		schema:   NewSchemaValidator(),
		business: NewBusinessRuleValidator(),
		analyzer: NewGraphAnalyzer(),
		scanner:  security.NewScanner(),
		healer:   NewAutoHealer(),
		logger:   logger,
	}

	for _, opt := range opts {
		opt(pipeline)
	}

	return pipeline
}

// Validate runs all validators against the graph and aggregates their
// findings. The input graph is never mutated; when auto-healing runs, the
// corrected copy is returned in Result.CorrectedGraph.
func (p *Pipeline) Validate(ctx context.Context, graph *models.WorkflowGraph, opts Options) *Result {
	if p.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, p.tracer, "pipeline.validate",
			attribute.Int(otelhelper.GraphNodesKey, len(graph.Nodes)),
			attribute.Int(otelhelper.GraphEdgesKey, len(graph.Edges)),
		)
		defer span.End()
	}

	findings := make([]ValidationError, 0)
	findings = append(findings, p.schema.Validate(graph)...)
	findings = append(findings, p.business.Validate(graph)...)
	findings = append(findings, p.analyzer.Analyze(graph)...)
	findings = append(findings, p.scanEmbeddedCode(graph)...)

	result := &Result{}
	result.Errors, result.Warnings = splitBySeverity(findings)

	if opts.AutoHeal && hasHealableError(result.Errors) {
		corrected, applied := p.healer.Heal(graph, result.Errors)
		result.CorrectedGraph = corrected

		p.logger.InfoContext(ctx, "Auto-healing applied",
			"repairs", len(applied))
	}

	if opts.StrictMode {
		result.IsValid = len(result.Errors) == 0 && len(result.Warnings) == 0
	} else {
		result.IsValid = len(result.Errors) == 0
	}

	p.logger.DebugContext(ctx, "Validation completed",
		"valid", result.IsValid,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))

	return result
}

// HealUntilStable re-validates the corrected graph until no healable
// errors remain or maxIterations passes have run, returning the final
// result and the graph it applies to. This is the explicit caller-driven
// convergence loop: healing itself is single-pass, so adversarial graphs
// cannot force unbounded repair work.
func (p *Pipeline) HealUntilStable(ctx context.Context, graph *models.WorkflowGraph, opts Options, maxIterations int) (*Result, *models.WorkflowGraph) {
	opts.AutoHeal = true
	current := graph

	result := p.Validate(ctx, current, opts)

	for i := 0; i < maxIterations && result.CorrectedGraph != nil; i++ {
		current = result.CorrectedGraph
		result = p.Validate(ctx, current, opts)
	}

	return result, current
}

// scanEmbeddedCode runs the security scanner over the code config of every
// custom-code node. Critical issues invalidate the graph; everything else
// is surfaced as a warning.
func (p *Pipeline) scanEmbeddedCode(graph *models.WorkflowGraph) []ValidationError {
	findings := make([]ValidationError, 0)

	for _, node := range graph.Nodes {
		if node.BlockType != models.BlockTypeCustomCode {
			continue
		}

		code, ok := node.Config["code"].(string)
		if !ok || code == "" {
			continue
		}

		scan := p.scanner.AnalyzeCode(code)

		for _, issue := range scan.Issues {
			severity := SeverityWarning
			if issue.Severity == security.SeverityCritical {
				severity = SeverityError
			}

			findingCode := CodeUnsafeCode
			if issue.Type == security.IssueSuspiciousDomain {
				findingCode = CodeSuspiciousDomain
			}

			findings = append(findings, ValidationError{
				Kind:     KindSecurity,
				Code:     findingCode,
				Message:  "node " + node.ID + ": " + issue.Description,
				NodeID:   node.ID,
				Severity: severity,
				Details:  map[string]any{"issue_type": issue.Type, "issue_severity": string(issue.Severity)},
			})
		}
	}

	return findings
}

func hasHealableError(findings []ValidationError) bool {
	for _, finding := range findings {
		if IsHealable(finding.Code) {
			return true
		}
	}

	return false
}

package audit

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gateflow/gateflow/pkg/models"
	"github.com/gateflow/gateflow/pkg/persistence"
)

// Metrics aggregates operational counters over a time window.
type Metrics struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	TotalEvents       int       `json:"total_events"`
	Generations       int       `json:"generations"`
	Validations       int       `json:"validations"`
	ValidationFails   int       `json:"validation_failures"`
	SecurityEvents    int       `json:"security_events"`
	VersionOperations int       `json:"version_operations"`
	AvgDurationMillis float64   `json:"avg_duration_ms"`
}

// SecurityReport summarizes security violations over a time window.
type SecurityReport struct {
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	TotalViolations   int            `json:"total_violations"`
	BySeverity        map[string]int `json:"by_severity"`
	TopViolationTypes []TypeCount    `json:"top_violation_types"`
	DailyTrend        []DayCount     `json:"daily_trend"`
	Recommendations   []string       `json:"recommendations,omitempty"`
}

// TypeCount pairs a violation type with its occurrence count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// DayCount pairs a calendar day with its violation count.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// GetMetrics aggregates event counts and average operation duration over
// [from, to].
func (l *Log) GetMetrics(ctx context.Context, from, to time.Time) (*Metrics, error) {
	events, err := l.persistence.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		From: from,
		To:   to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	metrics := &Metrics{
		From:        from,
		To:          to,
		TotalEvents: len(events),
	}

	var durationTotal float64
	var durationSamples int

	for _, event := range events {
		switch event.EventType {
		case models.AuditEventWorkflowGeneration:
			metrics.Generations++
		case models.AuditEventWorkflowValidation:
			metrics.Validations++
			if event.Outcome == models.AuditOutcomeFailure {
				metrics.ValidationFails++
			}
		case models.AuditEventSecurityViolation:
			metrics.SecurityEvents++
		case models.AuditEventVersionOperation:
			metrics.VersionOperations++
		}

		if ms, ok := durationOf(event); ok {
			durationTotal += ms
			durationSamples++
		}
	}

	if durationSamples > 0 {
		metrics.AvgDurationMillis = durationTotal / float64(durationSamples)
	}

	return metrics, nil
}

// GetSecurityReport summarizes security violations over [from, to]:
// counts by severity, the most frequent violation types, a per-day trend
// and threshold-based recommendations.
func (l *Log) GetSecurityReport(ctx context.Context, from, to time.Time) (*SecurityReport, error) {
	events, err := l.persistence.AuditRepository().List(ctx, persistence.AuditQueryOptions{
		From:       from,
		To:         to,
		EventTypes: []models.AuditEventType{models.AuditEventSecurityViolation},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}

	report := &SecurityReport{
		From:            from,
		To:              to,
		TotalViolations: len(events),
		BySeverity:      make(map[string]int),
	}

	typeCounts := make(map[string]int)
	dayCounts := make(map[string]int)

	for _, event := range events {
		report.BySeverity[string(event.Risk)]++
		dayCounts[event.Timestamp.UTC().Format("2006-01-02")]++

		if violationType, ok := event.Details["violation_type"].(string); ok && violationType != "" {
			typeCounts[violationType]++
		}
	}

	report.TopViolationTypes = rankTypes(typeCounts)
	report.DailyTrend = sortDays(dayCounts)
	report.Recommendations = recommend(report)

	return report, nil
}

func durationOf(event *models.AuditEvent) (float64, bool) {
	raw, ok := event.Details["duration_ms"]
	if !ok {
		return 0, false
	}

	// Durations arrive as int64 in-process and as float64 after a JSON
	// round-trip through the file or postgres backends.
	switch v := raw.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func rankTypes(counts map[string]int) []TypeCount {
	ranked := make([]TypeCount, 0, len(counts))
	for violationType, count := range counts {
		ranked = append(ranked, TypeCount{Type: violationType, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}

		return ranked[i].Type < ranked[j].Type
	})

	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	return ranked
}

func sortDays(counts map[string]int) []DayCount {
	days := make([]DayCount, 0, len(counts))
	for day, count := range counts {
		days = append(days, DayCount{Day: day, Count: count})
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })

	return days
}

const (
	criticalRecommendThreshold = 1
	highRecommendThreshold     = 5
	volumeRecommendThreshold   = 50
)

func recommend(report *SecurityReport) []string {
	var recommendations []string

	if report.BySeverity[string(models.RiskCritical)] >= criticalRecommendThreshold {
		recommendations = append(recommendations, "critical violations detected: review affected user sessions and rotate any exposed credentials")
	}

	if report.BySeverity[string(models.RiskHigh)] >= highRecommendThreshold {
		recommendations = append(recommendations, "elevated rate of high-severity violations: consider tightening the domain allowlist and prompt filters")
	}

	if report.TotalViolations >= volumeRecommendThreshold {
		recommendations = append(recommendations, "high violation volume: enable alerting on security events if not already configured")
	}

	return recommendations
}

package security

import (
	"fmt"
	"math"
	"strings"
)

// maxPromptLength caps scanned prompt input. Longer inputs are truncated
// before pattern matching so a pathological prompt cannot blow up
// matching cost.
const maxPromptLength = 50000

// redactionMarker replaces high/critical prompt matches in sanitized output.
const redactionMarker = "[REDACTED]"

// blockMarker replaces critical code matches in sanitized output.
const blockMarker = "/* BLOCKED BY SECURITY SCAN */"

// secretEntropyThreshold is the minimum Shannon entropy (bits per byte)
// for a quoted literal to be reported as an embedded secret.
const secretEntropyThreshold = 3.8

// Scanner runs pattern-based security analysis over untrusted model
// output. All methods are pure and side-effect-free; a scanner is safe
// for any number of concurrent callers.
type Scanner struct {
	allowList *AllowList
}

// ScannerOption configures a scanner.
type ScannerOption func(*Scanner)

// WithAllowList sets the outbound domain allow-list used by code scans.
func WithAllowList(allowList *AllowList) ScannerOption {
	return func(s *Scanner) {
		s.allowList = allowList
	}
}

// NewScanner creates a scanner with the default allow-list.
func NewScanner(opts ...ScannerOption) *Scanner {
	scanner := &Scanner{allowList: DefaultAllowList()}

	for _, opt := range opts {
		opt(scanner)
	}

	return scanner
}

// SanitizePrompt scans a generation prompt for injection attempts.
//
// Zero-width and bidirectional-override characters are stripped
// unconditionally, regardless of severity scoring. Inputs longer than
// maxPromptLength are truncated and the truncation itself reported.
// High and critical matches are replaced with a redaction marker in the
// sanitized output; IsSecure is false iff at least one such match exists.
func (s *Scanner) SanitizePrompt(text string) PromptScanResult {
	issues := make([]Issue, 0)

	if len(text) > maxPromptLength {
		text = text[:maxPromptLength]

		issues = append(issues, Issue{
			Type:        IssueInputTruncated,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("input exceeded %d characters and was truncated", maxPromptLength),
		})
	}

	sanitized := stripInvisible(text)

	for _, p := range promptPatterns {
		match := p.re.FindString(sanitized)
		if match == "" {
			continue
		}

		issues = append(issues, Issue{
			Type:        p.issueType,
			Severity:    p.severity,
			Description: p.description,
			Match:       match,
		})

		if p.severity.isBlocking() {
			sanitized = p.re.ReplaceAllString(sanitized, redactionMarker)
		}
	}

	secure := true

	for _, issue := range issues {
		if issue.Severity.isBlocking() {
			secure = false

			break
		}
	}

	return PromptScanResult{
		IsSecure:      secure,
		Issues:        issues,
		SanitizedText: sanitized,
	}
}

// AnalyzeCode scans generated code for unsafe constructs: dynamic
// evaluation, process escapes, credential access, outbound calls,
// embedded secrets and unbounded loops. Critical matches are replaced
// with a blocking marker comment; IsSafe is false iff at least one
// critical issue was found. Outbound URLs not on the allow-list are
// flagged as warnings only, never blocked, since legitimate integrations
// need external endpoints.
func (s *Scanner) AnalyzeCode(code string) CodeScanResult {
	issues := make([]Issue, 0)
	sanitized := code

	for _, p := range codePatterns {
		match := p.re.FindString(code)
		if match == "" {
			continue
		}

		issues = append(issues, Issue{
			Type:        p.issueType,
			Severity:    p.severity,
			Description: p.description,
			Match:       match,
		})

		if p.severity == SeverityCritical {
			sanitized = p.re.ReplaceAllString(sanitized, blockMarker)
		}
	}

	issues = append(issues, s.findEmbeddedSecrets(code)...)
	issues = append(issues, s.findSuspiciousDomains(code)...)

	safe := true

	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			safe = false

			break
		}
	}

	return CodeScanResult{
		IsSafe:        safe,
		Issues:        issues,
		SanitizedCode: sanitized,
	}
}

// IsAllowedDomain reports whether a URL's host is on the configured
// allow-list.
func (s *Scanner) IsAllowedDomain(rawURL string) bool {
	return s.allowList.Contains(rawURL)
}

func (s *Scanner) findEmbeddedSecrets(code string) []Issue {
	issues := make([]Issue, 0)

	if match := knownSecretPrefix.FindString(code); match != "" {
		issues = append(issues, Issue{
			Type:        IssueEmbeddedSecret,
			Severity:    SeverityHigh,
			Description: "literal matches a known credential format",
			Match:       truncateMatch(match),
		})
	}

	for _, groups := range secretLiteral.FindAllStringSubmatch(code, 16) {
		literal := groups[1]
		if shannonEntropy(literal) >= secretEntropyThreshold {
			issues = append(issues, Issue{
				Type:        IssueEmbeddedSecret,
				Severity:    SeverityMedium,
				Description: "high-entropy literal looks like an embedded secret",
				Match:       truncateMatch(literal),
			})

			break
		}
	}

	return issues
}

func (s *Scanner) findSuspiciousDomains(code string) []Issue {
	issues := make([]Issue, 0)
	seen := make(map[string]bool)

	for _, rawURL := range urlLiteral.FindAllString(code, 16) {
		if seen[rawURL] {
			continue
		}

		seen[rawURL] = true

		if !s.IsAllowedDomain(rawURL) {
			issues = append(issues, Issue{
				Type:        IssueSuspiciousDomain,
				Severity:    SeverityLow,
				Description: "outbound URL host is not on the allow-list: " + rawURL,
				Match:       rawURL,
			})
		}
	}

	return issues
}

// stripInvisible removes zero-width and bidi-override runes.
func stripInvisible(text string) string {
	return strings.Map(func(r rune) rune {
		if invisibleRunes[r] {
			return -1
		}

		return r
	}, text)
}

// shannonEntropy returns bits of entropy per byte of the string.
func shannonEntropy(text string) float64 {
	if text == "" {
		return 0
	}

	counts := make(map[byte]int, len(text))
	for i := 0; i < len(text); i++ {
		counts[text[i]]++
	}

	entropy := 0.0
	length := float64(len(text))

	for _, count := range counts {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

func truncateMatch(match string) string {
	const keep = 8

	if len(match) <= keep {
		return match
	}

	return match[:keep] + "..."
}

package security

import "regexp"

// pattern couples a compiled detector with its classification. Patterns
// are compiled once at package load; all expressions are written without
// nested quantifiers so matching stays linear on adversarial input.
type pattern struct {
	issueType   string
	severity    Severity
	description string
	re          *regexp.Regexp
}

// promptPatterns detect prompt injection phrasing, ordered roughly by how
// often each shape appears in the wild.
var promptPatterns = []pattern{
	{
		issueType:   IssueInstructionOverride,
		severity:    SeverityHigh,
		description: "instruction override phrasing",
		re:          regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`),
	},
	{
		issueType:   IssueInstructionOverride,
		severity:    SeverityHigh,
		description: "instruction reset phrasing",
		re:          regexp.MustCompile(`(?i)(new|updated|real)\s+instructions?\s*:`),
	},
	{
		issueType:   IssueRoleManipulation,
		severity:    SeverityHigh,
		description: "role manipulation marker",
		re:          regexp.MustCompile(`(?i)(you\s+are\s+now|act\s+as|pretend\s+(to\s+be|you\s+are)|roleplay\s+as)\s`),
	},
	{
		issueType:   IssueRoleManipulation,
		severity:    SeverityMedium,
		description: "jailbreak persona marker",
		re:          regexp.MustCompile(`(?i)\b(DAN|jailbreak|developer\s+mode)\b`),
	},
	{
		issueType:   IssueSystemTag,
		severity:    SeverityCritical,
		description: "embedded system or instruction tag",
		re:          regexp.MustCompile(`(?i)<\s*/?\s*(system|instructions?|assistant)\s*>|\[/?(SYSTEM|INST)\]`),
	},
	{
		issueType:   IssueCodeBlock,
		severity:    SeverityLow,
		description: "fenced code block in prompt",
		re:          regexp.MustCompile("```"),
	},
	{
		issueType:   IssueScriptTag,
		severity:    SeverityHigh,
		description: "script tag in prompt",
		re:          regexp.MustCompile(`(?i)<\s*script\b`),
	},
}

// codePatterns detect unsafe constructs in generated code, layered from
// execution primitives down to hygiene heuristics.
var codePatterns = []pattern{
	{
		issueType:   IssueDynamicEvaluation,
		severity:    SeverityCritical,
		description: "dynamic code evaluation",
		re:          regexp.MustCompile(`\b(eval|execScript)\s*\(|new\s+Function\s*\(`),
	},
	{
		issueType:   IssueDynamicEvaluation,
		severity:    SeverityHigh,
		description: "string-argument timer acts as eval",
		re:          regexp.MustCompile(`\b(setTimeout|setInterval)\s*\(\s*["0-9']`),
	},
	{
		issueType:   IssueProcessEscape,
		severity:    SeverityCritical,
		description: "process or OS escape hatch",
		re:          regexp.MustCompile(`\brequire\s*\(\s*['"](child_process|fs|os|vm|cluster)['"]\s*\)|\bprocess\.(exit|kill|binding)\b|\bexec(Sync)?\s*\(|\bspawn(Sync)?\s*\(`),
	},
	{
		issueType:   IssueCredentialAccess,
		severity:    SeverityHigh,
		description: "credential or storage access",
		re:          regexp.MustCompile(`\bprocess\.env\b|\b(localStorage|sessionStorage)\s*\.|\bdocument\.cookie\b`),
	},
	{
		issueType:   IssueOutboundNetwork,
		severity:    SeverityMedium,
		description: "outbound network call",
		re:          regexp.MustCompile(`\b(fetch|axios|XMLHttpRequest)\s*[.(]|\bnavigator\.sendBeacon\s*\(|\bnew\s+WebSocket\s*\(`),
	},
	{
		issueType:   IssueUnboundedLoop,
		severity:    SeverityMedium,
		description: "potentially unbounded loop",
		re:          regexp.MustCompile(`\bwhile\s*\(\s*(true|1)\s*\)|\bfor\s*\(\s*;\s*;\s*\)`),
	},
}

// secretLiteral matches quoted high-entropy-looking literals; candidates
// are confirmed with a Shannon entropy check before being reported.
var secretLiteral = regexp.MustCompile(`['"]([A-Za-z0-9+/=_\-]{24,128})['"]`)

// knownSecretPrefix matches literal formats of well-known credential
// families regardless of entropy.
var knownSecretPrefix = regexp.MustCompile(`\b(AKIA[0-9A-Z]{16}|sk-[A-Za-z0-9]{20,}|ghp_[A-Za-z0-9]{36}|xox[baprs]-[A-Za-z0-9-]{10,})\b`)

// urlLiteral extracts http(s) URLs from code for allow-list checking.
var urlLiteral = regexp.MustCompile(`https?://[A-Za-z0-9.\-]+(?::\d+)?(?:/[^\s'"]*)?`)

// Characters stripped unconditionally from prompts: zero-width characters
// and bidirectional override controls used to smuggle or reorder text.
var invisibleRunes = map[rune]bool{
	'\u200B': true, // zero width space
	'\u200C': true, // zero width non-joiner
	'\u200D': true, // zero width joiner
	'\u2060': true, // word joiner
	'\uFEFF': true, // byte order mark
	'\u202A': true, // left-to-right embedding
	'\u202B': true, // right-to-left embedding
	'\u202C': true, // pop directional formatting
	'\u202D': true, // left-to-right override
	'\u202E': true, // right-to-left override
	'\u2066': true, // left-to-right isolate
	'\u2067': true, // right-to-left isolate
	'\u2068': true, // first strong isolate
	'\u2069': true, // pop directional isolate
}

package analyzer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const secretsVersion = "1.0.0"

// secretRule pairs an identifier with a detection pattern. The rules are
// deliberately conservative heuristics, not curated leak signatures.
type secretRule struct {
	ID      string
	Pattern *regexp.Regexp
}

var secretRules = []secretRule{
	{"aws-access-key-id", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"aws-secret-access-key", regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*["']?[A-Za-z0-9/\+=]{20,}["']?`)},
	{"github-token", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{"slack-token", regexp.MustCompile(`(?i)xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"private-key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA |PGP )?PRIVATE KEY`)},
	{"generic-api-key", regexp.MustCompile(`(?i)api[_-]?key\s*[:=]\s*["']?[A-Za-z0-9\-_]{16,}["']?`)},
	{"generic-password", regexp.MustCompile(`(?i)password\s*[:=]\s*["'][^"'\s]{8,}["']`)},
}

const maxSecretFileSize = 512 * 1024

// extensions that never carry source-level secrets worth matching.
var skipSecretExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".jar": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".lock": true,
}

// Secrets scans repository files for credential-shaped strings using
// regex heuristics. Matches are reported with file and line but the
// matched text itself is redacted to a prefix.
type Secrets struct{}

func NewSecrets() *Secrets { return &Secrets{} }

func (s *Secrets) Name() string    { return "secrets" }
func (s *Secrets) Version() string { return secretsVersion }

type secretFinding struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	RuleID string `json:"rule_id"`
	Match  string `json:"match"`
}

type secretsSummary struct {
	PotentialSecrets int `json:"potential_secrets"`
	FilesScanned     int `json:"files_scanned"`
}

func (s *Secrets) Run(ctx context.Context, req Request) (Report, error) {
	findings := []secretFinding{}
	scanned := 0

	err := filepath.WalkDir(req.RepoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "node_modules", "vendor":
				return filepath.SkipDir
			}
			return nil
		}
		if skipSecretExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxSecretFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil || looksBinary(data) {
			return nil
		}

		scanned++
		rel, _ := filepath.Rel(req.RepoPath, path)
		text := string(data)
		for _, rule := range secretRules {
			for _, loc := range rule.Pattern.FindAllStringIndex(text, 10) {
				findings = append(findings, secretFinding{
					Path:   rel,
					Line:   lineAt(text, loc[0]),
					RuleID: rule.ID,
					Match:  redact(text[loc[0]:loc[1]]),
				})
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	summary := secretsSummary{PotentialSecrets: len(findings), FilesScanned: scanned}
	raw, err := writeOutput(req, s.Name(), s.Version(), summary, findings)
	if err != nil {
		return Report{}, err
	}
	return Report{Summary: raw}, nil
}

func looksBinary(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

func lineAt(s string, off int) int {
	line := 1
	for i := 0; i < off && i < len(s); i++ {
		if s[i] == '\n' {
			line++
		}
	}
	return line
}

// redact keeps enough of a match to locate it without reproducing the
// credential in the output document.
func redact(match string) string {
	if len(match) <= 12 {
		return match[:len(match)/2] + "..."
	}
	return match[:12] + "..."
}

package layout

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Identity is the primary key for every project. It is always the
// lower-cased namespace/name form and immutable once assigned.
type Identity struct {
	Namespace string
	Name      string
}

// String returns the canonical "namespace/name" form.
func (id Identity) String() string {
	return id.Namespace + "/" + id.Name
}

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id.Namespace == "" && id.Name == ""
}

// ParseIdentity splits a canonical "namespace/name" string.
func ParseIdentity(s string) (Identity, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Identity{}, fmt.Errorf("invalid project id %q", s)
	}
	return Identity{Namespace: parts[0], Name: parts[1]}, nil
}

var (
	githubHTTPSRe = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	githubSSHRe   = regexp.MustCompile(`^git@[^:]+:([^/]+)/(.+?)(?:\.git)?$`)
	shorthandRe   = regexp.MustCompile(`^[A-Za-z0-9][-A-Za-z0-9_.]*/[A-Za-z0-9][-A-Za-z0-9_.]*$`)
	unsafeRunRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// DeriveIdentity maps an arbitrary source string to a deterministic project
// identity. Rules are applied in order: GitHub HTTPS URL, GitHub SSH URL,
// local filesystem path, bare owner/repo shorthand, and finally a sanitized
// "other" fallback. The function is pure: it never touches the filesystem
// or the network, since it is called repeatedly for cache lookups.
func DeriveIdentity(source string) Identity {
	s := strings.TrimSpace(source)

	if m := githubHTTPSRe.FindStringSubmatch(s); m != nil {
		return Identity{Namespace: strings.ToLower(m[1]), Name: strings.ToLower(m[2])}
	}

	if m := githubSSHRe.FindStringSubmatch(s); m != nil {
		return Identity{Namespace: strings.ToLower(m[1]), Name: sanitizeToken(path.Base(m[2]))}
	}

	if isLocalPath(s) {
		base := path.Base(strings.TrimRight(s, "/"))
		base = strings.TrimSuffix(base, ".git")
		return Identity{Namespace: "local", Name: sanitizeToken(base)}
	}

	if shorthandRe.MatchString(s) {
		parts := strings.SplitN(s, "/", 2)
		return Identity{Namespace: strings.ToLower(parts[0]), Name: strings.ToLower(parts[1])}
	}

	return Identity{Namespace: "other", Name: sanitizeToken(s)}
}

// isLocalPath applies the local-path heuristic without touching the
// filesystem: absolute paths, paths anchored at . or ~, and multi-segment
// relative paths (anything with more than one slash cannot be owner/repo
// shorthand).
func isLocalPath(s string) bool {
	if s == "" || strings.Contains(s, "://") {
		return false
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, ".") || strings.HasPrefix(s, "~") {
		return true
	}
	return strings.Count(s, "/") > 1
}

// sanitizeToken lower-cases the input and collapses every run of
// non-alphanumeric characters into a single hyphen, trimming leading and
// trailing hyphens.
func sanitizeToken(s string) string {
	s = unsafeRunRe.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}

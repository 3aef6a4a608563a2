package model

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ScanMode selects how the findings report is obtained.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ScanMode string

const (
	// ScanModeManual expects a pre-computed findings report plus source files.
	ScanModeManual ScanMode = "manual"
	// ScanModeAuto runs the scanner after payment, against a repo reference
	// or a full project snapshot.
	ScanModeAuto ScanMode = "auto"
)

// Valid returns true if the ScanMode is known.
func (m ScanMode) Valid() bool {
	return m == ScanModeManual || m == ScanModeAuto
}

// UnmarshalText implements encoding.TextUnmarshaler for request decoding.
func (m *ScanMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	if v == "" {
		*m = ScanModeManual
		return nil
	}
	sm := ScanMode(v)
	if !sm.Valid() {
		return fmt.Errorf("scan_mode must be either 'manual' or 'auto' (got %q)", v)
	}
	*m = sm
	return nil
}

// ReviewRequest is the submission payload of one review job. Immutable after
// submission.
type ReviewRequest struct {
	// ScanMode defaults to manual.
	ScanMode ScanMode `json:"scan_mode,omitempty"`
	// AikidoReport is the raw aikido.findings.v1 JSON (manual mode only).
	AikidoReport string `json:"aikido_report,omitempty"`
	// SourceFiles maps project-relative file paths to source text.
	SourceFiles map[string]string `json:"source_files,omitempty"`
	// RepoURL/RepoRef/RepoSubpath reference a repository to scan (auto mode).
	RepoURL     string `json:"repo_url,omitempty"`
	RepoRef     string `json:"repo_ref,omitempty"`
	RepoSubpath string `json:"repo_subpath,omitempty"`
	// ReviewDepth selects the analysis depth; unset falls back to standard.
	ReviewDepth string `json:"review_depth,omitempty"`
	// ExecutionBackend is the optional explicit backend selector. It takes
	// precedence over the canary request marker.
	ExecutionBackend ExecutionBackend `json:"execution_backend,omitempty"`
}

// AikenManifest is the project manifest file an auto-scan snapshot must carry.
const AikenManifest = "aiken.toml"

// SafeRelativePath normalizes a project-relative path and rejects anything
// that would escape the project root.
func SafeRelativePath(p string) (string, error) {
	normalized := strings.TrimLeft(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
	if normalized == "" || normalized == "." {
		return "", errors.New("source_files contains an empty path")
	}
	if normalized == ".." || strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("source_files path escapes project root: %s", p)
	}
	return normalized, nil
}

// ContainsAikenManifest reports whether the snapshot includes aiken.toml at
// any level.
func ContainsAikenManifest(sourceFiles map[string]string) bool {
	for key := range sourceFiles {
		normalized, err := SafeRelativePath(key)
		if err != nil {
			continue
		}
		normalized = strings.ToLower(normalized)
		if normalized == AikenManifest || strings.HasSuffix(normalized, "/"+AikenManifest) {
			return true
		}
	}
	return false
}

// maxRepoURLLen bounds repo_url to keep clone commands sane.
const maxRepoURLLen = 2048

// ValidateRepoURL checks scheme, host presence and host allow-list.
func ValidateRepoURL(repoURL string, allowedHosts []string) error {
	if repoURL == "" {
		return errors.New("repo_url is required")
	}
	if len(repoURL) > maxRepoURLLen {
		return errors.New("repo_url is too long")
	}
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return fmt.Errorf("repo_url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "https" {
		return errors.New("repo_url must use https://")
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.New("repo_url missing hostname")
	}
	for _, allowed := range allowedHosts {
		if host == strings.ToLower(strings.TrimSpace(allowed)) {
			return nil
		}
	}
	return fmt.Errorf("repo_url host %q is not allowed", host)
}

// Validate checks the submission shape before any job state is created.
//
// Exactly one acquisition path must be specified: a findings report (manual
// mode, with source files) or auto-scan parameters. A submission carrying
// both, or neither, is rejected.
func (r *ReviewRequest) Validate() error {
	if r.ScanMode == "" {
		r.ScanMode = ScanModeManual
	}
	if !r.ScanMode.Valid() {
		return errors.New("scan_mode must be either 'manual' or 'auto'")
	}
	if r.ExecutionBackend != "" && !r.ExecutionBackend.Valid() {
		return errors.New("execution_backend must be one of: default, kodosumi")
	}

	hasReport := strings.TrimSpace(r.AikidoReport) != ""
	hasRepo := strings.TrimSpace(r.RepoURL) != ""

	if err := r.validateSourceFiles(); err != nil {
		return err
	}

	switch r.ScanMode {
	case ScanModeManual:
		if !hasReport {
			return errors.New("'aikido_report' is required in manual scan_mode")
		}
		if hasRepo {
			return errors.New("a findings report and auto-scan parameters are mutually exclusive; drop repo_url or use auto scan_mode without a report")
		}
		if len(r.SourceFiles) == 0 {
			return errors.New("'source_files' is required: provide a JSON object mapping file paths to source code contents")
		}
		if _, err := ParseAikidoReport([]byte(r.AikidoReport)); err != nil {
			return fmt.Errorf("'aikido_report' must be valid Aikido JSON (%s): %w", ReportSchemaVersion, err)
		}
	case ScanModeAuto:
		if hasReport {
			return errors.New("a findings report and auto-scan parameters are mutually exclusive; use manual scan_mode for pre-computed reports")
		}
		if hasRepo {
			break
		}
		if len(r.SourceFiles) == 0 {
			return errors.New("auto scan_mode requires either repo_url or a complete Aiken project in source_files, including aiken.toml")
		}
		if !ContainsAikenManifest(r.SourceFiles) {
			return errors.New("auto scan_mode with source_files requires a complete Aiken project including aiken.toml")
		}
	}

	return nil
}

func (r *ReviewRequest) validateSourceFiles() error {
	for p := range r.SourceFiles {
		if _, err := SafeRelativePath(p); err != nil {
			return err
		}
	}
	return nil
}

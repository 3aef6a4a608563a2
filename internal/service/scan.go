package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
	apperrors "github.com/sokosumi/aikido-reviewer/internal/errors"
)

// Scan limits and defaults.
const (
	defaultAikidoBin       = "aikido"
	defaultScanTimeout     = 10 * time.Minute
	defaultCloneTimeout    = 3 * time.Minute
	defaultMaxSourceFiles  = 500
	defaultMaxFileBytes    = 200_000
	defaultMaxTotalBytes   = 5_000_000
	maxScannerStderrQuoted = 300
)

// DefaultAllowedRepoHosts is the clone host allow-list used when no override
// is configured.
var DefaultAllowedRepoHosts = []string{"github.com", "gitlab.com", "bitbucket.org"}

// ScanServiceOptions groups dependencies and limits for ScanService.
type ScanServiceOptions struct {
	AikidoBin        string        // Optional: scanner binary, default "aikido"
	ScanTimeout      time.Duration // Optional: per-scan deadline
	CloneTimeout     time.Duration // Optional: git clone deadline
	AllowedRepoHosts []string      // Optional: clone host allow-list
	MaxSourceFiles   int           // Optional: source collection cap
	MaxFileBytes     int64         // Optional: per-file size cap
	MaxTotalBytes    int64         // Optional: total collection cap
	Logger           *slog.Logger  // Optional: structured logger
}

// ScanService runs the Aikido static-analysis CLI against a project snapshot
// or a shallow-cloned repository, then collects the project sources for
// downstream snippet extraction.
type ScanService struct {
	aikidoBin      string
	scanTimeout    time.Duration
	cloneTimeout   time.Duration
	allowedHosts   []string
	maxSourceFiles int
	maxFileBytes   int64
	maxTotalBytes  int64
	logger         *slog.Logger
}

// NewScanService constructs a new ScanService.
func NewScanService(opts ScanServiceOptions) (*ScanService, error) {
	if opts.AikidoBin == "" {
		opts.AikidoBin = defaultAikidoBin
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = defaultScanTimeout
	}
	if opts.CloneTimeout <= 0 {
		opts.CloneTimeout = defaultCloneTimeout
	}
	if len(opts.AllowedRepoHosts) == 0 {
		opts.AllowedRepoHosts = DefaultAllowedRepoHosts
	}
	if opts.MaxSourceFiles <= 0 {
		opts.MaxSourceFiles = defaultMaxSourceFiles
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaultMaxFileBytes
	}
	if opts.MaxTotalBytes <= 0 {
		opts.MaxTotalBytes = defaultMaxTotalBytes
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "scan_service")
	}

	return &ScanService{
		aikidoBin:      opts.AikidoBin,
		scanTimeout:    opts.ScanTimeout,
		cloneTimeout:   opts.CloneTimeout,
		allowedHosts:   opts.AllowedRepoHosts,
		maxSourceFiles: opts.MaxSourceFiles,
		maxFileBytes:   opts.MaxFileBytes,
		maxTotalBytes:  opts.MaxTotalBytes,
		logger:         logger,
	}, nil
}

// MustNewScanService constructs a new ScanService and panics on error.
func MustNewScanService(opts ScanServiceOptions) *ScanService {
	svc, err := NewScanService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ScanService: %v", err))
	}
	return svc
}

// AllowedRepoHosts exposes the configured host allow-list for submission
// validation.
func (s *ScanService) AllowedRepoHosts() []string {
	return s.allowedHosts
}

// ScanSourceFiles implements core.Scanner for a full project snapshot.
func (s *ScanService) ScanSourceFiles(ctx context.Context, sourceFiles map[string]string) (*core.ScanResult, error) {
	if len(sourceFiles) == 0 {
		return nil, apperrors.Validation("source_files must be a non-empty JSON object")
	}
	if !model.ContainsAikenManifest(sourceFiles) {
		return nil, apperrors.Validation(
			"source_files must include aiken.toml for auto scan mode. Provide a full Aiken project snapshot.")
	}

	tmpDir, err := os.MkdirTemp("", "aikido-scan-")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "create scan workspace")
	}
	defer os.RemoveAll(tmpDir)

	projectDir := filepath.Join(tmpDir, "project")
	normalized, err := writeProjectTree(sourceFiles, projectDir)
	if err != nil {
		return nil, err
	}

	raw, report, err := s.runAikido(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	return &core.ScanResult{
		Report:      report,
		RawReport:   raw,
		SourceFiles: normalized,
	}, nil
}

// ScanRepo implements core.Scanner for a repository reference. The repo is
// shallow-cloned and must carry aiken.toml at the scan root.
func (s *ScanService) ScanRepo(ctx context.Context, repoURL, repoRef, repoSubpath string) (*core.ScanResult, error) {
	if err := model.ValidateRepoURL(repoURL, s.allowedHosts); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	subpath, err := safeSubpath(repoSubpath)
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	tmpDir, err := os.MkdirTemp("", "aikido-repo-scan-")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "create scan workspace")
	}
	defer os.RemoveAll(tmpDir)

	repoDir := filepath.Join(tmpDir, "repo")
	if err := s.cloneRepo(ctx, repoURL, repoRef, repoDir); err != nil {
		return nil, err
	}

	projectDir := repoDir
	if subpath != "." {
		projectDir = filepath.Join(repoDir, subpath)
	}
	info, err := os.Stat(projectDir)
	if err != nil || !info.IsDir() {
		return nil, apperrors.Validationf("repo_subpath not found in repository: %s", subpath)
	}
	if _, err := os.Stat(filepath.Join(projectDir, model.AikenManifest)); err != nil {
		return nil, apperrors.Validationf("aiken.toml not found at repo_subpath: %s", subpath)
	}

	raw, report, err := s.runAikido(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	collected, err := s.collectSourceFiles(projectDir)
	if err != nil {
		return nil, err
	}

	return &core.ScanResult{
		Report:      report,
		RawReport:   raw,
		SourceFiles: collected,
	}, nil
}

// cloneRepo shallow-clones the repository, optionally at a branch or tag.
func (s *ScanService) cloneRepo(ctx context.Context, repoURL, repoRef, repoDir string) error {
	cloneCtx, cancel := context.WithTimeout(ctx, s.cloneTimeout)
	defer cancel()

	args := []string{"clone", "--depth", "1"}
	if repoRef != "" {
		args = append(args, "--branch", repoRef)
	}
	args = append(args, repoURL, repoDir)

	cmd := exec.CommandContext(cloneCtx, "git", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if s.logger != nil {
		s.logger.InfoContext(ctx, "cloning repository", "repo_url", repoURL, "repo_ref", repoRef)
	}

	if err := cmd.Run(); err != nil {
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			return apperrors.Timeout("git clone timed out")
		}
		return apperrors.Analyzer(fmt.Sprintf(
			"Failed to clone repo_url: %s", truncate(stderr.String(), maxScannerStderrQuoted)))
	}
	return nil
}

// runAikido executes the scanner CLI and parses its JSON report.
func (s *ScanService) runAikido(ctx context.Context, projectDir string) ([]byte, *model.AikidoReport, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	cmd := exec.CommandContext(scanCtx, s.aikidoBin,
		projectDir,
		"--format", "json",
		"--quiet",
		"--min-severity", "info",
		"--fail-on", "critical",
	)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		return nil, nil, apperrors.Timeout("aikido scan timed out")
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return nil, nil, apperrors.Analyzer(fmt.Sprintf(
			"Aikido scan produced no JSON output. exit=%s, stderr=%s",
			exitStatus(runErr), truncate(strings.TrimSpace(stderr.String()), maxScannerStderrQuoted)))
	}

	report, err := model.ParseAikidoReport([]byte(out))
	if err != nil {
		return nil, nil, apperrors.Analyzer(fmt.Sprintf(
			"Aikido JSON output parse failed: %v. exit=%s, stderr=%s",
			err, exitStatus(runErr), truncate(strings.TrimSpace(stderr.String()), maxScannerStderrQuoted)))
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "aikido scan completed",
			"findings", len(report.Findings), "project", report.Project)
	}

	return []byte(out), report, nil
}

// collectSourceFiles gathers .ak and .toml files under the size and count
// caps, skipping .git.
func (s *ScanService) collectSourceFiles(projectDir string) (map[string]string, error) {
	type entry struct {
		rel  string
		path string
		size int64
	}

	var entries []entry
	err := filepath.WalkDir(projectDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".ak" && ext != ".toml" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(projectDir, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{rel: filepath.ToSlash(rel), path: p, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "collect project sources")
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	collected := make(map[string]string)
	var totalBytes int64
	for _, e := range entries {
		if e.size > s.maxFileBytes {
			continue
		}
		if len(collected) >= s.maxSourceFiles {
			break
		}
		if totalBytes+e.size > s.maxTotalBytes {
			break
		}
		content, err := os.ReadFile(e.path)
		if err != nil {
			continue
		}
		collected[e.rel] = string(content)
		totalBytes += e.size
	}
	return collected, nil
}

// writeProjectTree materializes the snapshot into a scanner workspace and
// returns the normalized path map.
func writeProjectTree(sourceFiles map[string]string, projectDir string) (map[string]string, error) {
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "create project dir")
	}

	normalized := make(map[string]string, len(sourceFiles))
	for rawPath, content := range sourceFiles {
		rel, err := model.SafeRelativePath(rawPath)
		if err != nil {
			return nil, apperrors.Validation(err.Error())
		}
		target := filepath.Join(projectDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "create project dir")
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeAnalyzer, "write project file")
		}
		normalized[rel] = content
	}
	return normalized, nil
}

// safeSubpath validates an optional repo subpath, defaulting to the root.
func safeSubpath(p string) (string, error) {
	if p == "" {
		return ".", nil
	}
	normalized, err := model.SafeRelativePath(p)
	if err != nil {
		return "", err
	}
	return normalized, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func exitStatus(err error) string {
	if err == nil {
		return "0"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("%d", exitErr.ExitCode())
	}
	return err.Error()
}

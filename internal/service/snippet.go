package service

import (
	"fmt"
	"strings"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// Snippet extraction bounds.
const (
	snippetContextLines = 8
	maxModuleLines      = 200
)

// normalizeFindingPath strips the scanner's temp-dir prefix from a finding
// path so it can be matched against project-relative source keys. Scanner
// paths look like /tmp/strike/forwards/validators/collateral.ak; the
// validators/ or lib/ segment anchors the relative portion.
func normalizeFindingPath(findingPath string) string {
	parts := strings.Split(findingPath, "/")
	for i, part := range parts {
		if part == "validators" || part == "lib" {
			return strings.Join(parts[i:], "/")
		}
	}
	if len(parts) == 0 {
		return findingPath
	}
	return parts[len(parts)-1]
}

// matchSourceFile finds the source-files key matching a finding path.
// Tries exact match, normalized match, suffix match, then filename match.
func matchSourceFile(findingPath string, sourceFiles map[string]string) (string, bool) {
	if _, ok := sourceFiles[findingPath]; ok {
		return findingPath, true
	}

	normalized := normalizeFindingPath(findingPath)
	if _, ok := sourceFiles[normalized]; ok {
		return normalized, true
	}

	for key := range sourceFiles {
		if strings.HasSuffix(key, normalized) || strings.HasSuffix(normalized, key) {
			return key, true
		}
	}

	filename := findingPath
	if idx := strings.LastIndex(findingPath, "/"); idx >= 0 {
		filename = findingPath[idx+1:]
	}
	for key := range sourceFiles {
		if strings.HasSuffix(key, filename) {
			return key, true
		}
	}

	return "", false
}

// extractSnippet renders numbered source lines around the finding range,
// marking the finding lines with ">".
func extractSnippet(source string, lineStart, lineEnd, context int) string {
	lines := strings.Split(source, "\n")
	if len(lines) == 0 || lineStart < 1 {
		return ""
	}

	end := lineEnd
	if end < lineStart {
		end = lineStart
	}

	startIdx := lineStart - 1 - context
	if startIdx < 0 {
		startIdx = 0
	}
	endIdx := end + context
	if endIdx > len(lines) {
		endIdx = len(lines)
	}

	var b strings.Builder
	for i := startIdx; i < endIdx; i++ {
		lineNum := i + 1
		marker := " "
		if lineNum >= lineStart && lineNum <= end {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %4d | %s\n", marker, lineNum, lines[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

// findingSnippet returns the code snippet for a finding, or "" if the
// source is unavailable.
func findingSnippet(finding *model.Finding, sourceFiles map[string]string) string {
	if finding.Location == nil || finding.Location.LineStart == 0 {
		return ""
	}
	key, ok := matchSourceFile(finding.Location.Path, sourceFiles)
	if !ok {
		return ""
	}
	return extractSnippet(
		sourceFiles[key],
		finding.Location.LineStart,
		finding.Location.LineEnd,
		snippetContextLines,
	)
}

// fullModuleSource returns the whole module if it is short enough to feed
// as context, or "".
func fullModuleSource(finding *model.Finding, sourceFiles map[string]string) string {
	if finding.Location == nil {
		return ""
	}
	key, ok := matchSourceFile(finding.Location.Path, sourceFiles)
	if !ok {
		return ""
	}
	source := sourceFiles[key]
	if strings.Count(source, "\n")+1 > maxModuleLines {
		return ""
	}
	return source
}

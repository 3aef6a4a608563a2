package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ReportSchemaVersion is the findings schema this service consumes.
const ReportSchemaVersion = "aikido.findings.v1"

// FindingLocation pins a finding to a byte/line range in a source file.
type FindingLocation struct {
	Path        string `json:"path"`
	ByteStart   int    `json:"byte_start"`
	ByteEnd     int    `json:"byte_end"`
	LineStart   int    `json:"line_start,omitempty"`
	ColumnStart int    `json:"column_start,omitempty"`
	LineEnd     int    `json:"line_end,omitempty"`
	ColumnEnd   int    `json:"column_end,omitempty"`
}

// CwcInfo identifies the Cardano weakness classification of a finding.
type CwcInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
}

// EvidenceInfo describes how the scanner established a finding.
// Level is one of PatternMatch, PathVerified, SmtProven,
// SimulationConfirmed, Corroborated.
type EvidenceInfo struct {
	Level           string            `json:"level"`
	Method          string            `json:"method"`
	Details         string            `json:"details,omitempty"`
	CodeFlow        []json.RawMessage `json:"code_flow,omitempty"`
	Witness         json.RawMessage   `json:"witness,omitempty"`
	ConfidenceBoost float64           `json:"confidence_boost,omitempty"`
}

// Finding is one scanner finding from an aikido.findings.v1 report.
type Finding struct {
	Detector        string           `json:"detector"`
	ReliabilityTier string           `json:"reliability_tier,omitempty"` // stable | beta | experimental
	Severity        string           `json:"severity"`                   // critical | high | medium | low | info
	Confidence      string           `json:"confidence"`                 // definite | likely | possible
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Module          string           `json:"module"`
	Cwc             *CwcInfo         `json:"cwc,omitempty"`
	Location        *FindingLocation `json:"location,omitempty"`
	Suggestion      string           `json:"suggestion,omitempty"`
	RelatedFindings []string         `json:"related_findings,omitempty"`
	SemanticGroup   string           `json:"semantic_group,omitempty"`
	Evidence        *EvidenceInfo    `json:"evidence,omitempty"`
}

// AnalysisLaneInfo summarizes one analysis lane of the scanner run.
type AnalysisLaneInfo struct {
	Enabled               bool   `json:"enabled"`
	Count                 *int   `json:"count,omitempty"`
	RuntimeIntegrated     bool   `json:"runtime_integrated,omitempty"`
	Backend               string `json:"backend,omitempty"`
	CorroboratedFindings  *int   `json:"corroborated_findings,omitempty"`
	Status                string `json:"status,omitempty"`
	Note                  string `json:"note,omitempty"`
	ContextBuilderCommand *bool  `json:"context_builder_command_configured,omitempty"`
}

// AikidoReport is the aikido.findings.v1 input document.
type AikidoReport struct {
	SchemaVersion string                      `json:"schema_version"`
	Project       string                      `json:"project"`
	Version       string                      `json:"version,omitempty"`
	AnalysisLanes map[string]AnalysisLaneInfo `json:"analysis_lanes,omitempty"`
	Findings      []Finding                   `json:"findings"`
	Total         int                         `json:"total"`
}

// ParseAikidoReport decodes and shape-checks a raw findings report.
func ParseAikidoReport(raw []byte) (*AikidoReport, error) {
	if len(raw) == 0 {
		return nil, errors.New("report is empty")
	}

	// Shape check first so a scalar or array fails with a clear message
	// instead of a type mismatch on a nested field.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("report is not a JSON object: %w", err)
	}
	if _, ok := shape["findings"]; !ok {
		return nil, errors.New("report is missing 'findings' key")
	}

	var report AikidoReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if report.Total == 0 {
		report.Total = len(report.Findings)
	}
	return &report, nil
}

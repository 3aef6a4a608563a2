package model

import "fmt"

// ReviewSchemaVersion is the schema of the produced review report.
const ReviewSchemaVersion = "aikido.review.v1"

// Classification is the reviewer's verdict on a finding.
type Classification string

const (
	// ClassConfirmedTP marks a verified true positive.
	ClassConfirmedTP Classification = "confirmed_tp"
	// ClassLikelyTP marks a probable true positive.
	ClassLikelyTP Classification = "likely_tp"
	// ClassNeedsReview marks a finding the pipeline could not decide.
	ClassNeedsReview Classification = "needs_review"
	// ClassLikelyFP marks a probable false positive.
	ClassLikelyFP Classification = "likely_fp"
	// ClassConfirmedFP marks a verified false positive.
	ClassConfirmedFP Classification = "confirmed_fp"
)

// Valid returns true if the Classification is a known verdict.
func (c Classification) Valid() bool {
	switch c {
	case ClassConfirmedTP, ClassLikelyTP, ClassNeedsReview, ClassLikelyFP, ClassConfirmedFP:
		return true
	}
	return false
}

// RemediationPriority orders fixes by urgency.
type RemediationPriority string

const (
	PriorityCritical      RemediationPriority = "critical"
	PriorityHigh          RemediationPriority = "high"
	PriorityMedium        RemediationPriority = "medium"
	PriorityLow           RemediationPriority = "low"
	PriorityInformational RemediationPriority = "informational"
)

// Rank returns the sort position of the priority, lowest first for the
// most urgent. Unknown priorities sort last.
func (p RemediationPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	case PriorityInformational:
		return 4
	}
	return 5
}

// Valid returns true if the RemediationPriority is a known level.
func (p RemediationPriority) Valid() bool {
	return p.Rank() < 5
}

// FindingReview is the triage verdict for one scanner finding.
type FindingReview struct {
	FindingIndex         int                 `json:"finding_index"`
	Detector             string              `json:"detector"`
	Title                string              `json:"title"`
	OriginalSeverity     string              `json:"original_severity"`
	OriginalConfidence   string              `json:"original_confidence"`
	Classification       Classification      `json:"classification"`
	ReviewerConfidence   float64             `json:"reviewer_confidence"`
	Reasoning            string              `json:"reasoning"`
	MitigatingPatterns   []string            `json:"mitigating_patterns,omitempty"`
	ExploitationScenario string              `json:"exploitation_scenario,omitempty"`
	RemediationPriority  RemediationPriority `json:"remediation_priority"`
	EvidenceAssessment   string              `json:"evidence_assessment,omitempty"`
}

// Validate checks the ranges the review schema promises.
func (r *FindingReview) Validate() error {
	if !r.Classification.Valid() {
		return fmt.Errorf("invalid classification %q", r.Classification)
	}
	if r.ReviewerConfidence < 0 || r.ReviewerConfidence > 1 {
		return fmt.Errorf("reviewer confidence %v out of [0,1]", r.ReviewerConfidence)
	}
	if !r.RemediationPriority.Valid() {
		return fmt.Errorf("invalid remediation priority %q", r.RemediationPriority)
	}
	return nil
}

// ClassificationSummary counts reviews per verdict.
type ClassificationSummary struct {
	ConfirmedTP int `json:"confirmed_tp"`
	LikelyTP    int `json:"likely_tp"`
	NeedsReview int `json:"needs_review"`
	LikelyFP    int `json:"likely_fp"`
	ConfirmedFP int `json:"confirmed_fp"`
}

// Add records one verdict in the summary.
func (s *ClassificationSummary) Add(c Classification) {
	switch c {
	case ClassConfirmedTP:
		s.ConfirmedTP++
	case ClassLikelyTP:
		s.LikelyTP++
	case ClassNeedsReview:
		s.NeedsReview++
	case ClassLikelyFP:
		s.LikelyFP++
	case ClassConfirmedFP:
		s.ConfirmedFP++
	}
}

// ReviewReport is the aikido.review.v1 output document delivered to buyers.
type ReviewReport struct {
	SchemaVersion         string                `json:"schema_version"`
	Project               string                `json:"project"`
	AikidoVersion         string                `json:"aikido_version"`
	ReviewDepth           string                `json:"review_depth"`
	TotalFindings         int                   `json:"total_findings"`
	ClassificationSummary ClassificationSummary `json:"classification_summary"`
	RiskScore             float64               `json:"risk_score"`
	RiskLevel             string                `json:"risk_level"`
	ExecutiveSummary      string                `json:"executive_summary"`
	FindingReviews        []FindingReview       `json:"finding_reviews"`
	Recommendations       []string              `json:"recommendations"`
}

package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// severityWeight scores findings for the risk computation.
var severityWeight = map[string]float64{
	"critical": 10,
	"high":     7,
	"medium":   4,
	"low":      2,
	"info":     1,
}

func weightFor(severity string) float64 {
	if w, ok := severityWeight[strings.ToLower(severity)]; ok {
		return w
	}
	return 1
}

// buildClassificationSummary counts reviews per verdict.
func buildClassificationSummary(reviews []model.FindingReview) model.ClassificationSummary {
	var summary model.ClassificationSummary
	for i := range reviews {
		summary.Add(reviews[i].Classification)
	}
	return summary
}

// computeRiskScore computes a 0-10 risk score weighted by severity and
// classification. Only confirmed/likely TPs and needs_review contribute.
func computeRiskScore(reviews []model.FindingReview) float64 {
	if len(reviews) == 0 {
		return 0
	}

	var maxPossible float64
	for i := range reviews {
		maxPossible += weightFor(reviews[i].OriginalSeverity)
	}
	if maxPossible == 0 {
		return 0
	}

	var actual float64
	for i := range reviews {
		weight := weightFor(reviews[i].OriginalSeverity)
		switch reviews[i].Classification {
		case model.ClassConfirmedTP:
			actual += weight
		case model.ClassLikelyTP:
			actual += weight * 0.7
		case model.ClassNeedsReview:
			actual += weight * 0.4
		case model.ClassLikelyFP, model.ClassConfirmedFP:
			// false positives contribute nothing
		}
	}

	score := math.Min(10, actual/maxPossible*10)
	return math.Round(score*10) / 10
}

// riskLevel maps a risk score to a human-readable level.
func riskLevel(score float64) string {
	switch {
	case score >= 8:
		return "critical"
	case score >= 6:
		return "high"
	case score >= 4:
		return "medium"
	case score >= 2:
		return "low"
	default:
		return "minimal"
	}
}

// buildExecutiveSummary generates a human-readable summary paragraph.
func buildExecutiveSummary(summary model.ClassificationSummary, riskScore float64, total int) string {
	parts := []string{fmt.Sprintf("Reviewed %d findings from Aikido static analysis.", total)}

	tpCount := summary.ConfirmedTP + summary.LikelyTP
	fpCount := summary.ConfirmedFP + summary.LikelyFP

	if tpCount > 0 {
		parts = append(parts, fmt.Sprintf(
			"%d finding(s) classified as true or likely true positives requiring attention.", tpCount))
	}
	if summary.NeedsReview > 0 {
		parts = append(parts, fmt.Sprintf("%d finding(s) require manual review.", summary.NeedsReview))
	}
	if fpCount > 0 {
		parts = append(parts, fmt.Sprintf(
			"%d finding(s) classified as false or likely false positives.", fpCount))
	}

	parts = append(parts, fmt.Sprintf(
		"Overall risk level: %s (score: %v/10.0).", riskLevel(riskScore), riskScore))

	return strings.Join(parts, " ")
}

// maxRecommendationReasoning bounds the reasoning excerpt per recommendation.
const maxRecommendationReasoning = 150

// buildRecommendations generates actionable recommendations sorted by
// remediation priority.
func buildRecommendations(reviews []model.FindingReview) []string {
	actionable := make([]model.FindingReview, 0, len(reviews))
	for i := range reviews {
		c := reviews[i].Classification
		if c == model.ClassConfirmedTP || c == model.ClassLikelyTP {
			actionable = append(actionable, reviews[i])
		}
	}
	sort.SliceStable(actionable, func(i, j int) bool {
		return actionable[i].RemediationPriority.Rank() < actionable[j].RemediationPriority.Rank()
	})

	recs := make([]string, 0, len(actionable))
	for i := range actionable {
		reasoning := actionable[i].Reasoning
		if len(reasoning) > maxRecommendationReasoning {
			reasoning = reasoning[:maxRecommendationReasoning]
		}
		recs = append(recs, fmt.Sprintf("[%s] Address %s in %s: %s",
			strings.ToUpper(string(actionable[i].RemediationPriority)),
			actionable[i].Detector,
			actionable[i].Title,
			reasoning))
	}

	if len(recs) == 0 {
		recs = append(recs, "No critical issues found. Continue monitoring with regular Aikido scans.")
	}
	return recs
}

// buildReport assembles the full aikido.review.v1 report.
func buildReport(project string, reviews []model.FindingReview, depth string) *model.ReviewReport {
	summary := buildClassificationSummary(reviews)
	score := computeRiskScore(reviews)

	return &model.ReviewReport{
		SchemaVersion:         model.ReviewSchemaVersion,
		Project:               project,
		AikidoVersion:         model.ReportSchemaVersion,
		ReviewDepth:           depth,
		TotalFindings:         len(reviews),
		ClassificationSummary: summary,
		RiskScore:             score,
		RiskLevel:             riskLevel(score),
		ExecutiveSummary:      buildExecutiveSummary(summary, score, len(reviews)),
		FindingReviews:        reviews,
		Recommendations:       buildRecommendations(reviews),
	}
}

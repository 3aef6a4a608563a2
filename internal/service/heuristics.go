package service

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// severityToPriority maps scanner severity to remediation priority.
var severityToPriority = map[string]model.RemediationPriority{
	"critical": model.PriorityCritical,
	"high":     model.PriorityHigh,
	"medium":   model.PriorityMedium,
	"low":      model.PriorityLow,
	"info":     model.PriorityInformational,
}

// highFPDetectors are detectors that are almost always false positives at
// PatternMatch level.
var highFPDetectors = map[string]bool{
	"missing-min-ada-check": true,
	"unused-import":         true,
	"dead-code-path":        true,
}

// witnessRejectionExpr queries the free-form evidence witness payload for a
// simulation rejection. The witness shape varies per analysis lane, so a
// JMESPath over decoded JSON beats a fixed struct.
const witnessRejectionExpr = "rejection_error"

// maxRejectionExcerpt bounds the rejection message quoted in reasoning.
const maxRejectionExcerpt = 120

// witnessRejection extracts the simulation rejection message from an
// evidence witness, if any.
func witnessRejection(witness json.RawMessage) (string, bool) {
	if len(witness) == 0 {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal(witness, &decoded); err != nil {
		return "", false
	}
	result, err := jmespath.Search(witnessRejectionExpr, decoded)
	if err != nil {
		return "", false
	}
	msg, ok := result.(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}

// heuristicClassify classifies one finding using heuristics only, no LLM.
// The caller sets FindingIndex.
func heuristicClassify(finding *model.Finding) model.FindingReview {
	severity := strings.ToLower(finding.Severity)
	confidence := strings.ToLower(finding.Confidence)
	tier := strings.ToLower(finding.ReliabilityTier)

	classification := model.ClassNeedsReview
	reviewerConfidence := 0.5
	var reasoning []string
	var mitigating []string

	// Info severity findings are almost always FP or informational.
	if severity == "info" {
		classification = model.ClassLikelyFP
		reviewerConfidence = 0.7
		reasoning = append(reasoning, "Info severity findings are typically informational, not exploitable.")
	}

	if highFPDetectors[finding.Detector] {
		classification = model.ClassConfirmedFP
		reviewerConfidence = 0.85
		reasoning = append(reasoning, fmt.Sprintf("Detector '%s' is a known high-FP pattern.", finding.Detector))
		if finding.Detector == "missing-min-ada-check" {
			mitigating = append(mitigating, "Cardano ledger enforces minimum ADA at protocol level")
		}
	}

	if ev := finding.Evidence; ev != nil {
		// Corroborated evidence is the strongest signal.
		if ev.Level == "Corroborated" && confidence == "definite" &&
			(severity == "critical" || severity == "high") {
			classification = model.ClassConfirmedTP
			reviewerConfidence = 0.9
			reasoning = append(reasoning,
				"Corroborated evidence with definite confidence: multiple analysis lanes agree.")
		}

		// A simulation rejection is counter-evidence: the validator caught
		// the exploit attempt.
		if rejection, ok := witnessRejection(ev.Witness); ok {
			if len(rejection) > maxRejectionExcerpt {
				rejection = rejection[:maxRejectionExcerpt]
			}
			classification = model.ClassLikelyFP
			reviewerConfidence = 0.75
			reasoning = append(reasoning, fmt.Sprintf(
				"Simulation rejected the exploit: %s. The validator appears to catch this scenario.",
				rejection))
			mitigating = append(mitigating, "Transaction simulation rejected exploit attempt")
		}

		// PatternMatch + possible is the weakest evidence tier.
		if ev.Level == "PatternMatch" && confidence == "possible" &&
			classification == model.ClassNeedsReview {
			classification = model.ClassLikelyFP
			reviewerConfidence = 0.6
			reasoning = append(reasoning, "PatternMatch with 'possible' confidence is the weakest evidence tier.")
		}

		if ev.Details != "" && strings.Contains(strings.ToLower(ev.Details), "inconclusive") {
			reasoning = append(reasoning, "SMT solver was inconclusive: cannot prove or disprove.")
		}
	}

	if tier == "experimental" && classification == model.ClassNeedsReview {
		classification = model.ClassLikelyFP
		reviewerConfidence = 0.55
		reasoning = append(reasoning, "Experimental detector tier has higher expected FP rate.")
	}

	if len(reasoning) == 0 {
		reasoning = append(reasoning, fmt.Sprintf(
			"Heuristic classification based on %s severity, %s confidence, %s tier.",
			severity, confidence, tier))
	}

	priority, ok := severityToPriority[severity]
	if !ok {
		priority = model.PriorityInformational
	}

	return model.FindingReview{
		Detector:            finding.Detector,
		Title:               finding.Title,
		OriginalSeverity:    finding.Severity,
		OriginalConfidence:  finding.Confidence,
		Classification:      classification,
		ReviewerConfidence:  reviewerConfidence,
		Reasoning:           strings.Join(reasoning, " "),
		MitigatingPatterns:  mitigating,
		RemediationPriority: priority,
	}
}

package service

import (
	"fmt"
	"strings"

	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// reviewSystemPrompt frames the model as a Cardano auditor and fixes the
// classification rules and the JSON output contract.
const reviewSystemPrompt = `You are an expert Cardano smart contract security auditor reviewing findings from Aikido, a static analysis platform for Aiken smart contracts. Your job is to classify each finding as a true positive or false positive, with detailed reasoning.

## Cardano / Aiken Domain Knowledge

### Validator Structure
- Aiken validators receive (datum, redeemer, script_context).
- script_context.transaction provides inputs, outputs, extra_signatories, mint, validity_range.
- Validators return True/False (or use expect/fail for early exit).

### Common Security Patterns
- **Signature checks**: list.has(ctx.transaction.extra_signatories, pkh) is the standard authorization pattern. Presence of this check means the handler is properly guarded.
- **UTXO authentication**: Protocol NFTs (minting policy tokens) authenticate UTXOs. If a handler checks for a specific policy ID token in inputs, it's using NFT-based auth.
- **Datum continuity**: Checking that the continuing output datum matches expected state transition. Pattern: expect InlineDatum(new_datum) = output.datum followed by field checks.
- **Value preservation**: Ensuring continuing outputs hold >= expected value. value.lovelace_of, value.quantity_of, value.merge are standard functions.
- **Validity range checks**: interval.is_before, interval.is_after for time-locked logic. Plutus V3 uses POSIX milliseconds.
- **Withdraw-zero delegation**: A legitimate pattern where a staking validator is used to authorize actions via the withdraw-zero trick. This is NOT a vulnerability; it's an intentional multi-validator coordination mechanism.
- **expect is safe**: expect Some(x) = optional_value is the idiomatic Aiken way to safely deconstruct optional/variant types. It causes the transaction to fail if the pattern doesn't match. This IS proper error handling.
- **Multi-validator coordination**: Validators that share protocol tokens or use withdraw(0) for cross-validator authorization are a well-established pattern.

### Aiken-Specific Patterns
- when redeemer is { ... } branches handle different actions.
- list.filter, list.find, list.any, list.has are common list operations.
- expect [output] = ... destructures a singleton list (fails if != 1 element).
- Type constructors like VerificationKeyCredential(hash) in output.address.payment_credential.
- builtin.serialise_data for hashing datums/data.

## Aikido Evidence Levels (strongest to weakest)

1. **Corroborated** (Level 4): Multiple analysis lanes agree. Strongest evidence.
2. **SimulationConfirmed** (Level 3): UPLC bytecode execution confirmed exploitability.
3. **SmtProven** (Level 2): SMT solver proved a satisfying assignment exists.
4. **PathVerified** (Level 1): CFG analysis found a concrete execution path.
5. **PatternMatch** (Level 0): Static AST pattern match only. Most FP-prone.

### Evidence Interpretation
- When witness.rejection_error is present, the simulation REJECTED the exploit attempt. This is evidence that the vulnerability may NOT be exploitable; the validator caught it.
- "SMT inconclusive" means the solver couldn't prove or disprove. Treat as PatternMatch.
- confidence_boost: 0.0 with PatternMatch = weakest possible evidence.
- confidence_boost: 1.0 with Corroborated = strongest possible evidence.

### Detector Reliability Tiers
- **stable**: Well-tested, low false positive rate.
- **beta**: Reasonably tested, moderate FP rate.
- **experimental**: New detector, higher FP rate expected.

### Classification Rules
- Corroborated + Definite + Critical/High severity -> **confirmed_tp** (almost certainly real)
- SimulationConfirmed without rejection_error -> **likely_tp**
- Simulation with rejection_error -> **likely_fp** (validator caught the exploit)
- PatternMatch + Possible confidence -> **likely_fp** (weakest evidence, needs proof before treating as real)
- Experimental detector + PatternMatch -> **likely_fp**
- Evidence of mitigating pattern in source code that static analysis missed -> **confirmed_fp** with reasoning
- Info severity + Possible confidence -> usually **confirmed_fp** or **likely_fp**
- Dead code / unused import findings -> **confirmed_fp** unless the code should be active

### Consolidation Awareness
- state-transition-integrity absorbs arbitrary-datum-in-output and missing-datum-in-script-output.
- When the survivor is present, absorbed findings should not be double-counted.
- The related_findings field lists which findings were consolidated.

## Output Format

For each finding, respond with valid JSON:
` + "```json" + `
{
  "classification": "confirmed_tp|likely_tp|needs_review|likely_fp|confirmed_fp",
  "reviewer_confidence": 0.0-1.0,
  "reasoning": "Detailed explanation of why this classification was chosen",
  "mitigating_patterns": ["pattern1", "pattern2"],
  "exploitation_scenario": "How this could be exploited, or null if FP",
  "remediation_priority": "critical|high|medium|low|informational",
  "evidence_assessment": "Assessment of the evidence quality"
}
` + "```" + `

Be precise. Reference specific code patterns, line numbers, and function calls in your reasoning.`

// buildFindingPrompt renders the user prompt for one finding with its
// snippet, full module source, and sibling findings when available.
func buildFindingPrompt(finding *model.Finding, index int, snippet, fullSource string, related []*model.Finding) string {
	parts := []string{fmt.Sprintf("## Finding #%d: %s\n", index, finding.Title)}

	parts = append(parts,
		fmt.Sprintf("**Detector**: %s (%s)", finding.Detector, finding.ReliabilityTier),
		fmt.Sprintf("**Severity**: %s | **Confidence**: %s", finding.Severity, finding.Confidence),
		fmt.Sprintf("**Module**: %s", finding.Module),
	)

	if finding.Cwc != nil {
		parts = append(parts, fmt.Sprintf("**CWC**: %s, %s (%s)",
			finding.Cwc.ID, finding.Cwc.Name, finding.Cwc.Severity))
	}

	parts = append(parts, fmt.Sprintf("\n**Description**: %s", finding.Description))

	if finding.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n**Suggestion**: %s", finding.Suggestion))
	}

	if loc := finding.Location; loc != nil {
		locStr := loc.Path
		if loc.LineStart > 0 {
			locStr += fmt.Sprintf(":%d", loc.LineStart)
			if loc.LineEnd > 0 && loc.LineEnd != loc.LineStart {
				locStr += fmt.Sprintf("-%d", loc.LineEnd)
			}
		}
		parts = append(parts, fmt.Sprintf("\n**Location**: %s", locStr))
	}

	if ev := finding.Evidence; ev != nil {
		parts = append(parts,
			fmt.Sprintf("\n**Evidence Level**: %s", ev.Level),
			fmt.Sprintf("**Method**: %s", ev.Method),
		)
		if ev.Details != "" {
			parts = append(parts, fmt.Sprintf("**Details**: %s", ev.Details))
		}
		if len(ev.Witness) > 0 {
			parts = append(parts, fmt.Sprintf("**Witness**: %s", string(ev.Witness)))
		}
		parts = append(parts, fmt.Sprintf("**Confidence Boost**: %v", ev.ConfidenceBoost))
	}

	if len(finding.RelatedFindings) > 0 {
		parts = append(parts, fmt.Sprintf("\n**Consolidated from**: %s",
			strings.Join(finding.RelatedFindings, ", ")))
	}

	if snippet != "" {
		parts = append(parts, fmt.Sprintf("\n### Source Code (around finding location)\n```aiken\n%s\n```", snippet))
	}

	if fullSource != "" {
		parts = append(parts, fmt.Sprintf("\n### Full Module Source\n```aiken\n%s\n```", fullSource))
	}

	if len(related) > 0 {
		parts = append(parts, "\n### Other findings in same module:")
		for _, rf := range related {
			parts = append(parts, fmt.Sprintf("- [%s/%s] %s: %s",
				rf.Severity, rf.Confidence, rf.Detector, rf.Title))
		}
	}

	parts = append(parts, "\nClassify this finding. Respond with JSON only.")
	return strings.Join(parts, "\n")
}

// batchItem pairs a finding with its original index and optional snippet for
// a batched prompt.
type batchItem struct {
	index   int
	finding *model.Finding
	snippet string
}

// buildBatchPrompt renders a single prompt covering several medium/low
// severity findings, answered with a JSON array.
func buildBatchPrompt(items []batchItem) string {
	parts := []string{"Review each of the following findings. Respond with a JSON array of review objects.\n"}

	for _, item := range items {
		f := item.finding
		parts = append(parts,
			fmt.Sprintf("### Finding #%d: %s", item.index, f.Title),
			fmt.Sprintf("Detector: %s (%s)", f.Detector, f.ReliabilityTier),
			fmt.Sprintf("Severity: %s | Confidence: %s", f.Severity, f.Confidence),
			fmt.Sprintf("Module: %s", f.Module),
			fmt.Sprintf("Description: %s", f.Description),
		)
		if f.Evidence != nil {
			parts = append(parts, fmt.Sprintf("Evidence: %s (%s)", f.Evidence.Level, f.Evidence.Method))
		}
		if item.snippet != "" {
			parts = append(parts, fmt.Sprintf("```aiken\n%s\n```", item.snippet))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "Respond with a JSON array of review objects, one per finding, in order.")
	return strings.Join(parts, "\n")
}

// buildCorrelationPrompt renders the deep-mode second pass prompt: a summary
// of all verdicts plus snippets for the findings still marked needs_review.
func buildCorrelationPrompt(reviews []model.FindingReview, needsReview []model.FindingReview, findings []model.Finding, sourceFiles map[string]string) string {
	parts := []string{"## Review Summary So Far\n"}
	for i := range reviews {
		r := &reviews[i]
		reasoning := r.Reasoning
		if len(reasoning) > 100 {
			reasoning = reasoning[:100]
		}
		parts = append(parts, fmt.Sprintf("#%d [%s] %s (confidence: %.2f): %s...",
			r.FindingIndex, r.Detector, r.Classification, r.ReviewerConfidence, reasoning))
	}

	parts = append(parts, "\n## Correlation Task\n"+
		"Given the full context of all findings above, re-evaluate the 'needs_review' findings. "+
		"Consider: Are multiple findings pointing at the same root cause? Does a mitigating "+
		"pattern found for one finding also apply to others in the same module? "+
		"Respond with a JSON array of updated review objects for ONLY the needs_review findings.")

	for i := range needsReview {
		idx := needsReview[i].FindingIndex
		if idx < 0 || idx >= len(findings) {
			continue
		}
		if snippet := findingSnippet(&findings[idx], sourceFiles); snippet != "" {
			parts = append(parts, fmt.Sprintf("\n### Finding #%d\n```aiken\n%s\n```", idx, snippet))
		}
	}

	return strings.Join(parts, "\n")
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sokosumi/aikido-reviewer/internal/core"
	"github.com/sokosumi/aikido-reviewer/internal/domain/model"
)

// Review depth modes.
const (
	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

const (
	defaultMaxTokens     = 2048
	defaultBatchSize     = 5
	defaultMaxConcurrent = 5
)

// ReviewServiceOptions groups dependencies for ReviewService.
type ReviewServiceOptions struct {
	LLM           core.LLMClient // Optional: nil degrades every depth to heuristics
	Logger        *slog.Logger   // Optional: structured logger
	MaxTokens     int            // Optional: per-call token budget
	BatchSize     int            // Optional: findings per batched call
	MaxConcurrent int            // Optional: concurrent LLM calls
}

// ReviewService classifies scanner findings into true/false positive
// verdicts and assembles the risk-scored review report.
//
// Depth controls how much work is done per finding:
// - quick: heuristics only, no LLM calls
// - standard: critical/high reviewed individually, the rest batched
// - deep: standard plus a correlation pass over needs_review findings.
type ReviewService struct {
	llm           core.LLMClient
	logger        *slog.Logger
	maxTokens     int
	batchSize     int
	maxConcurrent int
}

// NewReviewService constructs a new ReviewService.
func NewReviewService(opts ReviewServiceOptions) (*ReviewService, error) {
	if opts.MaxTokens < 0 || opts.BatchSize < 0 || opts.MaxConcurrent < 0 {
		return nil, errors.New("limits must not be negative")
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxConcurrent == 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "review_service")
	}

	return &ReviewService{
		llm:           opts.LLM,
		logger:        logger,
		maxTokens:     opts.MaxTokens,
		batchSize:     opts.BatchSize,
		maxConcurrent: opts.MaxConcurrent,
	}, nil
}

// MustNewReviewService constructs a new ReviewService and panics on error.
func MustNewReviewService(opts ReviewServiceOptions) *ReviewService {
	svc, err := NewReviewService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ReviewService: %v", err))
	}
	return svc
}

// Analyze implements core.Analyzer.
func (s *ReviewService) Analyze(ctx context.Context, params core.AnalyzeParams) (*model.ReviewReport, error) {
	if params.Report == nil {
		return nil, errors.New("report is required")
	}

	depth := params.ReviewDepth
	if depth == "" {
		depth = DepthStandard
	}

	reviews, err := s.reviewFindings(ctx, params.Report.Findings, params.SourceFiles, depth)
	if err != nil {
		return nil, err
	}

	return buildReport(params.Report.Project, reviews, depth), nil
}

// reviewFindings produces one FindingReview per finding, ordered by finding
// index.
func (s *ReviewService) reviewFindings(ctx context.Context, findings []model.Finding, sourceFiles map[string]string, depth string) ([]model.FindingReview, error) {
	if depth == DepthQuick || s.llm == nil {
		return heuristicReviews(findings), nil
	}

	var criticalHigh, rest []int
	for i := range findings {
		switch strings.ToLower(findings[i].Severity) {
		case "critical", "high":
			criticalHigh = append(criticalHigh, i)
		default:
			rest = append(rest, i)
		}
	}

	reviews := make([]model.FindingReview, len(findings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, idx := range criticalHigh {
		idx := idx
		g.Go(func() error {
			reviews[idx] = s.reviewSingle(gctx, &findings[idx], idx, sourceFiles, findings)
			return nil
		})
	}

	for start := 0; start < len(rest); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rest) {
			end = len(rest)
		}
		batch := rest[start:end]
		g.Go(func() error {
			for idx, review := range s.reviewBatch(gctx, batch, findings, sourceFiles) {
				reviews[idx] = review
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if depth == DepthDeep {
		reviews = s.correlationPass(ctx, reviews, findings, sourceFiles)
	}

	return reviews, nil
}

// heuristicReviews classifies every finding without LLM calls.
func heuristicReviews(findings []model.Finding) []model.FindingReview {
	reviews := make([]model.FindingReview, len(findings))
	for i := range findings {
		review := heuristicClassify(&findings[i])
		review.FindingIndex = i
		reviews[i] = review
	}
	return reviews
}

// reviewSingle reviews one critical/high finding via LLM. LLM failure falls
// back to the heuristic verdict, annotated so buyers can see the degradation.
func (s *ReviewService) reviewSingle(ctx context.Context, finding *model.Finding, index int, sourceFiles map[string]string, all []model.Finding) model.FindingReview {
	snippet := findingSnippet(finding, sourceFiles)
	fullSource := fullModuleSource(finding, sourceFiles)

	var related []*model.Finding
	for i := range all {
		if all[i].Module == finding.Module && i != index {
			related = append(related, &all[i])
		}
	}

	prompt := buildFindingPrompt(finding, index, snippet, fullSource, related)

	text, err := s.llm.Complete(ctx, core.LLMRequest{
		System:    reviewSystemPrompt,
		Messages:  []core.LLMMessage{{Role: "user", Content: prompt}},
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "llm call failed",
				"finding_index", index, "error", err)
		}
		review := heuristicClassify(finding)
		review.FindingIndex = index
		review.Reasoning = fmt.Sprintf("[LLM error: %v, heuristic fallback] %s", err, review.Reasoning)
		return review
	}

	data, ok := parseReviewJSON(text)
	if !ok && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to parse llm response, falling back to heuristic",
			"detector", finding.Detector)
	}
	return jsonToReview(data, finding, index)
}

// reviewBatch reviews a batch of medium/low/info findings with one LLM call.
// Returns a map of finding index to review.
func (s *ReviewService) reviewBatch(ctx context.Context, indexes []int, findings []model.Finding, sourceFiles map[string]string) map[int]model.FindingReview {
	items := make([]batchItem, 0, len(indexes))
	for _, idx := range indexes {
		items = append(items, batchItem{
			index:   idx,
			finding: &findings[idx],
			snippet: findingSnippet(&findings[idx], sourceFiles),
		})
	}

	out := make(map[int]model.FindingReview, len(indexes))

	text, err := s.llm.Complete(ctx, core.LLMRequest{
		System:    reviewSystemPrompt,
		Messages:  []core.LLMMessage{{Role: "user", Content: buildBatchPrompt(items)}},
		MaxTokens: s.maxTokens * 2,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "batch llm call failed", "error", err)
		}
		for _, idx := range indexes {
			review := heuristicClassify(&findings[idx])
			review.FindingIndex = idx
			review.Reasoning = fmt.Sprintf("[Batch LLM error: %v, heuristic fallback] %s", err, review.Reasoning)
			out[idx] = review
		}
		return out
	}

	results := parseReviewJSONArray(text)
	for i, item := range items {
		if i < len(results) && results[i] != nil {
			out[item.index] = jsonToReview(results[i], item.finding, item.index)
			continue
		}
		review := heuristicClassify(item.finding)
		review.FindingIndex = item.index
		out[item.index] = review
	}
	return out
}

// correlationPass re-evaluates the needs_review findings against the full
// verdict context. Failures leave the first-pass verdicts untouched.
func (s *ReviewService) correlationPass(ctx context.Context, reviews []model.FindingReview, findings []model.Finding, sourceFiles map[string]string) []model.FindingReview {
	var needsReview []model.FindingReview
	for i := range reviews {
		if reviews[i].Classification == model.ClassNeedsReview {
			needsReview = append(needsReview, reviews[i])
		}
	}
	if len(needsReview) == 0 {
		return reviews
	}

	prompt := buildCorrelationPrompt(reviews, needsReview, findings, sourceFiles)

	text, err := s.llm.Complete(ctx, core.LLMRequest{
		System:    reviewSystemPrompt,
		Messages:  []core.LLMMessage{{Role: "user", Content: prompt}},
		MaxTokens: s.maxTokens * 2,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "correlation pass failed", "error", err)
		}
		return reviews
	}

	updated := parseReviewJSONArray(text)

	merged := make(map[int]model.FindingReview, len(reviews))
	for i := range reviews {
		merged[reviews[i].FindingIndex] = reviews[i]
	}
	for i := range needsReview {
		if i < len(updated) && updated[i] != nil {
			idx := needsReview[i].FindingIndex
			merged[idx] = jsonToReview(updated[i], &findings[idx], idx)
		}
	}

	result := make([]model.FindingReview, 0, len(merged))
	for _, r := range merged {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FindingIndex < result[j].FindingIndex
	})
	return result
}

// stripCodeFences removes markdown code fence lines from an LLM response.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// parseReviewJSON decodes a single review object from an LLM response,
// tolerating code fences and surrounding prose.
func parseReviewJSON(text string) (map[string]json.RawMessage, bool) {
	text = stripCodeFences(text)

	var data map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &data); err == nil {
		return data, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}") + 1
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end]), &data); err == nil {
			return data, true
		}
	}
	return nil, false
}

// parseReviewJSONArray decodes a JSON array of review objects, tolerating
// code fences and surrounding prose. Non-object elements come back nil.
func parseReviewJSONArray(text string) []map[string]json.RawMessage {
	text = stripCodeFences(text)

	var results []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &results); err == nil {
		return results
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]") + 1
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end]), &results); err == nil {
			return results
		}
	}
	return nil
}

// jsonToReview converts a parsed review object to a FindingReview, filling
// defaults for missing or invalid fields. A nil object degrades to the
// heuristic verdict.
func jsonToReview(data map[string]json.RawMessage, finding *model.Finding, index int) model.FindingReview {
	if data == nil {
		review := heuristicClassify(finding)
		review.FindingIndex = index
		review.Reasoning = "[LLM parse failed, heuristic fallback] " + review.Reasoning
		return review
	}

	classification := model.Classification(jsonString(data, "classification", string(model.ClassNeedsReview)))
	if !classification.Valid() {
		classification = model.ClassNeedsReview
	}

	priority := model.RemediationPriority(jsonString(data, "remediation_priority", string(model.PriorityInformational)))
	if !priority.Valid() {
		var ok bool
		priority, ok = severityToPriority[strings.ToLower(finding.Severity)]
		if !ok {
			priority = model.PriorityInformational
		}
	}

	confidence := jsonFloat(data, "reviewer_confidence", 0.5)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.FindingReview{
		FindingIndex:         index,
		Detector:             finding.Detector,
		Title:                finding.Title,
		OriginalSeverity:     finding.Severity,
		OriginalConfidence:   finding.Confidence,
		Classification:       classification,
		ReviewerConfidence:   confidence,
		Reasoning:            jsonString(data, "reasoning", "No reasoning provided."),
		MitigatingPatterns:   jsonStringSlice(data, "mitigating_patterns"),
		ExploitationScenario: jsonString(data, "exploitation_scenario", ""),
		RemediationPriority:  priority,
		EvidenceAssessment:   jsonString(data, "evidence_assessment", ""),
	}
}

func jsonString(data map[string]json.RawMessage, key, fallback string) string {
	raw, ok := data[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

func jsonFloat(data map[string]json.RawMessage, key string, fallback float64) float64 {
	raw, ok := data[key]
	if !ok {
		return fallback
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return fallback
	}
	return f
}

func jsonStringSlice(data map[string]json.RawMessage, key string) []string {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

package domain

import (
	"fmt"

	"callqa_backend/platform/apperr"
	"callqa_backend/platform/validator"
)

// ScoringResult is the full evaluation produced by the scoring provider for
// one call. It is validated at the provider boundary; a result that fails
// validation is never persisted.
type ScoringResult struct {
	LanguageSpoken string `json:"language_spoken"`

	SOPComplianceScore          float64 `json:"sop_compliance_score" validate:"min=0,max=1"`
	CommunicationScore          float64 `json:"communication_score" validate:"min=0,max=1"`
	SentimentStabilizationScore float64 `json:"sentiment_stabilization_score" validate:"min=0,max=1"`
	ResolutionValidityScore     float64 `json:"resolution_validity_score" validate:"min=0,max=1"`
	OverallQualityScore         float64 `json:"overall_quality_score" validate:"min=0,max=1"`
	CoachingPriority            float64 `json:"coaching_priority" validate:"min=0,max=1"`

	EscalationRisk bool   `json:"escalation_risk"`
	WhyFlagged     string `json:"why_flagged"`

	BusinessInsight string `json:"business_insight"`
	CoachingInsight string `json:"coaching_insight"`

	IssueAnalysis       map[string]any    `json:"issue_analysis"`
	ResolutionAnalysis  map[string]any    `json:"resolution_analysis"`
	SOPDeviations       []Deviation       `json:"sop_deviations"`
	SentimentTrajectory []SentimentSample `json:"sentiment_trajectory"`
}

// Quantized score levels. The validator's oneof tag only handles string and
// integer kinds, so membership is checked explicitly in Validate.
var (
	sentimentLevels  = []float64{0, 0.5, 1}
	resolutionLevels = []float64{0, 0.75, 1}
)

func quantized(score float64, levels []float64) bool {
	for _, l := range levels {
		if score == l {
			return true
		}
	}
	return false
}

// Validate enforces score ranges, the quantized score sets and the
// escalation rationale rule. Violations are permanent: the provider returned
// a malformed result and retrying the same input will not fix it.
func (r *ScoringResult) Validate(v *validator.Validator) error {
	if err := v.Struct(r); err != nil {
		return apperr.Invariant(fmt.Sprintf("scoring result failed validation: %v", err))
	}
	if !quantized(r.SentimentStabilizationScore, sentimentLevels) {
		return apperr.Invariant(fmt.Sprintf("sentiment_stabilization_score %v is not one of 0, 0.5, 1", r.SentimentStabilizationScore))
	}
	if !quantized(r.ResolutionValidityScore, resolutionLevels) {
		return apperr.Invariant(fmt.Sprintf("resolution_validity_score %v is not one of 0, 0.75, 1", r.ResolutionValidityScore))
	}
	if r.EscalationRisk && r.WhyFlagged == "" {
		return apperr.Invariant("escalation risk flagged without a rationale")
	}
	return nil
}

// ToInsight materializes the result as the insight row for callID, carrying
// the staged transcript along.
func (r *ScoringResult) ToInsight(call *Call, transcript string) *CallInsight {
	ins := &CallInsight{
		CallID:                      call.ID,
		SOPComplianceScore:          r.SOPComplianceScore,
		CommunicationScore:          r.CommunicationScore,
		SentimentStabilizationScore: r.SentimentStabilizationScore,
		ResolutionValidityScore:     r.ResolutionValidityScore,
		OverallQualityScore:         r.OverallQualityScore,
		CoachingPriority:            r.CoachingPriority,
		EscalationRisk:              r.EscalationRisk,
		IssueAnalysis:               r.IssueAnalysis,
		ResolutionAnalysis:          r.ResolutionAnalysis,
		SOPDeviations:               r.SOPDeviations,
		SentimentTrajectory:         r.SentimentTrajectory,
	}
	if transcript != "" {
		ins.Transcript = &transcript
	}
	if r.LanguageSpoken != "" {
		ins.LanguageSpoken = &r.LanguageSpoken
	}
	if r.WhyFlagged != "" {
		ins.WhyFlagged = &r.WhyFlagged
	}
	if r.BusinessInsight != "" {
		ins.BusinessInsight = &r.BusinessInsight
	}
	if r.CoachingInsight != "" {
		ins.CoachingInsight = &r.CoachingInsight
	}
	return ins
}

package domain

import (
	"testing"

	"callqa_backend/platform/apperr"
	"callqa_backend/platform/validator"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusTranscribed, true},
		{StatusPending, StatusAnalyzed, true},
		{StatusPending, StatusFailed, true},
		{StatusTranscribed, StatusAnalyzed, true},
		{StatusTranscribed, StatusFailed, true},
		{StatusTranscribed, StatusTranscribed, false},
		{StatusTranscribed, StatusPending, false},
		{StatusAnalyzed, StatusFailed, false},
		{StatusAnalyzed, StatusTranscribed, false},
		{StatusFailed, StatusAnalyzed, false},
		{StatusFailed, StatusTranscribed, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusTranscribed.Terminal() {
		t.Fatal("pending and transcribed must not be terminal")
	}
	if !StatusAnalyzed.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("analyzed and failed must be terminal")
	}
}

func TestValidCallContext(t *testing.T) {
	for _, c := range CallContexts {
		if !ValidCallContext(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}
	if ValidCallContext("URGENT") {
		t.Error("unknown context accepted")
	}
}

func validResult() ScoringResult {
	return ScoringResult{
		LanguageSpoken:              "hindi",
		SOPComplianceScore:          0.8,
		CommunicationScore:          0.9,
		SentimentStabilizationScore: 0.5,
		ResolutionValidityScore:     0.75,
		OverallQualityScore:         0.82,
		CoachingPriority:            0.3,
	}
}

func TestScoringResultValidate(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name   string
		mutate func(*ScoringResult)
		wantOK bool
	}{
		{"valid", func(r *ScoringResult) {}, true},
		{"sop out of range", func(r *ScoringResult) { r.SOPComplianceScore = 1.2 }, false},
		{"negative communication", func(r *ScoringResult) { r.CommunicationScore = -0.1 }, false},
		{"sentiment not quantized", func(r *ScoringResult) { r.SentimentStabilizationScore = 0.7 }, false},
		{"sentiment full ok", func(r *ScoringResult) { r.SentimentStabilizationScore = 1 }, true},
		{"resolution not quantized", func(r *ScoringResult) { r.ResolutionValidityScore = 0.5 }, false},
		{"resolution zero ok", func(r *ScoringResult) { r.ResolutionValidityScore = 0 }, true},
		{"escalation without rationale", func(r *ScoringResult) { r.EscalationRisk = true }, false},
		{"escalation with rationale", func(r *ScoringResult) {
			r.EscalationRisk = true
			r.WhyFlagged = "customer threatened regulator complaint"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validResult()
			tt.mutate(&r)
			err := r.Validate(v)
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !apperr.Is(err, apperr.KindInvariant) {
					t.Fatalf("expected invariant error, got %v", err)
				}
			}
		})
	}
}

func TestIsEmergency(t *testing.T) {
	category := "Emergency Service"
	billing := "Billing"
	why := "gas leak reported"

	call := &Call{PrimaryIssueCategory: &billing}
	if call.IsEmergency(nil) {
		t.Fatal("billing call without escalation flagged as emergency")
	}
	if !call.IsEmergency(&CallInsight{EscalationRisk: true, WhyFlagged: &why}) {
		t.Fatal("escalation-flagged call not treated as emergency")
	}
	call = &Call{PrimaryIssueCategory: &category}
	if !call.IsEmergency(nil) {
		t.Fatal("emergency category not treated as emergency")
	}
}

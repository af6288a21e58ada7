package scorer

import (
	"strings"
	"testing"

	"callqa_backend/platform/apperr"
)

const sampleResponse = `{
	"language_spoken": "hindi",
	"sop_compliance_score": 0.8,
	"communication_score": 0.9,
	"sentiment_stabilization_score": 0.5,
	"resolution_validity_score": 0.75,
	"overall_quality_score": 0.82,
	"coaching_priority": 0.3,
	"escalation_risk": true,
	"why_flagged": "customer mentioned complaining to the regulator",
	"business_insight": "Repeat billing disputes in this area.",
	"coaching_insight": "Confirm the complaint number before closing.",
	"issue_analysis": {"category": "billing", "summary": "disputed arrears"},
	"resolution_analysis": {"resolved": false, "summary": "escalated to billing team"},
	"sop_deviations": [{"step": "identity check", "description": "skipped", "severity": "medium"}],
	"sentiment_trajectory": [{"turn": 1, "speaker": "customer", "sentiment": -0.6}]
}`

func TestParseResult(t *testing.T) {
	result, err := parseResult(sampleResponse)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.LanguageSpoken != "hindi" {
		t.Errorf("language = %q", result.LanguageSpoken)
	}
	if result.SentimentStabilizationScore != 0.5 {
		t.Errorf("sentiment = %v", result.SentimentStabilizationScore)
	}
	if !result.EscalationRisk || result.WhyFlagged == "" {
		t.Error("escalation flag lost")
	}
	if len(result.SOPDeviations) != 1 || result.SOPDeviations[0].Step != "identity check" {
		t.Errorf("deviations = %+v", result.SOPDeviations)
	}
	if len(result.SentimentTrajectory) != 1 || result.SentimentTrajectory[0].Sentiment != -0.6 {
		t.Errorf("trajectory = %+v", result.SentimentTrajectory)
	}
}

func TestParseResultStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + sampleResponse + "\n```"
	result, err := parseResult(fenced)
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if result.OverallQualityScore != 0.82 {
		t.Errorf("overall quality = %v", result.OverallQualityScore)
	}
}

func TestParseResultRejectsGarbage(t *testing.T) {
	_, err := parseResult("the call went fine overall")
	if !apperr.Is(err, apperr.KindInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
}

func TestBuildUserPromptIncludesMetadata(t *testing.T) {
	prompt := buildUserPrompt("namaste", CallContext{
		CallContext:          "FOLLOW_UP",
		PrimaryIssueCategory: "Billing",
		AgentManualNote:      "customer called twice today",
	})
	for _, want := range []string{"FOLLOW_UP", "Billing", "customer called twice today", "namaste"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

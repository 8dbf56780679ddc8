package template

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ioc-radar/backend/internal/model"
)

func TestRenderBody(t *testing.T) {
	scored := model.ScoredAlert{
		Alert: model.Alert{
			ID:        "a-1",
			Summary:   "Citrix ADC RCE",
			CVSS:      9.8,
			Published: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		},
		RelevanceScore:   13,
		MatchedKeywords:  []model.MatchedKeyword{{Category: "server", Word: "citrix"}},
		IndustryRelevant: true,
	}
	client := ClientDataFromProfile(model.ClientProfile{CompanyName: "Acme", Industry: "finance"})
	alert := AlertDataFromScored(scored)

	got := RenderBody("[{{alert.severity}}] {{client.company}}: {{alert.summary}} ({{alert.cvss}}, score {{alert.relevance_score}}) {{alert.matched_keywords}} @ {{alert.published}}", &client, &alert)
	want := "[critical] Acme: Citrix ADC RCE (9.8, score 13) server:citrix @ 2024-03-01T08:00:00Z"
	if got != want {
		t.Fatalf("RenderBody() = %q, want %q", got, want)
	}
}

func TestRenderBodyNilData(t *testing.T) {
	got := RenderBody("{{client.company}}|{{alert.id}}|{{alert.cvss}}", nil, nil)
	if got != "||" {
		t.Fatalf("RenderBody() = %q, want empty substitutions", got)
	}
}

func TestRenderBodyEscapesJSON(t *testing.T) {
	alert := AlertData{Summary: `Quote " and newline` + "\n", CVSS: 5}
	body := RenderBody(`{"text": "{{alert.summary}}", "score": {{alert.relevance_score}}}`, nil, &alert)

	var decoded struct {
		Text  string `json:"text"`
		Score int    `json:"score"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("rendered body is not valid JSON: %v (%s)", err, body)
	}
	if decoded.Text != alert.Summary {
		t.Fatalf("text = %q, want %q", decoded.Text, alert.Summary)
	}
}

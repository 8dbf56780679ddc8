// Package template provides webhook body template rendering.
//
// 지원하는 변수 형식:
//
//	{{client.company}}, {{client.contact}}, {{client.industry}}, {{client.plan}}
//
//	{{alert.id}}, {{alert.summary}}, {{alert.description}}, {{alert.cvss}},
//	{{alert.severity}}, {{alert.published}}, {{alert.relevance_score}},
//	{{alert.matched_keywords}}, {{alert.industry_relevant}}
//
// body가 JSON 객체/배열로 시작하면 값은 JSON 문자열 규칙으로 escape 된다.
package template

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ioc-radar/backend/internal/model"
)

// ClientData - 템플릿 렌더링에 사용할 고객 데이터
type ClientData struct {
	Company  string
	Contact  string
	Industry string
	Plan     string
}

// AlertData - 템플릿 렌더링에 사용할 관련 알림 데이터
type AlertData struct {
	ID               string
	Summary          string
	Description      string
	CVSS             float64
	Published        time.Time
	RelevanceScore   int
	MatchedKeywords  []model.MatchedKeyword
	IndustryRelevant bool
}

// ClientDataFromProfile - ClientProfile에서 ClientData 생성
func ClientDataFromProfile(p model.ClientProfile) ClientData {
	return ClientData{
		Company:  p.CompanyName,
		Contact:  p.ContactName,
		Industry: p.Industry,
		Plan:     p.SubscriptionPlan,
	}
}

// AlertDataFromScored - ScoredAlert에서 AlertData 생성
func AlertDataFromScored(a model.ScoredAlert) AlertData {
	return AlertData{
		ID:               a.ID,
		Summary:          a.Summary,
		Description:      a.Description,
		CVSS:             a.CVSS,
		Published:        a.Published,
		RelevanceScore:   a.RelevanceScore,
		MatchedKeywords:  a.MatchedKeywords,
		IndustryRelevant: a.IndustryRelevant,
	}
}

// RenderBody - webhook body 템플릿의 변수를 실제 값으로 치환
//
// client 또는 alert 중 하나만 전달해도 동작합니다.
// nil로 전달된 항목의 변수는 빈 문자열로 치환됩니다.
func RenderBody(body string, client *ClientData, alert *AlertData) string {
	esc := identity
	if looksLikeJSON(body) {
		esc = jsonEscape
	}

	pairs := make([]string, 0, 26)

	// --- Client 변수 ---
	if client == nil {
		client = &ClientData{}
	}
	pairs = append(pairs,
		"{{client.company}}", esc(client.Company),
		"{{client.contact}}", esc(client.Contact),
		"{{client.industry}}", esc(client.Industry),
		"{{client.plan}}", esc(client.Plan),
	)

	// --- Alert 변수 ---
	if alert != nil {
		published := ""
		if !alert.Published.IsZero() {
			published = alert.Published.Format(time.RFC3339)
		}
		pairs = append(pairs,
			"{{alert.id}}", esc(alert.ID),
			"{{alert.summary}}", esc(alert.Summary),
			"{{alert.description}}", esc(alert.Description),
			"{{alert.cvss}}", strconv.FormatFloat(alert.CVSS, 'f', 1, 64),
			"{{alert.severity}}", model.SeverityOf(alert.CVSS),
			"{{alert.published}}", published,
			"{{alert.relevance_score}}", strconv.Itoa(alert.RelevanceScore),
			"{{alert.matched_keywords}}", esc(joinMatches(alert.MatchedKeywords)),
			"{{alert.industry_relevant}}", strconv.FormatBool(alert.IndustryRelevant),
		)
	} else {
		for _, key := range []string{
			"{{alert.id}}", "{{alert.summary}}", "{{alert.description}}", "{{alert.cvss}}",
			"{{alert.severity}}", "{{alert.published}}", "{{alert.relevance_score}}",
			"{{alert.matched_keywords}}", "{{alert.industry_relevant}}",
		} {
			pairs = append(pairs, key, "")
		}
	}

	return strings.NewReplacer(pairs...).Replace(body)
}

func joinMatches(matches []model.MatchedKeyword) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Category+":"+m.Word)
	}
	return strings.Join(parts, ", ")
}

func looksLikeJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func identity(s string) string { return s }

// jsonEscape - 따옴표 없이 JSON 문자열 내용만 반환
func jsonEscape(s string) string {
	raw, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(raw[1 : len(raw)-1])
}

package relevance

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ioc-radar/backend/internal/model"
)

// Scorer - 알림 텍스트와 IOC 키워드의 부분 문자열 매칭으로 관련도 계산
// 입력을 변경하지 않으며 같은 입력에는 항상 같은 결과를 돌려준다
type Scorer struct {
	profile Profile
}

func NewScorer(profile Profile) *Scorer {
	return &Scorer{profile: profile}
}

func (s *Scorer) Profile() Profile {
	return s.profile
}

// Score - 키워드 매칭 점수와 매칭된 키워드 목록
// 매칭이 하나도 없으면 CVSS 가산점 없이 0점
func (s *Scorer) Score(alert model.Alert, keywords KeywordSet) (int, []model.MatchedKeyword) {
	text := strings.ToLower(alert.Text())
	weights := s.profile.Weights

	score := 0
	var matched []model.MatchedKeyword
	check := func(category string, tokens []string, weight int, minLen int) {
		var seen map[string]struct{}
		if s.profile.DedupeTokens {
			seen = make(map[string]struct{}, len(tokens))
		}
		for _, token := range tokens {
			if token == "" || utf8.RuneCountInString(token) <= minLen {
				continue
			}
			if seen != nil {
				if _, dup := seen[token]; dup {
					continue
				}
				seen[token] = struct{}{}
			}
			if strings.Contains(text, token) {
				score += weight
				matched = append(matched, model.MatchedKeyword{Category: category, Word: token})
			}
		}
	}

	check(CategoryIP, keywords.IPs, weights.IP, 0)
	check(CategoryServer, keywords.Servers, weights.Server, 0)
	check(CategoryOS, keywords.OS, weights.OS, s.profile.OSMinLength)
	check(CategorySecurity, keywords.Security, weights.Security, 0)

	if len(matched) == 0 {
		return 0, nil
	}
	return score + s.cvssBonus(alert.CVSS), matched
}

func (s *Scorer) cvssBonus(cvss float64) int {
	switch {
	case cvss >= 9:
		return s.profile.CVSSBonus.Critical
	case cvss >= 7:
		return s.profile.CVSSBonus.High
	case cvss >= 4:
		return s.profile.CVSSBonus.Medium
	default:
		return 0
	}
}

// Evaluate - 키워드 점수에 산업 가산점을 더한 결과
// 산업 가산점은 MatchedKeywords에 들어가지 않는다
func (s *Scorer) Evaluate(alert model.Alert, keywords KeywordSet, industry string) model.ScoredAlert {
	score, matched := s.Score(alert, keywords)
	if matched == nil {
		matched = []model.MatchedKeyword{}
	}
	scored := model.ScoredAlert{
		Alert:           alert,
		RelevanceScore:  score,
		MatchedKeywords: matched,
	}
	if industry != "" && MatchesIndustry(alert.Text(), industry) {
		scored.RelevanceScore += s.profile.IndustryBonus
		scored.IndustryRelevant = true
	}
	return scored
}

// Relevant - 임계값과 최소 매칭 수를 모두 만족하는지
func (s *Scorer) Relevant(scored model.ScoredAlert) bool {
	minMatches := s.profile.MinMatches
	if minMatches < 1 {
		minMatches = 1
	}
	return scored.RelevanceScore >= s.profile.Threshold && len(scored.MatchedKeywords) >= minMatches
}

// Rank - 관련 알림만 골라 점수 내림차순으로 정렬
func (s *Scorer) Rank(alerts []model.Alert, keywords KeywordSet, industry string) []model.ScoredAlert {
	ranked := make([]model.ScoredAlert, 0)
	if keywords.Empty() {
		return ranked
	}
	for _, alert := range alerts {
		scored := s.Evaluate(alert, keywords, industry)
		if s.Relevant(scored) {
			ranked = append(ranked, scored)
		}
	}
	SortScored(ranked)
	return ranked
}

// SortScored - 점수 내림차순, 같으면 최신 published 우선, 그다음 id 오름차순
func SortScored(items []model.ScoredAlert) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		return a.ID < b.ID
	})
}

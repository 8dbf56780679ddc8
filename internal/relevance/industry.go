package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 산업 분류 (영문 키)
const (
	IndustryHealthcare         = "healthcare"
	IndustryFinance            = "finance"
	IndustryTechnology         = "technology"
	IndustryRetail             = "retail"
	IndustryManufacturing      = "manufacturing"
	IndustryGovernment         = "government"
	IndustryEducation          = "education"
	IndustryEnergy             = "energy"
	IndustryTransportation     = "transportation"
	IndustryTelecommunications = "telecommunications"
)

// 고객 프로필에는 프랑스어 산업명이 저장될 수 있으므로 영문 키로 변환
var industryAliases = map[string]string{
	"santé":              IndustryHealthcare,
	"finance":            IndustryFinance,
	"technologie":        IndustryTechnology,
	"commerce":           IndustryRetail,
	"manufacturing":      IndustryManufacturing,
	"gouvernement":       IndustryGovernment,
	"éducation":          IndustryEducation,
	"énergie":            IndustryEnergy,
	"transport":          IndustryTransportation,
	"télécommunications": IndustryTelecommunications,

	"healthcare":         IndustryHealthcare,
	"technology":         IndustryTechnology,
	"retail":             IndustryRetail,
	"government":         IndustryGovernment,
	"education":          IndustryEducation,
	"energy":             IndustryEnergy,
	"transportation":     IndustryTransportation,
	"telecommunications": IndustryTelecommunications,
}

// 산업별 관련 키워드 (영문/불문)
var industryKeywords = map[string][]string{
	IndustryHealthcare: {
		"healthcare", "medical", "hospital", "pharmaceutical", "patient", "clinical", "hipaa", "fda",
		"santé", "médical", "hôpital",
	},
	IndustryFinance: {
		"finance", "banking", "financial", "payment", "credit", "investment", "pci-dss", "sox",
		"banque", "paiement", "crédit", "investissement",
	},
	IndustryTechnology: {
		"technology", "software", "it", "cloud", "cybersecurity", "digital", "ai", "machine learning",
		"technologie", "logiciel", "informatique", "cybersécurité",
	},
	IndustryRetail: {
		"retail", "e-commerce", "pos", "payment", "inventory", "customer", "pci-dss",
		"commerce", "point de vente", "client",
	},
	IndustryManufacturing: {
		"manufacturing", "industrial", "scada", "ot", "production", "factory", "iot",
		"industriel", "usine",
	},
	IndustryGovernment: {
		"government", "public sector", "federal", "state", "municipal", "defense", "classified",
		"gouvernement", "secteur public", "fédéral", "défense",
	},
	IndustryEducation: {
		"education", "university", "school", "student", "academic", "research", "ferpa",
		"éducation", "université", "école", "étudiant", "académique",
	},
	IndustryEnergy: {
		"energy", "utilities", "power", "grid", "scada", "nuclear", "renewable",
		"énergie", "électricité", "réseau", "nucléaire", "renouvelable",
	},
	IndustryTransportation: {
		"transportation", "logistics", "aviation", "railway", "maritime", "fleet", "gps",
		"transport", "logistique", "ferroviaire",
	},
	IndustryTelecommunications: {
		"telecom", "network", "isp", "mobile", "5g", "fiber", "routing",
		"télécommunications", "réseau", "fibre", "routage",
	},
}

// NormalizeIndustry - 소문자로 바꾸고 알려진 별칭이면 영문 키로 변환
func NormalizeIndustry(industry string) string {
	key := strings.ToLower(strings.TrimSpace(industry))
	if mapped, ok := industryAliases[key]; ok {
		return mapped
	}
	return key
}

// IndustryKeywords - 산업의 키워드 목록
// 알 수 없는 산업이면 정규화된 산업명 하나만 돌려주고 false
func IndustryKeywords(industry string) ([]string, bool) {
	key := NormalizeIndustry(industry)
	if key == "" || key == "all" {
		return nil, false
	}
	if words, ok := industryKeywords[key]; ok {
		out := make([]string, len(words))
		copy(out, words)
		return out, true
	}
	return []string{key}, false
}

// MatchesIndustry - 텍스트에 산업 키워드나 산업명 자체가 포함되는지 확인
func MatchesIndustry(text, industry string) bool {
	raw := strings.ToLower(strings.TrimSpace(industry))
	if raw == "" || raw == "all" {
		return false
	}
	lowered := strings.ToLower(text)
	if containsKeyword(lowered, raw) {
		return true
	}
	words, _ := IndustryKeywords(raw)
	for _, word := range words {
		if containsKeyword(lowered, word) {
			return true
		}
	}
	return false
}

// shortKeywordLen 이하 키워드("it", "ai", "ot", "pos")는 단어 경계에서만 매칭
// 예: "it"은 "security"에 매칭되지 않음
const shortKeywordLen = 3

func containsKeyword(text, word string) bool {
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) > shortKeywordLen {
		return strings.Contains(text, word)
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if wordBoundaryBefore(text, start) && wordBoundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

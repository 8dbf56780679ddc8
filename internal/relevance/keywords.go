// IOC 레코드에서 매칭용 키워드 추출
// 결과는 저장하지 않고 점수 계산마다 다시 만든다

package relevance

import (
	"regexp"
	"strings"

	"github.com/ioc-radar/backend/internal/model"
)

// 키워드 카테고리 (MatchedKeyword.Category 값)
const (
	CategoryIP       = "ip"
	CategoryServer   = "server"
	CategoryOS       = "os"
	CategorySecurity = "security"
)

var tokenSeparator = regexp.MustCompile(`[,\s]+`)

// KeywordSet - 카테고리별 소문자 토큰 목록 (등록 순서 유지, 중복 허용)
type KeywordSet struct {
	IPs      []string `json:"ips"`
	Servers  []string `json:"servers"`
	OS       []string `json:"os"`
	Security []string `json:"security"`
}

// Len - 전체 토큰 수
func (k KeywordSet) Len() int {
	return len(k.IPs) + len(k.Servers) + len(k.OS) + len(k.Security)
}

// Empty - 매칭할 키워드가 하나도 없는지 여부
func (k KeywordSet) Empty() bool {
	return k.Len() == 0
}

// ExtractKeywords - IOC 목록을 네 카테고리의 키워드로 변환
// ip/server는 통째로, os/security_solutions는 공백·쉼표 기준으로 분리
func ExtractKeywords(iocs []model.IOC) KeywordSet {
	set := KeywordSet{
		IPs:      []string{},
		Servers:  []string{},
		OS:       []string{},
		Security: []string{},
	}
	for _, ioc := range iocs {
		if v := normalizeToken(ioc.IP); v != "" {
			set.IPs = append(set.IPs, v)
		}
		if v := normalizeToken(ioc.Server); v != "" {
			set.Servers = append(set.Servers, v)
		}
		set.OS = append(set.OS, splitTokens(ioc.OS)...)
		set.Security = append(set.Security, splitTokens(ioc.SecuritySolutions)...)
	}
	return set
}

func normalizeToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// splitTokens - 빈 조각은 버린다 (빈 문자열은 모든 텍스트에 포함되므로)
func splitTokens(value string) []string {
	value = normalizeToken(value)
	if value == "" {
		return nil
	}
	parts := tokenSeparator.Split(value, -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

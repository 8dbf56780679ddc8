package model

// 관련도 계산 결과 (저장하지 않음)

// MatchedKeyword - 알림 텍스트에서 발견된 IOC 키워드
type MatchedKeyword struct {
	Category string `json:"category"`
	Word     string `json:"word"`
}

// ScoredAlert - 관련도 점수가 붙은 알림
type ScoredAlert struct {
	Alert
	RelevanceScore   int              `json:"relevanceScore"`
	MatchedKeywords  []MatchedKeyword `json:"matchedKeywords"`
	IndustryRelevant bool             `json:"industryRelevant"`
}

// SeverityStats - CVSS 구간별 개수
type SeverityStats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Add - 한 건을 해당 구간에 누적
func (s *SeverityStats) Add(cvss float64) {
	switch SeverityOf(cvss) {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	default:
		s.Low++
	}
}

// DashboardStats - 개인화 대시보드 요약
type DashboardStats struct {
	TotalIOCs      int           `json:"totalIOCs"`
	TotalAlerts    int           `json:"totalAlerts"`
	RelevantAlerts int           `json:"relevantAlerts"`
	Severity       SeverityStats `json:"severity"`
}

// PageInfo - 페이지네이션 메타데이터
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// DashboardQuery - GET /api/v1/dashboard 쿼리 파라미터
type DashboardQuery struct {
	Range    string `form:"range"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// AlertFilter - GET /api/v1/alerts 쿼리 파라미터
type AlertFilter struct {
	Industry string `form:"industry"`
	Range    string `form:"range"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// DashboardResponse - GET /api/v1/dashboard 응답
type DashboardResponse struct {
	Items    []ScoredAlert  `json:"items"`
	Page     PageInfo       `json:"page"`
	Stats    DashboardStats `json:"stats"`
	Industry string         `json:"industry,omitempty"`
	Range    string         `json:"range"`
	// Degraded - 조회에 실패해 빈 목록으로 대체된 소스 (iocs, alerts)
	Degraded []string `json:"degraded,omitempty"`
}

// AlertListResponse - GET /api/v1/alerts 응답
type AlertListResponse struct {
	Items []Alert  `json:"items"`
	Page  PageInfo `json:"page"`
	Range string   `json:"range"`
}

// TimelinePoint - 일자별 알림 수/평균 CVSS
type TimelinePoint struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	AvgCVSS float64 `json:"avgCvss"`
}

// ScoreBucket - 정수 CVSS 점수별 분포
type ScoreBucket struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// AlertStatsResponse - GET /api/v1/alerts/stats 응답
type AlertStatsResponse struct {
	Total        int             `json:"total"`
	Severity     SeverityStats   `json:"severity"`
	Timeline     []TimelinePoint `json:"timeline"`
	Distribution []ScoreBucket   `json:"distribution"`
}

// 공유 사이버 알림 피드 모델
// handler, service, relevance, db 레이어에서 공통으로 사용하기 때문에 model 레이어에 정의

package model

import "time"

// Alert - CVSS 점수가 붙은 취약점 알림 (수집 이후 불변)
type Alert struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	CVSS        float64   `json:"cvss"`
	Published   time.Time `json:"published"`
}

// PublishedAt - 날짜 범위 필터에서 사용
func (a Alert) PublishedAt() time.Time {
	return a.Published
}

// Text - 키워드 매칭 대상 텍스트 (summary + " " + description)
func (a Alert) Text() string {
	return a.Summary + " " + a.Description
}

// CreateAlertRequest - 관리자/수집기가 새 알림을 등록할 때 사용
type CreateAlertRequest struct {
	// ID - 수집기가 지정하면 재전송 시 중복 저장을 막는 키로 사용 (UUID)
	ID          string     `json:"id,omitempty"`
	Summary     string     `json:"summary" binding:"required"`
	Description string     `json:"description"`
	CVSS        float64    `json:"cvss"`
	Published   *time.Time `json:"published"`
}

// AlertQuery - 알림 저장소 조회 조건
type AlertQuery struct {
	// Since가 zero면 하한 없음
	Since time.Time
	// Keywords 중 하나라도 summary/description에 포함된 알림만 조회 (비어있으면 전체)
	Keywords []string
	Limit    int
}

// Severity buckets (CVSS v3 qualitative ranges)
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// SeverityOf - CVSS 점수를 심각도 구간으로 변환
func SeverityOf(cvss float64) string {
	switch {
	case cvss >= 9:
		return SeverityCritical
	case cvss >= 7:
		return SeverityHigh
	case cvss >= 4:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

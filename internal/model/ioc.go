package model

import "time"

// IOC - 고객(tenant)이 등록한 침해 지표
// 모든 필드는 선택 사항이며 빈 값은 키워드를 만들지 않음
type IOC struct {
	ID                string    `json:"id"`
	UserID            int64     `json:"user_id"`
	IP                string    `json:"ip,omitempty"`
	Server            string    `json:"server,omitempty"`
	OS                string    `json:"os,omitempty"`
	SecuritySolutions string    `json:"security_solutions,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// IOCRequest - IOC 생성/수정 요청
type IOCRequest struct {
	IP                string     `json:"ip"`
	Server            string     `json:"server"`
	OS                string     `json:"os"`
	SecuritySolutions string     `json:"security_solutions"`
	CreatedAt         *time.Time `json:"created_at"`
}

// IsEmpty - 모든 필드가 비어 있는지 확인
func (r IOCRequest) IsEmpty() bool {
	return r.IP == "" && r.Server == "" && r.OS == "" && r.SecuritySolutions == ""
}

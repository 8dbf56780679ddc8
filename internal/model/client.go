package model

import "time"

const (
	RoleAdmin  = "admin"
	RoleClient = "client"

	DefaultSubscriptionPlan = "basic"
)

// ClientProfile - 고객사 프로필 (industry는 산업 보너스 계산에 사용)
type ClientProfile struct {
	ID               string    `json:"id"`
	UserID           int64     `json:"user_id"`
	CompanyName      string    `json:"company_name"`
	ContactName      string    `json:"contact_name"`
	Phone            string    `json:"phone,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	SubscriptionPlan string    `json:"subscription_plan"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateClientRequest - 관리자 고객 생성 요청
type CreateClientRequest struct {
	UserID           int64  `json:"user_id"`
	CompanyName      string `json:"company_name"`
	ContactName      string `json:"contact_name"`
	Phone            string `json:"phone"`
	Industry         string `json:"industry"`
	SubscriptionPlan string `json:"subscription_plan"`
	IsActive         *bool  `json:"is_active"`
}

// UpdateClientRequest - 고객 프로필 수정 요청 (관리자/본인 공통)
type UpdateClientRequest struct {
	CompanyName      string `json:"company_name"`
	ContactName      string `json:"contact_name"`
	Phone            string `json:"phone"`
	Industry         string `json:"industry"`
	SubscriptionPlan string `json:"subscription_plan"`
}

// SetClientActiveRequest - 활성/비활성 전환 요청
type SetClientActiveRequest struct {
	UserID   int64 `json:"user_id"`
	IsActive *bool `json:"is_active"`
}

// DeleteClientResponse - 삭제된 고객의 user_id 반환
type DeleteClientResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

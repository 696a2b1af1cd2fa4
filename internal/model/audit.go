package model

import (
	"time"
)

// AuditLog 代表一次完整的操作审计记录
type AuditLog struct {
	ID        string `json:"id" gorm:"primaryKey;size:64"` // 唯一请求 ID (UUID)
	Signer    string `json:"signer" gorm:"size:64;index:idx_audit_logs_signer,priority:1"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	// 请求详情
	RequestBody   string `json:"request_body"` // 脱敏后
	RequestHeader string `json:"request_header"`

	// 响应详情
	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// 业务上下文: booking address, settlement legs, error codes
	Context map[string]interface{} `json:"context" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_audit_logs_signer,priority:2,sort:desc"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLogType string

const (
	AuditLogTypeEventCreate    AuditLogType = "event_create"
	AuditLogTypeEventUpdate    AuditLogType = "event_update"
	AuditLogTypeEventUpgrade   AuditLogType = "event_upgrade"
	AuditLogTypePayment        AuditLogType = "payment"
	AuditLogTypePaymentUpgrade AuditLogType = "payment_upgrade"
	AuditLogTypePaymentRefund  AuditLogType = "payment_refund"
	AuditLogTypeGuestJoin      AuditLogType = "guest_join"
	AuditLogTypePhotoUpload    AuditLogType = "photo_upload"
)

type AuditLogStatus string

const (
	AuditLogStatusSuccess AuditLogStatus = "success"
	AuditLogStatusError   AuditLogStatus = "error"
)

type AuditLog struct {
	ID         string            `gorm:"column:id;type:varchar(64);primary_key;index:idx_audit_log_created_id,priority:2,sort:desc" json:"id"`
	Type       AuditLogType      `gorm:"column:type;type:varchar(32);not null;index" json:"type"`
	ActorID    string            `gorm:"column:actor_id;type:varchar(128)" json:"actorId"`
	ActorEmail string            `gorm:"column:actor_email;type:varchar(256)" json:"actorEmail"`
	EventID    string            `gorm:"column:event_id;type:varchar(64);index" json:"eventId,omitempty"`
	EventName  string            `gorm:"column:event_name;type:varchar(128)" json:"eventName,omitempty"`
	Status     AuditLogStatus    `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Details    datatypes.JSONMap `gorm:"column:details;type:jsonb" json:"details"`
	TraceID    string            `gorm:"column:trace_id;type:varchar(128)" json:"traceId,omitempty"`
	CreatedAt  time.Time         `gorm:"index:idx_audit_log_created_id,priority:1,sort:desc" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_log" }

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity actions
const (
	ActionLogin        = "login"
	ActionLogout       = "logout"
	ActionViewReport   = "view_report"
	ActionUpdateStatus = "update_status"
	ActionBulkUpdate   = "bulk_update_status"
	ActionUpdateReport = "update_report"
	ActionDeleteReport = "delete_report"
	ActionAssignReport = "assign_report"
	ActionExport       = "export_reports"
)

// Activity is one audited admin action. Records are created once and never
// updated or deleted by the application.
type Activity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AdminID      string             `bson:"adminId" json:"adminId"`
	Action       string             `bson:"action" json:"action"`
	TargetCaseID string             `bson:"targetCaseId,omitempty" json:"targetCaseId,omitempty"`
	Detail       ActivityDetail     `bson:"detail" json:"detail"`
	IPAddress    string             `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	UserAgent    string             `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}

// ActivityDetail is a tagged payload rather than an untyped blob: Kind names
// the shape, Payload carries the action-specific fields.
type ActivityDetail struct {
	Kind    string                 `bson:"kind" json:"kind"`
	Payload map[string]interface{} `bson:"payload,omitempty" json:"payload,omitempty"`
}

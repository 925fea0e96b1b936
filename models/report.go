package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses. pending_deletion is an internal marker set when a reporter
// requests deletion of a report that is not yet eligible for immediate removal;
// it parks the report for admin review.
const (
	StatusPending         = "pending"
	StatusUnderReview     = "under_review"
	StatusResolved        = "resolved"
	StatusRejected        = "rejected"
	StatusArchived        = "archived"
	StatusPendingDeletion = "pending_deletion"
)

// Severity levels
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Incident types
const (
	IncidentHarassment        = "harassment"
	IncidentThreats           = "threats"
	IncidentImageAbuse        = "image_abuse"
	IncidentCyberstalking     = "cyberstalking"
	IncidentDoxxing           = "doxxing"
	IncidentDeepfake          = "deepfake"
	IncidentChildExploitation = "child_exploitation"
	IncidentOther             = "other"
)

// Evidence kinds
const (
	EvidenceImage    = "image"
	EvidenceVideo    = "video"
	EvidenceDocument = "document"
)

var reportStatuses = map[string]bool{
	StatusPending:         true,
	StatusUnderReview:     true,
	StatusResolved:        true,
	StatusRejected:        true,
	StatusArchived:        true,
	StatusPendingDeletion: true,
}

// ValidStatus reports whether s is one of the persisted status literals.
func ValidStatus(s string) bool {
	return reportStatuses[s]
}

// Report represents one reported incident
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CaseID      string             `bson:"caseId" json:"caseId"`
	Status      string             `bson:"status" json:"status"`
	Severity    string             `bson:"severity" json:"severity"`
	IsAnonymous bool               `bson:"isAnonymous" json:"isAnonymous"`
	IsEmergency bool               `bson:"isEmergency" json:"isEmergency"`

	IncidentTypes []string        `bson:"incidentTypes" json:"incidentTypes"`
	Incident      IncidentDetails `bson:"incident" json:"incident"`
	Evidence      []EvidenceFile  `bson:"evidence" json:"evidence"`

	// Reporter is present if and only if IsAnonymous is false.
	Reporter *Reporter       `bson:"reporter,omitempty" json:"reporter,omitempty"`
	Privacy  PrivacySettings `bson:"privacy" json:"privacy"`

	// Weak references to admin accounts, identifiers only.
	AssignedTo string `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	ReviewedBy string `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ResolvedBy string `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ClosedBy   string `bson:"closedBy,omitempty" json:"closedBy,omitempty"`

	SubmittedAt time.Time  `bson:"submittedAt" json:"submittedAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	ReviewedAt  *time.Time `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	ResolvedAt  *time.Time `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ClosedAt    *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`

	DeletionRequestedAt *time.Time `bson:"deletionRequestedAt,omitempty" json:"deletionRequestedAt,omitempty"`
	DeletionReason      string     `bson:"deletionReason,omitempty" json:"deletionReason,omitempty"`

	AdminNotes []AdminNote `bson:"adminNotes" json:"adminNotes"`

	ViewedCount  int        `bson:"viewedCount" json:"viewedCount"`
	LastViewedAt *time.Time `bson:"lastViewedAt,omitempty" json:"lastViewedAt,omitempty"`

	Flags []string `bson:"flags" json:"flags"`
	Tags  []string `bson:"tags" json:"tags"`
}

// IncidentDetails describes what happened, when and where
type IncidentDetails struct {
	Description   string    `bson:"description" json:"description"`
	DateOccurred  time.Time `bson:"dateOccurred" json:"dateOccurred"`
	TimeOccurred  string    `bson:"timeOccurred,omitempty" json:"timeOccurred,omitempty"`
	Platforms     []string  `bson:"platforms" json:"platforms"`
	OtherPlatform string    `bson:"otherPlatform,omitempty" json:"otherPlatform,omitempty"`
}

// EvidenceFile is one attachment record. The list only grows; files are
// removed from storage together with the report.
type EvidenceFile struct {
	Kind         string    `bson:"kind" json:"kind"`
	Path         string    `bson:"path" json:"path"`
	OriginalName string    `bson:"originalName" json:"originalName"`
	Size         int64     `bson:"size" json:"size"`
	MimeType     string    `bson:"mimeType" json:"mimeType"`
	UploadedAt   time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// Reporter holds contact details for non-anonymous reports
type Reporter struct {
	Name              string `bson:"name" json:"name"`
	Email             string `bson:"email" json:"email"`
	Phone             string `bson:"phone,omitempty" json:"phone,omitempty"`
	ContactPreference string `bson:"contactPreference" json:"contactPreference"`
}

// PrivacySettings holds the reporter's privacy preferences
type PrivacySettings struct {
	DeleteAfterResolution bool `bson:"deleteAfterResolution" json:"deleteAfterResolution"`
	NoDataSharing         bool `bson:"noDataSharing" json:"noDataSharing"`
	AllowFollowUp         bool `bson:"allowFollowUp" json:"allowFollowUp"`
}

// AdminNote is one entry of the append-only note list
type AdminNote struct {
	Text       string    `bson:"text" json:"text"`
	AuthorID   string    `bson:"authorId" json:"authorId"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	IsInternal bool      `bson:"isInternal" json:"isInternal"`
}

// ApplyStatus transitions the report to newStatus and stamps the dependent
// fields. Backwards transitions are allowed; the system trusts the admin's
// action. reviewedAt/resolvedAt/closedAt use first-entry-only semantics:
// re-entering a state later does not re-stamp them.
func (r *Report) ApplyStatus(newStatus, actorID string, now time.Time) error {
	if !ValidStatus(newStatus) {
		return &InvalidStatusError{Status: newStatus}
	}

	r.Status = newStatus
	r.UpdatedAt = now

	switch newStatus {
	case StatusUnderReview:
		if r.ReviewedAt == nil {
			t := now
			r.ReviewedAt = &t
			r.ReviewedBy = actorID
		}
	case StatusResolved:
		if r.ResolvedAt == nil {
			t := now
			r.ResolvedAt = &t
			r.ResolvedBy = actorID
		}
	case StatusArchived:
		if r.ClosedAt == nil {
			t := now
			r.ClosedAt = &t
			r.ClosedBy = actorID
		}
	}
	return nil
}

// AddNote appends to the admin note list
func (r *Report) AddNote(text, authorID string, isInternal bool, now time.Time) {
	r.AdminNotes = append(r.AdminNotes, AdminNote{
		Text:       text,
		AuthorID:   authorID,
		Timestamp:  now,
		IsInternal: isInternal,
	})
	r.UpdatedAt = now
}

// MarkViewed records an admin view of the report
func (r *Report) MarkViewed(now time.Time) {
	r.ViewedCount++
	t := now
	r.LastViewedAt = &t
}

// DeriveSeverity maps the emergency flag and incident types to a severity
// level: child exploitation is always critical, threats and stalking are
// high, everything else defaults to medium unless flagged as an emergency.
func DeriveSeverity(incidentTypes []string, emergency bool) string {
	for _, t := range incidentTypes {
		if t == IncidentChildExploitation {
			return SeverityCritical
		}
	}
	for _, t := range incidentTypes {
		if t == IncidentThreats || t == IncidentCyberstalking {
			return SeverityHigh
		}
	}
	if emergency {
		return SeverityHigh
	}
	return SeverityMedium
}

// EvidenceKindForMime buckets an uploaded file by its mime type
func EvidenceKindForMime(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return EvidenceImage
	case strings.HasPrefix(mimeType, "video/"):
		return EvidenceVideo
	default:
		return EvidenceDocument
	}
}

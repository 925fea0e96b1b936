package models

import (
	"strings"
	"time"
)

// UploadedFile describes an already-stored evidence file as produced by the
// external upload collaborator. The API never handles file bytes itself.
type UploadedFile struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

// ReportSubmission is the public intake payload for a new report
type ReportSubmission struct {
	IncidentTypes []string `json:"incidentType"`
	Description   string   `json:"description"`
	IncidentDate  string   `json:"incidentDate"`
	IncidentTime  string   `json:"incidentTime,omitempty"`
	Platforms     []string `json:"platform"`
	OtherPlatform string   `json:"otherPlatform,omitempty"`

	Anonymous bool `json:"anonymous"`
	Emergency bool `json:"isEmergency"`

	Name              string `json:"name,omitempty"`
	Email             string `json:"email,omitempty"`
	Phone             string `json:"phone,omitempty"`
	ContactPreference string `json:"contactPreference,omitempty"`

	DeleteAfterResolution bool `json:"deleteAfterResolution"`
	NoDataSharing         bool `json:"noDataSharing"`

	Evidence []UploadedFile `json:"evidence,omitempty"`
}

const (
	descriptionMinLen = 10
	descriptionMaxLen = 5000
)

// Validate checks every submission rule and reports all violations together,
// so the caller sees the complete list rather than the first failure.
func (s *ReportSubmission) Validate() error {
	var violations []string

	if len(s.IncidentTypes) == 0 {
		violations = append(violations, "at least one incident type must be selected")
	}
	d := strings.TrimSpace(s.Description)
	if len(d) < descriptionMinLen || len(d) > descriptionMaxLen {
		violations = append(violations, "description must be between 10 and 5000 characters")
	}
	if _, err := s.parseIncidentDate(); err != nil {
		violations = append(violations, "a valid incident date is required")
	}
	if len(s.Platforms) == 0 {
		violations = append(violations, "at least one platform must be selected")
	}
	if !s.Anonymous {
		if strings.TrimSpace(s.Email) == "" || !strings.Contains(s.Email, "@") {
			violations = append(violations, "a contact email is required unless the report is anonymous")
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (s *ReportSubmission) parseIncidentDate() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s.IncidentDate); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s.IncidentDate)
}

// Report builds the entity for a validated submission. The caseId comes from
// the generator; submittedAt/updatedAt are stamped here, once.
func (s *ReportSubmission) Report(caseID string, now time.Time) Report {
	date, _ := s.parseIncidentDate()

	evidence := make([]EvidenceFile, 0, len(s.Evidence))
	for _, f := range s.Evidence {
		evidence = append(evidence, EvidenceFile{
			Kind:         EvidenceKindForMime(f.MimeType),
			Path:         f.Path,
			OriginalName: f.OriginalName,
			Size:         f.Size,
			MimeType:     f.MimeType,
			UploadedAt:   now,
		})
	}

	r := Report{
		CaseID:        caseID,
		Status:        StatusPending,
		Severity:      DeriveSeverity(s.IncidentTypes, s.Emergency),
		IsAnonymous:   s.Anonymous,
		IsEmergency:   s.Emergency,
		IncidentTypes: s.IncidentTypes,
		Incident: IncidentDetails{
			Description:   strings.TrimSpace(s.Description),
			DateOccurred:  date,
			TimeOccurred:  s.IncidentTime,
			Platforms:     s.Platforms,
			OtherPlatform: s.OtherPlatform,
		},
		Evidence: evidence,
		Privacy: PrivacySettings{
			DeleteAfterResolution: s.DeleteAfterResolution,
			NoDataSharing:         s.NoDataSharing,
			AllowFollowUp:         !s.Anonymous,
		},
		SubmittedAt: now,
		UpdatedAt:   now,
		AdminNotes:  []AdminNote{},
		Flags:       []string{},
		Tags:        []string{},
	}

	if !s.Anonymous {
		pref := s.ContactPreference
		if pref == "" {
			pref = "email"
		}
		r.Reporter = &Reporter{
			Name:              strings.TrimSpace(s.Name),
			Email:             strings.ToLower(strings.TrimSpace(s.Email)),
			Phone:             strings.TrimSpace(s.Phone),
			ContactPreference: pref,
		}
	}
	return r
}

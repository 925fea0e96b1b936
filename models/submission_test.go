package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSubmission() ReportSubmission {
	return ReportSubmission{
		IncidentTypes: []string{IncidentHarassment},
		Description:   "Repeated abusive messages sent over several weeks.",
		IncidentDate:  "2024-01-10",
		Platforms:     []string{"instagram"},
		Name:          "Jane Doe",
		Email:         "Jane.Doe@Example.org",
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	s := ReportSubmission{Description: "short", IncidentDate: "not-a-date"}

	err := s.Validate()
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	// incident types, description, date, platform and email all failed
	assert.Len(t, ve.Violations, 5)
}

func TestValidateAnonymousSkipsEmail(t *testing.T) {
	s := validSubmission()
	s.Anonymous = true
	s.Email = ""

	assert.NoError(t, s.Validate())
}

func TestValidateRequiresContactEmail(t *testing.T) {
	s := validSubmission()
	s.Email = "not-an-email"

	err := s.Validate()
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Violations, "a contact email is required unless the report is anonymous")
}

func TestValidateAcceptsRFC3339Date(t *testing.T) {
	s := validSubmission()
	s.IncidentDate = "2024-01-10T15:04:05Z"

	assert.NoError(t, s.Validate())
}

func TestReportBuildsEntity(t *testing.T) {
	s := validSubmission()
	s.Evidence = []UploadedFile{{Path: "evidence/shot.png", OriginalName: "shot.png", Size: 1024, MimeType: "image/png"}}
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	r := s.Report("RS-HR-202401-AB12CD", now)

	assert.Equal(t, "RS-HR-202401-AB12CD", r.CaseID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.Equal(t, now, r.SubmittedAt)
	assert.Equal(t, now, r.UpdatedAt)

	// contact details are normalized
	assert.NotNil(t, r.Reporter)
	assert.Equal(t, "jane.doe@example.org", r.Reporter.Email)
	assert.Equal(t, "email", r.Reporter.ContactPreference)
	assert.True(t, r.Privacy.AllowFollowUp)

	assert.Len(t, r.Evidence, 1)
	assert.Equal(t, EvidenceImage, r.Evidence[0].Kind)
	assert.Equal(t, now, r.Evidence[0].UploadedAt)
	assert.NotNil(t, r.AdminNotes)
	assert.NotNil(t, r.Flags)
	assert.NotNil(t, r.Tags)
}

func TestReportAnonymousDropsReporter(t *testing.T) {
	s := validSubmission()
	s.Anonymous = true
	s.Email = "leaky@example.org"
	s.Name = "Should Not Persist"

	r := s.Report("RS-HR-202401-ZZ99XX", time.Now())

	assert.True(t, r.IsAnonymous)
	assert.Nil(t, r.Reporter)
	assert.False(t, r.Privacy.AllowFollowUp)
}

func TestReportEmergencySeverity(t *testing.T) {
	s := validSubmission()
	s.Emergency = true

	r := s.Report("RS-HR-202401-AA11BB", time.Now())

	assert.True(t, r.IsEmergency)
	assert.Equal(t, SeverityHigh, r.Severity)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyStatusStampsFirstEntryOnly(t *testing.T) {
	r := Report{CaseID: "RS-HR-202401-AB12CD", Status: StatusPending}

	t1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	err := r.ApplyStatus(StatusUnderReview, "admin-1", t1)
	assert.NoError(t, err)
	assert.Equal(t, StatusUnderReview, r.Status)
	assert.Equal(t, "admin-1", r.ReviewedBy)
	assert.Equal(t, t1, *r.ReviewedAt)

	// bounce back to pending and re-enter review, the original stamp stays
	t2 := t1.Add(time.Hour)
	assert.NoError(t, r.ApplyStatus(StatusPending, "admin-2", t2))
	t3 := t1.Add(2 * time.Hour)
	assert.NoError(t, r.ApplyStatus(StatusUnderReview, "admin-2", t3))
	assert.Equal(t, t1, *r.ReviewedAt)
	assert.Equal(t, "admin-1", r.ReviewedBy)
	assert.Equal(t, t3, r.UpdatedAt)
}

func TestApplyStatusResolveSkipsReview(t *testing.T) {
	r := Report{Status: StatusPending}

	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	assert.NoError(t, r.ApplyStatus(StatusResolved, "admin-1", now))
	assert.Equal(t, StatusResolved, r.Status)
	assert.Nil(t, r.ReviewedAt)
	assert.Equal(t, now, *r.ResolvedAt)
	assert.Equal(t, "admin-1", r.ResolvedBy)
}

func TestApplyStatusArchiveStampsClosed(t *testing.T) {
	r := Report{Status: StatusResolved}

	now := time.Date(2024, 2, 5, 8, 0, 0, 0, time.UTC)
	assert.NoError(t, r.ApplyStatus(StatusArchived, "admin-9", now))
	assert.Equal(t, now, *r.ClosedAt)
	assert.Equal(t, "admin-9", r.ClosedBy)
}

func TestApplyStatusRejectsUnknownStatus(t *testing.T) {
	r := Report{Status: StatusPending}

	err := r.ApplyStatus("escalated", "admin-1", time.Now())
	var ise *InvalidStatusError
	assert.ErrorAs(t, err, &ise)
	assert.Equal(t, StatusPending, r.Status)
}

func TestDeriveSeverity(t *testing.T) {
	tests := []struct {
		name      string
		types     []string
		emergency bool
		want      string
	}{
		{"child exploitation is always critical", []string{IncidentHarassment, IncidentChildExploitation}, false, SeverityCritical},
		{"threats are high", []string{IncidentThreats}, false, SeverityHigh},
		{"cyberstalking is high", []string{IncidentHarassment, IncidentCyberstalking}, false, SeverityHigh},
		{"emergency lifts medium to high", []string{IncidentHarassment}, true, SeverityHigh},
		{"harassment defaults to medium", []string{IncidentHarassment}, false, SeverityMedium},
		{"critical beats emergency", []string{IncidentChildExploitation}, true, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveSeverity(tt.types, tt.emergency))
		})
	}
}

func TestMarkViewed(t *testing.T) {
	r := Report{}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	r.MarkViewed(now)
	r.MarkViewed(now.Add(time.Minute))

	assert.Equal(t, 2, r.ViewedCount)
	assert.Equal(t, now.Add(time.Minute), *r.LastViewedAt)
}

func TestAddNoteAppends(t *testing.T) {
	r := Report{AdminNotes: []AdminNote{}}
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	r.AddNote("first contact made", "admin-1", false, now)
	r.AddNote("escalation candidate", "admin-2", true, now.Add(time.Hour))

	assert.Len(t, r.AdminNotes, 2)
	assert.Equal(t, "first contact made", r.AdminNotes[0].Text)
	assert.True(t, r.AdminNotes[1].IsInternal)
	assert.Equal(t, now.Add(time.Hour), r.UpdatedAt)
}

func TestEvidenceKindForMime(t *testing.T) {
	assert.Equal(t, EvidenceImage, EvidenceKindForMime("image/png"))
	assert.Equal(t, EvidenceVideo, EvidenceKindForMime("video/mp4"))
	assert.Equal(t, EvidenceDocument, EvidenceKindForMime("application/pdf"))
	assert.Equal(t, EvidenceDocument, EvidenceKindForMime(""))
}

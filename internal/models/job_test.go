package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Not Reviewed", StatusNotReviewed},
		{"not_reviewed", StatusNotReviewed},
		{"interested", StatusInterested},
		{"APPLIED", StatusApplied},
		{"not-interested", StatusNotInterested},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}

func TestSearchRequest_Normalize(t *testing.T) {
	req := SearchRequest{Title: "  Engineer ", Location: "Remote"}.Normalize()

	assert.Equal(t, "Engineer", req.Title)
	assert.Equal(t, FilterAll, req.Category)
	assert.Equal(t, FilterAll, req.Experience)
	assert.Equal(t, DefaultMaxPages, req.MaxPages)
	assert.Equal(t, `"Engineer" in Remote`, req.Describe())
}

func TestJobRecord_Valid(t *testing.T) {
	assert.True(t, JobRecord{ID: "1", Title: "Go Dev", Organization: "Acme"}.Valid())
	assert.False(t, JobRecord{ID: "1", Title: "Go Dev"}.Valid())
	assert.False(t, JobRecord{Title: "Go Dev", Organization: "Acme"}.Valid())
}

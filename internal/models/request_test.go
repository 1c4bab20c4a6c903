package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", "2026-06-20T15:00:00Z", time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC), false},
		{"rfc3339 offset normalized to utc", "2026-06-20T17:00:00+02:00", time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC), false},
		{"calendar date", "2026-06-20", time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC), false},
		{"surrounding whitespace", "  2026-06-20 ", time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "next saturday", time.Time{}, true},
		{"empty", "", time.Time{}, true},
		{"impossible date", "2026-02-30", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestCreateWeddingRequest_Validate(t *testing.T) {
	tests := []struct {
		name       string
		req        CreateWeddingRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  CreateWeddingRequest{Slug: "ana-and-ben", CoupleNames: "Ana & Ben", WeddingDate: "2026-06-20"},
		},
		{
			name:       "missing everything",
			req:        CreateWeddingRequest{},
			wantFields: []string{"slug", "couple_names"},
		},
		{
			name:       "bad slug and email",
			req:        CreateWeddingRequest{Slug: "Ana_Ben", CoupleNames: "Ana & Ben", Email: "nope"},
			wantFields: []string{"slug", "email"},
		},
		{
			name:       "bad date",
			req:        CreateWeddingRequest{Slug: "ana-ben", CoupleNames: "Ana & Ben", WeddingDate: "June"},
			wantFields: []string{"wedding_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			for _, f := range tt.wantFields {
				assert.Contains(t, verrs, f)
			}
			assert.Len(t, verrs, len(tt.wantFields))
		})
	}
}

func TestCreateWeddingRequest_Normalize(t *testing.T) {
	req := CreateWeddingRequest{Slug: "  Ana-Ben ", CoupleNames: " Ana & Ben "}
	req.Normalize()
	assert.Equal(t, "ana-ben", req.Slug)
	assert.Equal(t, "Ana & Ben", req.CoupleNames)
}

func TestUploadRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UploadRequest{FileName: "vows.jpg", ContentType: "image/jpeg", Size: 1024}).Validate())

	err := (&UploadRequest{FileName: "../etc/passwd", Size: 0}).Validate()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "file_name")
	assert.Contains(t, verrs, "size")

	err = (&UploadRequest{FileName: "big.mov", Size: MaxUploadSize + 1}).Validate()
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "size")
}

func TestValidationErrors_ErrorIsSorted(t *testing.T) {
	err := ValidationErrors{"slug": "required", "email": "bad"}
	assert.Equal(t, "validation failed: email: bad; slug: required", err.Error())
}

func TestWedding_Validate(t *testing.T) {
	w := NewWedding("Ana-Ben", "Ana & Ben")
	require.NoError(t, w.Validate())
	assert.Equal(t, "ana-ben", w.Slug)
	assert.False(t, w.IsRegistered())

	w.Email = "ana@example.com"
	assert.True(t, w.IsRegistered())

	w.Slug = "bad slug"
	assert.Error(t, w.Validate())
}

package validator

import (
	"math"
	"testing"

	"github.com/cmlabs-hris/fieldservice-backend-go/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-02-30", "01-01-2023", ""}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}

func TestCoordinates(t *testing.T) {
	assert.True(t, IsValidLatitude(-6.2))
	assert.True(t, IsValidLatitude(90))
	assert.False(t, IsValidLatitude(90.0001))
	assert.False(t, IsValidLatitude(math.NaN()))
	assert.True(t, IsValidLongitude(-180))
	assert.False(t, IsValidLongitude(181))
	assert.False(t, IsValidLongitude(math.Inf(1)))
}

func TestIsValidDateTime(t *testing.T) {
	_, ok := IsValidDateTime("2024-01-15T10:30:00+07:00")
	assert.True(t, ok)
	_, ok = IsValidDateTime("2024-01-15 10:30")
	assert.False(t, ok)
}

type pointRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Source    string   `json:"location_source" validate:"omitempty,oneof=gps manual"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	lat := 95.0
	err := Struct(pointRequest{Latitude: &lat, Source: "satellite"})
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := errs.ToMap()
	assert.Contains(t, fields, "latitude")
	assert.Contains(t, fields, "longitude")
	assert.Contains(t, fields, "location_source")
	assert.Equal(t, "longitude is required", fields["longitude"])
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestStruct_Valid(t *testing.T) {
	lat, lng := -6.2, 106.8
	assert.NoError(t, Struct(pointRequest{Latitude: &lat, Longitude: &lng, Source: "gps"}))
}

func TestValidationErrors_Err(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())
	errs.Add("status", "status is required")
	assert.EqualError(t, errs.Err(), "status: status is required")
}

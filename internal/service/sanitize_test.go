package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidar/challenge-portal/internal/domain"
)

func validPersonal() PersonalInput {
	return PersonalInput{
		FullName:      "Jane Doe",
		EmployeeEmail: "Jane.Doe@DXC.com",
		EmployeeID:    "AB1234",
		Organisation:  "L-ES",
		MobileNumber:  "+44 (0)7700-900123",
		Agreed:        true,
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr.Field
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "", SanitizeText(""))
	assert.Equal(t, "abc", SanitizeText("  a\x00b\x1fc\x7f  "))
	// fullwidth letters fold under NFKC
	assert.Equal(t, "ABC", SanitizeText("ＡＢＣ"))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "José O'Neil-Smith", SanitizeName("José O'Neil-Smith"))
	assert.Equal(t, "Jane bDoeb", SanitizeName("Jane <b>Doe</b>1"))
	assert.Equal(t, "scriptalertxscript", SanitizeName("<script>alert(x)</script>"))
}

func TestSanitizeFreeText(t *testing.T) {
	assert.Equal(t, "bold", SanitizeFreeText("<bold>", 10))
	assert.Equal(t, "ééé", SanitizeFreeText("éééé", 3))
}

func TestNormalizeDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", NormalizeDisplayName("Doe, Jane"))
	assert.Equal(t, "Jane Doe", NormalizeDisplayName(" Jane Doe "))
	assert.Equal(t, "Doe", NormalizeDisplayName("Doe,"))
}

func TestValidatePersonal_Valid(t *testing.T) {
	v := NewValidator("dxc.com")

	details, err := v.ValidatePersonal(validPersonal())
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@dxc.com", details.EmployeeEmail)
	assert.Equal(t, "Jane Doe", details.FullName)
	require.NotNil(t, details.MobileNumber)
	assert.Equal(t, "+44 (0)7700-900123", *details.MobileNumber)
}

func TestValidatePersonal_OptionalMobile(t *testing.T) {
	v := NewValidator("dxc.com")
	in := validPersonal()
	in.MobileNumber = "   "

	details, err := v.ValidatePersonal(in)
	require.NoError(t, err)
	assert.Nil(t, details.MobileNumber)
}

func TestValidatePersonal_Failures(t *testing.T) {
	v := NewValidator("dxc.com")

	tests := []struct {
		name   string
		mutate func(*PersonalInput)
		field  string
	}{
		{"not agreed", func(in *PersonalInput) { in.Agreed = false }, "agreed"},
		{"missing name", func(in *PersonalInput) { in.FullName = "123" }, "required"},
		{"missing id", func(in *PersonalInput) { in.EmployeeID = "" }, "required"},
		{"wrong domain", func(in *PersonalInput) { in.EmployeeEmail = "jane@example.com" }, "employee_email"},
		{"subdomain", func(in *PersonalInput) { in.EmployeeEmail = "jane@mail.dxc.com" }, "employee_email"},
		{"short id", func(in *PersonalInput) { in.EmployeeID = "ab" }, "employee_id"},
		{"symbol id", func(in *PersonalInput) { in.EmployeeID = "ab-123" }, "employee_id"},
		{"short mobile", func(in *PersonalInput) { in.MobileNumber = "12345" }, "mobile_number"},
		{"letters in mobile", func(in *PersonalInput) { in.MobileNumber = "07700abc123" }, "mobile_number"},
		{"unknown organisation", func(in *PersonalInput) { in.Organisation = "Other" }, "organisation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validPersonal()
			tt.mutate(&in)
			_, err := v.ValidatePersonal(in)
			assert.Equal(t, tt.field, fieldOf(t, err))
		})
	}
}

func TestValidatePersonal_ConfiguredDomain(t *testing.T) {
	v := NewValidator("example.org")
	in := validPersonal()
	in.EmployeeEmail = "a.b@example.org"

	_, err := v.ValidatePersonal(in)
	assert.NoError(t, err)
}

func TestValidateTeamName(t *testing.T) {
	v := NewValidator("dxc.com")

	name, err := v.ValidateTeamName("  Fell Runners 2 ")
	require.NoError(t, err)
	assert.Equal(t, "Fell Runners 2", name)

	name, err = v.ValidateTeamName("<O'Brien's>")
	require.NoError(t, err)
	assert.Equal(t, "O'Brien's", name)

	for _, bad := range []string{"", "a", "--", strings.Repeat("x", 41)} {
		_, err := v.ValidateTeamName(bad)
		assert.Equal(t, "team_name", fieldOf(t, err), bad)
	}
}

func TestValidateLogistics(t *testing.T) {
	v := NewValidator("dxc.com")

	l, err := v.ValidateLogistics(LogisticsInput{
		TravellingFrom: strings.Repeat("a", 200),
		Notes:          "<b>vegan</b>",
		CampingFri:     true,
	}, domain.RoutePeak)
	require.NoError(t, err)
	assert.Equal(t, DefaultShirtSize, l.ShirtSize)
	require.NotNil(t, l.TravellingFrom)
	assert.Len(t, *l.TravellingFrom, 120)
	require.NotNil(t, l.Notes)
	assert.Equal(t, "bvegan/b", *l.Notes)
	assert.Nil(t, l.HikingExperience)
	assert.True(t, l.CampingFri)
}

func TestValidateLogistics_ShirtSize(t *testing.T) {
	v := NewValidator("dxc.com")

	l, err := v.ValidateLogistics(LogisticsInput{ShirtSize: "xl"}, domain.RouteTough)
	require.NoError(t, err)
	assert.Equal(t, "XL", l.ShirtSize)

	_, err = v.ValidateLogistics(LogisticsInput{ShirtSize: "XXXL"}, domain.RouteTough)
	assert.Equal(t, "shirt_size", fieldOf(t, err))
}

func TestValidateLogistics_TougherNeedsExperience(t *testing.T) {
	v := NewValidator("dxc.com")

	_, err := v.ValidateLogistics(LogisticsInput{HikingExperience: "  "}, domain.RouteTougher)
	assert.Equal(t, "hiking_experience", fieldOf(t, err))

	l, err := v.ValidateLogistics(LogisticsInput{HikingExperience: "Three Peaks 2024"}, domain.RouteTougher)
	require.NoError(t, err)
	require.NotNil(t, l.HikingExperience)
	assert.Equal(t, "Three Peaks 2024", *l.HikingExperience)
}

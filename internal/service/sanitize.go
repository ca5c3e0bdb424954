package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/aidar/challenge-portal/internal/domain"
)

// Free text length limits in characters
const (
	maxTravellingFromLen = 120
	maxFreeTextLen       = 500
)

// Organisations accepted on the personal step
var Organisations = []string{"L-ES", "L-CSC", "Velonetic"}

// ShirtSizes accepted on the logistics step
var ShirtSizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// DefaultShirtSize is used when the logistics step leaves the size empty
const DefaultShirtSize = "M"

var (
	controlChars       = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	nameDisallowed     = regexp.MustCompile(`[^A-Za-zÀ-ÖØ-öø-ÿ' -]`)
	teamNameDisallowed = regexp.MustCompile(`[^A-Za-zÀ-ÖØ-öø-ÿ0-9' -]`)
	alphanumeric       = regexp.MustCompile(`[A-Za-z0-9]`)
	employeeIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)
	mobileFormatting   = regexp.MustCompile(`[ +()-]`)
	digitsOnly         = regexp.MustCompile(`^[0-9]+$`)
	angleBrackets      = regexp.MustCompile(`[<>]`)
)

// SanitizeText applies NFKC normalisation, drops control characters and trims whitespace
func SanitizeText(value string) string {
	if value == "" {
		return ""
	}
	value = norm.NFKC.String(value)
	value = controlChars.ReplaceAllString(value, "")
	return strings.TrimSpace(value)
}

// SanitizeName keeps letters, spaces, apostrophes and hyphens
func SanitizeName(name string) string {
	return nameDisallowed.ReplaceAllString(SanitizeText(name), "")
}

// SanitizeTeamName keeps letters, digits, spaces, apostrophes and hyphens
func SanitizeTeamName(name string) string {
	return teamNameDisallowed.ReplaceAllString(SanitizeText(name), "")
}

// SanitizeFreeText strips angle brackets and truncates to maxLen characters
func SanitizeFreeText(value string, maxLen int) string {
	value = angleBrackets.ReplaceAllString(SanitizeText(value), "")
	if utf8.RuneCountInString(value) > maxLen {
		value = string([]rune(value)[:maxLen])
	}
	return value
}

// NormalizeDisplayName turns "Last, First" into "First Last"
func NormalizeDisplayName(raw string) string {
	if last, first, ok := strings.Cut(raw, ","); ok {
		return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	}
	return strings.TrimSpace(raw)
}

// Validator checks wizard input against the registration rules
type Validator struct {
	emailPattern *regexp.Regexp
	emailDomain  string
}

// NewValidator creates a Validator accepting e-mails of the given domain
func NewValidator(emailDomain string) *Validator {
	return &Validator{
		emailPattern: regexp.MustCompile(`^[A-Za-z0-9._%+-]+@` + regexp.QuoteMeta(emailDomain) + `$`),
		emailDomain:  emailDomain,
	}
}

// PersonalInput is the raw personal step form
type PersonalInput struct {
	FullName      string `json:"full_name"`
	EmployeeEmail string `json:"employee_email"`
	EmployeeID    string `json:"employee_id"`
	Organisation  string `json:"organisation"`
	MobileNumber  string `json:"mobile_number"`
	ForcesVet     bool   `json:"forces_vet"`
	Agreed        bool   `json:"agreed"`
}

// LogisticsInput is the raw logistics step form
type LogisticsInput struct {
	ShirtSize        string `json:"shirt_size"`
	CampingFri       bool   `json:"camping_fri"`
	CampingSat       bool   `json:"camping_sat"`
	TakingCar        bool   `json:"taking_car"`
	TravellingFrom   string `json:"travelling_from"`
	Notes            string `json:"notes"`
	HikingExperience string `json:"hiking_experience"`
}

// ValidatePersonal sanitises and validates the personal step
func (v *Validator) ValidatePersonal(in PersonalInput) (domain.PersonalDetails, error) {
	if !in.Agreed {
		return domain.PersonalDetails{}, domain.NewValidationError("agreed", "you must agree to the participation terms before continuing")
	}

	fullName := SanitizeName(in.FullName)
	email := strings.ToLower(SanitizeText(in.EmployeeEmail))
	employeeID := SanitizeText(in.EmployeeID)
	mobile := SanitizeText(in.MobileNumber)

	var missing []string
	if fullName == "" {
		missing = append(missing, "Full Name")
	}
	if email == "" {
		missing = append(missing, "Email")
	}
	if employeeID == "" {
		missing = append(missing, "Employee ID")
	}
	if len(missing) > 0 {
		return domain.PersonalDetails{}, domain.NewValidationError("required", "please complete required fields: "+strings.Join(missing, ", "))
	}

	if !v.emailPattern.MatchString(email) {
		return domain.PersonalDetails{}, domain.NewValidationError("employee_email", "please enter a valid email ending with @"+v.emailDomain)
	}
	if !employeeIDPattern.MatchString(employeeID) {
		return domain.PersonalDetails{}, domain.NewValidationError("employee_id", "employee ID must be 3-20 alphanumeric characters")
	}
	if !validMobile(mobile) {
		return domain.PersonalDetails{}, domain.NewValidationError("mobile_number", "mobile number contains invalid characters or wrong length")
	}
	if !contains(Organisations, in.Organisation) {
		return domain.PersonalDetails{}, domain.NewValidationError("organisation", "organisation must be one of "+strings.Join(Organisations, ", "))
	}

	details := domain.PersonalDetails{
		FullName:      fullName,
		EmployeeEmail: email,
		EmployeeID:    employeeID,
		Organisation:  in.Organisation,
		ForcesVet:     in.ForcesVet,
	}
	if mobile != "" {
		details.MobileNumber = &mobile
	}
	return details, nil
}

func validMobile(mobile string) bool {
	if mobile == "" {
		return true
	}
	stripped := mobileFormatting.ReplaceAllString(mobile, "")
	return digitsOnly.MatchString(stripped) && len(stripped) >= 7 && len(stripped) <= 15
}

// ValidateTeamName sanitises a new team name. Uniqueness is checked against storage separately.
func (v *Validator) ValidateTeamName(raw string) (string, error) {
	name := SanitizeTeamName(raw)
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 40 || !alphanumeric.MatchString(name) {
		return "", domain.NewValidationError("team_name", "invalid team name: use 2-40 letters or numbers, spaces, hyphens or apostrophes")
	}
	return name, nil
}

// ValidateLogistics sanitises the logistics step. Hiking experience is
// mandatory on the Tougher route.
func (v *Validator) ValidateLogistics(in LogisticsInput, route domain.Route) (domain.Logistics, error) {
	size := strings.ToUpper(SanitizeText(in.ShirtSize))
	if size == "" {
		size = DefaultShirtSize
	}
	if !contains(ShirtSizes, size) {
		return domain.Logistics{}, domain.NewValidationError("shirt_size", "shirt size must be one of "+strings.Join(ShirtSizes, ", "))
	}

	travellingFrom := SanitizeFreeText(in.TravellingFrom, maxTravellingFromLen)
	notes := SanitizeFreeText(in.Notes, maxFreeTextLen)
	experience := SanitizeFreeText(in.HikingExperience, maxFreeTextLen)

	if route == domain.RouteTougher && experience == "" {
		return domain.Logistics{}, domain.NewValidationError("hiking_experience", "hiking experience is required for the Tougher route")
	}

	return domain.Logistics{
		ShirtSize:        size,
		CampingFri:       in.CampingFri,
		CampingSat:       in.CampingSat,
		TakingCar:        in.TakingCar,
		TravellingFrom:   optional(travellingFrom),
		Notes:            optional(notes),
		HikingExperience: optional(experience),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

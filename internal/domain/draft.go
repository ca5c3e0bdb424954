package domain

import "time"

// Колонки таблицы members, по которым определяется заполненность шагов
const (
	ColFullName         = "full_name"
	ColEmployeeEmail    = "employee_email"
	ColEmployeeID       = "employee_id"
	ColOrganisation     = "organisation"
	ColTeamChoice       = "team_choice"
	ColRole             = "role"
	ColTeamRegisteredAt = "team_registered_at"
	ColPreferredRoute   = "preferred_route"
	ColShirtSize        = "shirt_size"
	ColTravellingFrom   = "travelling_from"
	ColNotes            = "notes"
	ColHikingExperience = "hiking_experience"
)

// Record представляет строку регистрации в виде колонка -> значение.
// Отсутствие ключа означает отсутствие колонки в схеме, nil - пустое значение.
type Record map[string]any

// Draft незавершенная регистрация, накапливаемая по шагам мастера в рамках одной сессии
type Draft struct {
	FullName      string  `json:"full_name,omitempty"`
	EmployeeEmail string  `json:"employee_email,omitempty"`
	EmployeeID    string  `json:"employee_id,omitempty"`
	Organisation  string  `json:"organisation,omitempty"`
	MobileNumber  *string `json:"mobile_number,omitempty"`
	ForcesVet     bool    `json:"forces_vet,omitempty"`

	TeamID           *int64     `json:"team_id,omitempty"`
	TeamName         *string    `json:"team_name,omitempty"`
	TeamRoute        *Route     `json:"team_route,omitempty"`
	TeamChoice       TeamChoice `json:"team_choice,omitempty"`
	Role             Role       `json:"role,omitempty"`
	TeamRegisteredAt *time.Time `json:"team_registered_at,omitempty"`

	PreferredRoute     Route `json:"preferred_route,omitempty"`
	IndividualOverride bool  `json:"individual_override,omitempty"`

	ShirtSize        string  `json:"shirt_size,omitempty"`
	CampingFri       bool    `json:"camping_fri,omitempty"`
	CampingSat       bool    `json:"camping_sat,omitempty"`
	TakingCar        bool    `json:"taking_car,omitempty"`
	TravellingFrom   *string `json:"travelling_from,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	HikingExperience *string `json:"hiking_experience,omitempty"`

	// MemberVersion версия записи members, из которой был восстановлен черновик (0 - новая регистрация)
	MemberVersion int `json:"member_version,omitempty"`
}

// PersonalDetails данные шага 1
type PersonalDetails struct {
	FullName      string
	EmployeeEmail string
	EmployeeID    string
	Organisation  string
	MobileNumber  *string
	ForcesVet     bool
}

// TeamSelection данные шага 2
type TeamSelection struct {
	Choice    TeamChoice
	TeamID    *int64
	TeamName  *string
	TeamRoute *Route
	Role      Role
}

// Logistics данные шага 4
type Logistics struct {
	ShirtSize        string
	CampingFri       bool
	CampingSat       bool
	TakingCar        bool
	TravellingFrom   *string
	Notes            *string
	HikingExperience *string
}

// ApplyPersonal сливает данные шага 1 в черновик
func (d *Draft) ApplyPersonal(p PersonalDetails) {
	d.FullName = p.FullName
	d.EmployeeEmail = p.EmployeeEmail
	d.EmployeeID = p.EmployeeID
	d.Organisation = p.Organisation
	d.MobileNumber = p.MobileNumber
	d.ForcesVet = p.ForcesVet
}

// ApplyTeam сливает выбор команды. Nil значения перезаписывают прежние: переход в
// независимые участники обязан очистить команду.
func (d *Draft) ApplyTeam(s TeamSelection, at time.Time) {
	d.TeamChoice = s.Choice
	d.TeamID = s.TeamID
	d.TeamName = s.TeamName
	d.TeamRoute = s.TeamRoute
	d.Role = s.Role
	d.TeamRegisteredAt = &at
}

// ApplyRoute сохраняет выбранный маршрут
func (d *Draft) ApplyRoute(route Route, individualOverride bool) {
	d.PreferredRoute = route
	d.IndividualOverride = individualOverride
}

// ApplyLogistics сливает данные шага 4
func (d *Draft) ApplyLogistics(l Logistics) {
	d.ShirtSize = l.ShirtSize
	d.CampingFri = l.CampingFri
	d.CampingSat = l.CampingSat
	d.TakingCar = l.TakingCar
	d.TravellingFrom = l.TravellingFrom
	d.Notes = l.Notes
	d.HikingExperience = l.HikingExperience
}

// HasTeamDecision возвращает true если шаг выбора команды был подтвержден
func (d *Draft) HasTeamDecision() bool {
	return d.TeamChoice != "" && d.TeamRegisteredAt != nil
}

// Reset очищает черновик
func (d *Draft) Reset() {
	*d = Draft{}
}

// IsEmpty возвращает true если в черновик еще ничего не внесено
func (d *Draft) IsEmpty() bool {
	return d.FullName == "" && d.EmployeeEmail == "" && d.EmployeeID == "" &&
		d.Organisation == "" && d.TeamChoice == "" && d.PreferredRoute == "" &&
		d.ShirtSize == "" && d.TravellingFrom == nil && d.Notes == nil && d.HikingExperience == nil
}

// Record возвращает черновик в колоночном виде для определения следующего шага
func (d *Draft) Record() Record {
	rec := Record{
		ColFullName:         nilIfEmpty(d.FullName),
		ColEmployeeEmail:    nilIfEmpty(d.EmployeeEmail),
		ColEmployeeID:       nilIfEmpty(d.EmployeeID),
		ColOrganisation:     nilIfEmpty(d.Organisation),
		ColTeamChoice:       nilIfEmpty(string(d.TeamChoice)),
		ColRole:             nilIfEmpty(string(d.Role)),
		ColTeamRegisteredAt: nil,
		ColPreferredRoute:   nilIfEmpty(string(d.PreferredRoute)),
		ColShirtSize:        nilIfEmpty(d.ShirtSize),
		ColTravellingFrom:   derefOrNil(d.TravellingFrom),
		ColNotes:            derefOrNil(d.Notes),
		ColHikingExperience: derefOrNil(d.HikingExperience),
	}
	if d.TeamRegisteredAt != nil {
		rec[ColTeamRegisteredAt] = *d.TeamRegisteredAt
	}
	return rec
}

// FromMember восстанавливает черновик из сохраненной регистрации (продолжение на другом устройстве)
func FromMember(m *Member) Draft {
	d := Draft{
		FullName:           m.FullName,
		EmployeeEmail:      m.EmployeeEmail,
		EmployeeID:         m.EmployeeID,
		Organisation:       m.Organisation,
		MobileNumber:       m.MobileNumber,
		ForcesVet:          m.ForcesVet,
		TeamID:             m.TeamID,
		TeamRegisteredAt:   m.TeamRegisteredAt,
		IndividualOverride: m.IndividualOverride,
		CampingFri:         m.CampingFri,
		CampingSat:         m.CampingSat,
		TakingCar:          m.TakingCar,
		TravellingFrom:     m.TravellingFrom,
		Notes:              m.Notes,
		HikingExperience:   m.HikingExperience,
		MemberVersion:      m.Version,
	}
	if m.TeamChoice != nil {
		d.TeamChoice = TeamChoice(*m.TeamChoice)
	}
	if m.Role != nil {
		d.Role = Role(*m.Role)
	}
	if m.PreferredRoute != nil {
		d.PreferredRoute = Route(*m.PreferredRoute)
	}
	if m.ShirtSize != nil {
		d.ShirtSize = *m.ShirtSize
	}
	return d
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

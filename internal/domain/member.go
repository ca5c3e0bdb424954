package domain

import "time"

// Route представляет один из маршрутов события
type Route string

// Маршруты события
const (
	RoutePeak    Route = "Peak"
	RouteTough   Route = "Tough"
	RouteTougher Route = "Tougher"
)

// Routes возвращает маршруты в порядке отображения
func Routes() []Route {
	return []Route{RoutePeak, RouteTough, RouteTougher}
}

// Valid проверяет, что маршрут входит в каталог
func (r Route) Valid() bool {
	switch r {
	case RoutePeak, RouteTough, RouteTougher:
		return true
	}
	return false
}

// Role представляет роль участника в команде
type Role string

// Роли участника
const (
	RoleMember Role = "Member"
	RoleLeader Role = "Leader"
)

// TeamChoice фиксирует решение участника на шаге выбора команды
type TeamChoice string

// Варианты выбора команды
const (
	TeamChoiceIndependent TeamChoice = "independent"
	TeamChoiceJoined      TeamChoice = "joined"
	TeamChoiceCreated     TeamChoice = "created"
)

// Member представляет сохраненную регистрацию (уникальна по employee_email)
type Member struct {
	ID                 int64      `json:"id"`
	EmployeeEmail      string     `json:"employee_email"`
	FullName           string     `json:"full_name"`
	EmployeeID         string     `json:"employee_id"`
	Organisation       string     `json:"organisation"`
	MobileNumber       *string    `json:"mobile_number"`
	ForcesVet          bool       `json:"forces_vet"`
	TeamID             *int64     `json:"team_id"`
	TeamChoice         *string    `json:"team_choice"`
	Role               *string    `json:"role"`
	TeamRegisteredAt   *time.Time `json:"team_registered_at"`
	PreferredRoute     *string    `json:"preferred_route"`
	IndividualOverride bool       `json:"individual_override"`
	ShirtSize          *string    `json:"shirt_size"`
	CampingFri         bool       `json:"camping_fri"`
	CampingSat         bool       `json:"camping_sat"`
	TakingCar          bool       `json:"taking_car"`
	TravellingFrom     *string    `json:"travelling_from"`
	Notes              *string    `json:"notes"`
	HikingExperience   *string    `json:"hiking_experience"`
	OnWaitingList      bool       `json:"on_waiting_list"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// MemberPatch содержит частичное изменение участника из админ-панели.
// Nil означает "без изменений"; ClearTeam явно обнуляет team_id.
type MemberPatch struct {
	FullName         *string `json:"full_name,omitempty"`
	EmployeeID       *string `json:"employee_id,omitempty"`
	EmployeeEmail    *string `json:"employee_email,omitempty"`
	MobileNumber     *string `json:"mobile_number,omitempty"`
	Organisation     *string `json:"organisation,omitempty"`
	PreferredRoute   *string `json:"preferred_route,omitempty"`
	OnWaitingList    *bool   `json:"on_waiting_list,omitempty"`
	Role             *string `json:"role,omitempty"`
	ShirtSize        *string `json:"shirt_size,omitempty"`
	ForcesVet        *bool   `json:"forces_vet,omitempty"`
	CampingFri       *bool   `json:"camping_fri,omitempty"`
	CampingSat       *bool   `json:"camping_sat,omitempty"`
	TakingCar        *bool   `json:"taking_car,omitempty"`
	Notes            *string `json:"notes,omitempty"`
	HikingExperience *string `json:"hiking_experience,omitempty"`
	TravellingFrom   *string `json:"travelling_from,omitempty"`
	TeamID           *int64  `json:"-"`
	ClearTeam        bool    `json:"-"`
}

// IsEmpty возвращает true если патч ничего не меняет
func (p *MemberPatch) IsEmpty() bool {
	return p.FullName == nil && p.EmployeeID == nil && p.EmployeeEmail == nil &&
		p.MobileNumber == nil && p.Organisation == nil && p.PreferredRoute == nil &&
		p.OnWaitingList == nil && p.Role == nil && p.ShirtSize == nil && p.ForcesVet == nil &&
		p.CampingFri == nil && p.CampingSat == nil && p.TakingCar == nil && p.Notes == nil &&
		p.HikingExperience == nil && p.TravellingFrom == nil && p.TeamID == nil && !p.ClearTeam
}

// AdmissionDecision результат проверки вместимости события
type AdmissionDecision string

// Возможные решения по допуску
const (
	Admit      AdmissionDecision = "admit"       // Участник активен
	Waitlist   AdmissionDecision = "waitlist"    // Участник в листе ожидания
	RejectEdit AdmissionDecision = "reject_edit" // Изменения запрещены
)

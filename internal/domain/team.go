package domain

import "time"

// TeamCapacity максимальное число активных участников команды
const TeamCapacity = 5

// Team представляет команду участников
type Team struct {
	ID        int64     `json:"id"`
	TeamName  string    `json:"team_name"`
	Route     Route     `json:"route"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamSummary команда с количеством активных участников (используется при выборе команды)
type TeamSummary struct {
	Team
	ActiveMembers  int  `json:"active_members"`
	RemainingSlots int  `json:"remaining_slots"`
	Full           bool `json:"full"`
}

// TeamWithMembers команда со всеми участниками (админ-панель и страница деталей)
type TeamWithMembers struct {
	Team
	Members []*Member `json:"members"`
}

// UnassignedTeamName отображаемое имя для участников без команды
const UnassignedTeamName = "Unassigned"

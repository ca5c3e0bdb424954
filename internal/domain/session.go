package domain

import "time"

// Step идентификатор шага мастера регистрации
type Step string

// Шаги мастера в порядке прохождения
const (
	StepPersonal  Step = "personal"
	StepTeam      Step = "team"
	StepRoute     Step = "route"
	StepLogistics Step = "logistics"
	StepReview    Step = "review"
	StepThanks    Step = "thanks"
)

// Session контекст пользовательской сессии: личность, черновик и состояние отправки.
// Создается при логине и удаляется при логауте.
type Session struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	IsAdmin              bool      `json:"is_admin"`
	Draft                Draft     `json:"draft"`
	MemberID             *int64    `json:"member_id,omitempty"`
	LastSubmitAt         time.Time `json:"last_submit_at"`
	SubmissionInProgress bool      `json:"submission_in_progress"`
	CreatedAt            time.Time `json:"created_at"`
}

// Identity данные пользователя из токена внешнего провайдера
type Identity struct {
	Email string
	Name  string
}

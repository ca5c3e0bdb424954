package repository

import (
	"context"

	"github.com/aidar/challenge-portal/internal/domain"
)

// AdmitFunc принимает решение о допуске внутри транзакции записи регистрации.
// Получает текущее число активных участников и существующую запись (nil для новой),
// возвращает значение on_waiting_list или ошибку, отменяющую запись.
type AdmitFunc func(activeCount int, existing *domain.Member) (onWaitingList bool, err error)

// RegistrationCommit описывает атомарную запись регистрации
type RegistrationCommit struct {
	// Member данные для записи, ключ - EmployeeEmail. ID и служебные поля игнорируются.
	Member *domain.Member

	// ExpectedVersion версия записи, на основе которой построен черновик (0 - без проверки)
	ExpectedVersion int

	// TeamCapacity максимальное число активных участников команды
	TeamCapacity int

	// Admit решение о допуске, вычисляемое под блокировкой
	Admit AdmitFunc
}

// MemberFilter фильтр списка участников для админ-панели
type MemberFilter string

// Фильтры списка участников
const (
	MemberFilterAll        MemberFilter = "all"
	MemberFilterWaitlist   MemberFilter = "waiting_list"
	MemberFilterUnassigned MemberFilter = "unassigned"
)

// MemberRepository определяет методы для работы с регистрациями участников
type MemberRepository interface {
	// GetByEmail получает участника по email
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)

	// GetRecordByEmail получает строку участника в колоночном виде (для определения шага мастера)
	GetRecordByEmail(ctx context.Context, email string) (domain.Record, error)

	// GetByID получает участника по ID
	GetByID(ctx context.Context, id int64) (*domain.Member, error)

	// CountActive возвращает число участников не в листе ожидания
	CountActive(ctx context.Context) (int, error)

	// CountWaiting возвращает число участников в листе ожидания
	CountWaiting(ctx context.Context) (int, error)

	// CountActiveInTeam возвращает число активных участников команды
	CountActiveInTeam(ctx context.Context, teamID int64) (int, error)

	// CommitRegistration атомарно проверяет вместимость и создает или обновляет запись по email
	CommitRegistration(ctx context.Context, commit RegistrationCommit) (*domain.Member, error)

	// List возвращает участников по фильтру
	List(ctx context.Context, filter MemberFilter) ([]*domain.Member, error)

	// ListByTeam возвращает участников команды, отсортированных по роли по убыванию
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.Member, error)

	// Update применяет частичное изменение из админ-панели
	Update(ctx context.Context, id int64, patch *domain.MemberPatch) (*domain.Member, error)

	// Delete удаляет участника
	Delete(ctx context.Context, id int64) error

	// CountByRoute возвращает число активных участников по маршрутам
	CountByRoute(ctx context.Context) (map[string]int, error)
}

// TeamRepository определяет методы для работы с данными команд
type TeamRepository interface {
	// Create создает новую команду
	Create(ctx context.Context, teamName string, route domain.Route) (*domain.Team, error)

	// GetByID получает команду по ID
	GetByID(ctx context.Context, id int64) (*domain.Team, error)

	// GetByName получает команду по имени без учета регистра
	GetByName(ctx context.Context, teamName string) (*domain.Team, error)

	// Exists проверяет существование команды без учета регистра
	Exists(ctx context.Context, teamName string) (bool, error)

	// List возвращает все команды по имени
	List(ctx context.Context) ([]*domain.Team, error)

	// ListSummaries возвращает команды с числом активных участников
	ListSummaries(ctx context.Context, capacity int) ([]*domain.TeamSummary, error)

	// Delete удаляет команду, участники остаются без команды
	Delete(ctx context.Context, id int64) error
}

// SessionStore определяет методы хранения пользовательских сессий
type SessionStore interface {
	// Save сохраняет сессию и продлевает срок ее жизни
	Save(ctx context.Context, session *domain.Session) error

	// Get получает сессию по ID
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Delete удаляет сессию
	Delete(ctx context.Context, id string) error
}

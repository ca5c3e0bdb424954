package domain

import (
	"errors"
	"fmt"
)

// Доменные ошибки портала регистрации
var (
	// ErrTeamExists возвращается при попытке создать команду с уже занятым именем
	ErrTeamExists = errors.New("team already exists")

	// ErrTeamFull возвращается когда в команде уже 5 активных участников
	ErrTeamFull = errors.New("team is full")

	// ErrWaitlistFrozen возвращается когда участник из листа ожидания пытается изменить данные при заполненном событии
	ErrWaitlistFrozen = errors.New("waiting list registrations cannot be edited while the event is full")

	// ErrRouteDivergence возвращается когда выбранный маршрут отличается от маршрута команды без подтверждения
	ErrRouteDivergence = errors.New("route differs from team route")

	// ErrSubmitCooldown возвращается при повторной отправке раньше окончания паузы
	ErrSubmitCooldown = errors.New("submission cooldown in effect")

	// ErrSubmissionInProgress возвращается когда отправка уже выполняется
	ErrSubmissionInProgress = errors.New("submission already in progress")

	// ErrStaleRegistration возвращается когда запись участника изменилась с момента загрузки
	ErrStaleRegistration = errors.New("registration was modified concurrently")

	// ErrIncompleteRegistration возвращается при финальной отправке незаполненного черновика
	ErrIncompleteRegistration = errors.New("registration is incomplete")

	// ErrUnknownRoute возвращается для маршрута вне каталога
	ErrUnknownRoute = errors.New("unknown route")

	// ErrTrackUnavailable возвращается когда GPX файл отсутствует или поврежден
	ErrTrackUnavailable = errors.New("track unavailable")

	// ErrNotFound возвращается когда ресурс не найден
	ErrNotFound = errors.New("resource not found")

	// ErrMemberNotFound возвращается когда участник не найден
	ErrMemberNotFound = errors.New("member not found")

	// ErrTeamNotFound возвращается когда команда не найдена
	ErrTeamNotFound = errors.New("team not found")

	// ErrSessionNotFound возвращается когда сессия истекла или удалена
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnauthorized возвращается при неудачной аутентификации
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken возвращается когда токен невалиден
	ErrInvalidToken = errors.New("invalid token")

	// ErrForbidden возвращается когда у пользователя нет доступа
	ErrForbidden = errors.New("forbidden")
)

// ValidationError описывает некорректное поле формы
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создает ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrorCode представляет коды ошибок API
type ErrorCode string

// Коды ошибок API
const (
	CodeTeamExists          ErrorCode = "TEAM_EXISTS"            // Команда уже существует
	CodeTeamFull            ErrorCode = "TEAM_FULL"              // В команде нет мест
	CodeAdmissionConflict   ErrorCode = "ADMISSION_CONFLICT"     // Лист ожидания заморожен
	CodeRouteDivergence     ErrorCode = "ROUTE_DIVERGENCE"       // Нужно подтверждение индивидуального участия
	CodeCooldown            ErrorCode = "COOLDOWN"               // Слишком частая отправка
	CodeSubmissionBusy      ErrorCode = "SUBMISSION_IN_PROGRESS" // Отправка уже идет
	CodeStaleRegistration   ErrorCode = "STALE_REGISTRATION"     // Запись изменена параллельно
	CodeIncomplete          ErrorCode = "INCOMPLETE"             // Черновик не заполнен
	CodeValidationFailed    ErrorCode = "VALIDATION_FAILED"      // Некорректные данные формы
	CodeTrackUnavailable    ErrorCode = "TRACK_UNAVAILABLE"      // GPX недоступен
	CodeNotFound            ErrorCode = "NOT_FOUND"              // Ресурс не найден
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"           // Нет сессии
	CodeForbidden           ErrorCode = "FORBIDDEN"              // Нет прав
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"         // Ошибка хранилища
	CodeBadRequest          ErrorCode = "BAD_REQUEST"            // Некорректный запрос
	CodeUnknownRouteRequest ErrorCode = "UNKNOWN_ROUTE"          // Маршрут вне каталога
)

// MapErrorToCode преобразует доменные ошибки в коды ошибок API
func MapErrorToCode(err error) ErrorCode {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		return CodeValidationFailed
	case errors.Is(err, ErrTeamExists):
		return CodeTeamExists
	case errors.Is(err, ErrTeamFull):
		return CodeTeamFull
	case errors.Is(err, ErrWaitlistFrozen):
		return CodeAdmissionConflict
	case errors.Is(err, ErrRouteDivergence):
		return CodeRouteDivergence
	case errors.Is(err, ErrSubmitCooldown):
		return CodeCooldown
	case errors.Is(err, ErrSubmissionInProgress):
		return CodeSubmissionBusy
	case errors.Is(err, ErrStaleRegistration):
		return CodeStaleRegistration
	case errors.Is(err, ErrIncompleteRegistration):
		return CodeIncomplete
	case errors.Is(err, ErrUnknownRoute):
		return CodeUnknownRouteRequest
	case errors.Is(err, ErrTrackUnavailable):
		return CodeTrackUnavailable
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrMemberNotFound),
		errors.Is(err, ErrTeamNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrSessionNotFound):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	default:
		return CodeInternalError
	}
}

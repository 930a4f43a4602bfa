package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrTeamNameRequired      = errors.New("team name is required")
	ErrRosterEmpty           = errors.New("at least one player is required")
	ErrRosterTooLarge        = errors.New("roster exceeds max players per team")
	ErrRegistrationNotOpen   = errors.New("tournament registration is not open")
	ErrTournamentUnpublished = errors.New("tournament is not published")

	// Ошибки движка рассадки
	ErrNoGroupsDefined         = errors.New("tournament has no groups, slots cannot be initialized")
	ErrSlotsAlreadyInitialized = errors.New("slots are already initialized for this tournament")
	ErrRegistrationNotApproved = errors.New("registration is not approved")
	ErrAlreadyAssigned         = errors.New("registration already occupies a slot")
	ErrCapacityExhausted       = errors.New("no free slots remain in any group")
	ErrSlotVacant              = errors.New("source slot is not occupied")
	ErrInvalidSlotReference    = errors.New("invalid slot reference")
	ErrInvalidStatusTransition = errors.New("invalid registration status transition")

	// Ошибки конфликтов
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrRegistrationConflict   = errors.New("user already has an active registration for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrGroupNameConflict      = errors.New("group name already exists in this tournament")

	// Ошибки аутентификации и авторизации
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrGroupNotFound        = errors.New("tournament group not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrSlotNotFound         = errors.New("slot not found")

	// Ошибки турниров
	ErrTournamentInvalidCapacity = errors.New("tournament team capacity must be at least 2")
	ErrTournamentInvalidWindows  = errors.New("tournament registration window must close before matches end")

	// Объектное хранилище не сконфигурировано, загрузка медиа отключена
	ErrStorageUnavailable = errors.New("object storage is not configured, media uploads are disabled")
)

package services

import "github.com/arenalink/tournament-platform/models"

// Actor — действующий пользователь, от имени которого выполняется
// операция. Передаётся каждой мутирующей операции для авторизации и
// атрибуции в журнале аудита.
type Actor struct {
	UserID int
	Role   models.UserRole
}

// Единая точка проверки прав: все мутирующие операции сервисов сверяются
// с этими функциями, а не дублируют ветвление по ролям на местах.

// CanManageSlots: инициализация пула, авторассадка и перемещения.
func CanManageSlots(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleModerator
}

// CanReviewRegistrations: одобрение и отклонение заявок.
func CanReviewRegistrations(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleModerator
}

// CanManageTournaments: создание и правка турниров и групп.
func CanManageTournaments(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleModerator
}

// CanAdministrate: операции только для администратора (удаление турнира,
// смена ролей, просмотр журнала аудита).
func CanAdministrate(role models.UserRole) bool {
	return role == models.RoleAdmin
}

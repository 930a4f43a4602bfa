package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
	"github.com/arenalink/tournament-platform/storage"
	"golang.org/x/sync/errgroup"
)

// slotNumberBase — номер первого слота в каждой группе. Номера идут
// подряд от базы, в каждой группе заново.
const slotNumberBase = 6

// BoardNotifier получает уведомления об изменениях рассадки турнира
// (реализуется websocket-хабом; nil допустим).
type BoardNotifier interface {
	NotifySlotsUpdated(tournamentID int)
}

// AssignedSlot описывает результат успешной рассадки одной заявки.
type AssignedSlot struct {
	RegistrationID int `json:"registration_id"`
	SlotID         int `json:"slot_id"`
	GroupID        int `json:"group_id"`
	SlotNumber     int `json:"slot_number"`
}

// FailedAssignment описывает заявку, которую не удалось рассадить.
type FailedAssignment struct {
	RegistrationID int    `json:"registration_id"`
	Reason         string `json:"reason"`
}

// BulkAssignResult — итог пакетной рассадки: пофамильный список удач и
// неудач, чтобы администратор видел, какие команды требуют внимания.
type BulkAssignResult struct {
	Succeeded []AssignedSlot     `json:"succeeded"`
	Failed    []FailedAssignment `json:"failed"`
}

// SlotBoard — админская доска слотов: группы, слоты со сводкой по
// командам и одобренные заявки, ещё не получившие место.
type SlotBoard struct {
	Groups            []*models.TournamentGroup `json:"groups"`
	Slots             []*models.Slot            `json:"slots"`
	PendingAssignment []*models.Registration    `json:"pending_assignment"`
	AssignedCount     int                       `json:"assigned_count"`
	TotalSlots        int                       `json:"total_slots"`
}

// SlotService — движок рассадки: владеет связкой "одобренная заявка ↔
// нумерованный слот" внутри турнира.
type SlotService interface {
	InitializeSlots(ctx context.Context, tournamentID int, actor Actor) error
	AutoAssign(ctx context.Context, tournamentID, registrationID int, actor Actor) (*AssignedSlot, error)
	AutoAssignAll(ctx context.Context, tournamentID int, actor Actor) (*BulkAssignResult, error)
	ReleaseSlot(ctx context.Context, registrationID int, actor Actor) error
	MoveOrSwap(ctx context.Context, fromSlotID, toSlotID int, actor Actor) error
	GetBoard(ctx context.Context, tournamentID int) (*SlotBoard, error)
}

type slotService struct {
	txRunner       repositories.TxRunner
	slotRepo       repositories.SlotRepository
	groupRepo      repositories.GroupRepository
	regRepo        repositories.RegistrationRepository
	tournamentRepo repositories.TournamentRepository
	auditRepo      repositories.AuditRepository
	uploader       storage.FileUploader
	notifier       BoardNotifier
	logger         *slog.Logger
	now            func() time.Time
}

func NewSlotService(
	txRunner repositories.TxRunner,
	slotRepo repositories.SlotRepository,
	groupRepo repositories.GroupRepository,
	regRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	auditRepo repositories.AuditRepository,
	uploader storage.FileUploader,
	notifier BoardNotifier,
	logger *slog.Logger,
) SlotService {
	return &slotService{
		txRunner:       txRunner,
		slotRepo:       slotRepo,
		groupRepo:      groupRepo,
		regRepo:        regRepo,
		tournamentRepo: tournamentRepo,
		auditRepo:      auditRepo,
		uploader:       uploader,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

// InitializeSlots создаёт пул слотов турнира: по непрерывному диапазону
// номеров на каждую группу. Операция разовая: при уже существующих
// слотах повторная инициализация отклоняется.
func (s *slotService) InitializeSlots(ctx context.Context, tournamentID int, actor Actor) error {
	if !CanManageSlots(actor.Role) {
		return ErrForbiddenOperation
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	groups, err := s.groupRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to list groups for tournament %d: %w", tournamentID, err)
	}
	if len(groups) == 0 {
		return ErrNoGroupsDefined
	}

	existing, err := s.slotRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to count slots for tournament %d: %w", tournamentID, err)
	}
	if existing > 0 {
		return ErrSlotsAlreadyInitialized
	}

	perGroup := tournament.TeamsPerGroup
	if perGroup <= 0 {
		// teams_per_group = 0 — единый пул: одна группа на всю ёмкость.
		perGroup = tournament.TotalTeamCapacity
	}

	slots := make([]*models.Slot, 0, len(groups)*perGroup)
	for _, g := range groups {
		for n := slotNumberBase; n < slotNumberBase+perGroup; n++ {
			slots = append(slots, &models.Slot{
				TournamentID: tournamentID,
				GroupID:      g.ID,
				SlotNumber:   n,
			})
		}
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.slotRepo.CreateBatch(ctx, exec, slots); err != nil {
			return err
		}
		return s.recordAudit(ctx, exec, actor, models.AuditActionInitializeSlots, "tournament", &tournamentID, map[string]interface{}{
			"groups":          len(groups),
			"slots_per_group": perGroup,
		})
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "slot pool initialized",
		slog.Int("tournament_id", tournamentID),
		slog.Int("groups", len(groups)),
		slog.Int("slots_per_group", perGroup))
	s.notifySlotsUpdated(tournamentID)
	return nil
}

// AutoAssign сажает одну одобренную заявку в первый свободный слот в
// порядке (sort_order группы, номер слота). Захват слота — условный
// апдейт; проигранная гонка прозрачно повторяется на следующем слоте.
func (s *slotService) AutoAssign(ctx context.Context, tournamentID, registrationID int, actor Actor) (*AssignedSlot, error) {
	if !CanManageSlots(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	reg, err := s.regRepo.FindByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to load registration %d: %w", registrationID, err)
	}
	if reg.TournamentID != tournamentID {
		return nil, ErrRegistrationNotFound
	}
	if err := s.checkAssignable(ctx, reg); err != nil {
		return nil, err
	}

	return s.claimNextFreeSlot(ctx, tournamentID, reg, actor)
}

func (s *slotService) checkAssignable(ctx context.Context, reg *models.Registration) error {
	if reg.Status == models.RegistrationAssignedSlot {
		return ErrAlreadyAssigned
	}
	if reg.Status != models.RegistrationApproved {
		return ErrRegistrationNotApproved
	}
	_, err := s.slotRepo.FindByRegistration(ctx, nil, reg.ID)
	if err == nil {
		return ErrAlreadyAssigned
	}
	if !errors.Is(err, repositories.ErrSlotNotFound) {
		return fmt.Errorf("failed to check existing slot for registration %d: %w", reg.ID, err)
	}
	return nil
}

// claimNextFreeSlot перебирает свободные слоты в детерминированном
// порядке. Каждая попытка — одна транзакция: условный захват слота,
// перевод заявки в assigned_slot с зеркалированием группы и запись в
// аудит. Проигранный захват не ошибка — берём следующий кандидат; когда
// снимок исчерпан, он перечитывается, и пустой снимок означает, что
// мест не осталось.
func (s *slotService) claimNextFreeSlot(ctx context.Context, tournamentID int, reg *models.Registration, actor Actor) (*AssignedSlot, error) {
	for {
		vacant, err := s.slotRepo.ListVacantByTournament(ctx, nil, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list vacant slots for tournament %d: %w", tournamentID, err)
		}
		if len(vacant) == 0 {
			return nil, ErrCapacityExhausted
		}

		for _, candidate := range vacant {
			assignedAt := s.now()
			err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
				if err := s.slotRepo.Assign(ctx, exec, candidate.ID, reg.ID, actor.UserID, assignedAt); err != nil {
					return err
				}
				if err := s.regRepo.UpdateStatusAndGroup(ctx, exec, reg.ID, models.RegistrationAssignedSlot, &candidate.GroupID); err != nil {
					return err
				}
				return s.recordAudit(ctx, exec, actor, models.AuditActionAutoAssignSlot, "slot", &candidate.ID, map[string]interface{}{
					"tournament_id":   tournamentID,
					"registration_id": reg.ID,
					"group_id":        candidate.GroupID,
					"slot_number":     candidate.SlotNumber,
				})
			})
			if err == nil {
				s.logger.InfoContext(ctx, "registration assigned to slot",
					slog.Int("tournament_id", tournamentID),
					slog.Int("registration_id", reg.ID),
					slog.Int("slot_id", candidate.ID),
					slog.Int("slot_number", candidate.SlotNumber))
				s.notifySlotsUpdated(tournamentID)
				return &AssignedSlot{
					RegistrationID: reg.ID,
					SlotID:         candidate.ID,
					GroupID:        candidate.GroupID,
					SlotNumber:     candidate.SlotNumber,
				}, nil
			}
			if errors.Is(err, repositories.ErrSlotTaken) {
				// Слот увели между чтением и захватом — пробуем следующий.
				continue
			}
			if errors.Is(err, repositories.ErrSlotRegistrationConflict) {
				// Параллельный вызов уже посадил эту заявку.
				return nil, ErrAlreadyAssigned
			}
			return nil, err
		}
		// Все кандидаты снимка проиграны, перечитываем занятость.
	}
}

// AutoAssignAll рассаживает все одобренные заявки без слота, по одной,
// в порядке подачи. Неудача одной команды не прерывает остальных;
// фатальна только невозможность получить сам список кандидатов.
func (s *slotService) AutoAssignAll(ctx context.Context, tournamentID int, actor Actor) (*BulkAssignResult, error) {
	if !CanManageSlots(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	candidates, err := s.regRepo.ListApprovedUnassigned(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved registrations for tournament %d: %w", tournamentID, err)
	}

	result := &BulkAssignResult{
		Succeeded: make([]AssignedSlot, 0, len(candidates)),
		Failed:    make([]FailedAssignment, 0),
	}
	for _, reg := range candidates {
		if err := s.checkAssignable(ctx, reg); err != nil {
			result.Failed = append(result.Failed, FailedAssignment{RegistrationID: reg.ID, Reason: err.Error()})
			continue
		}
		assigned, err := s.claimNextFreeSlot(ctx, tournamentID, reg, actor)
		if err != nil {
			result.Failed = append(result.Failed, FailedAssignment{RegistrationID: reg.ID, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, *assigned)
	}

	auditErr := s.recordAudit(ctx, nil, actor, models.AuditActionAutoAssignAllSlots, "tournament", &tournamentID, map[string]interface{}{
		"attempted": len(candidates),
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
	if auditErr != nil {
		s.logger.ErrorContext(ctx, "failed to record bulk assignment audit entry",
			slog.Int("tournament_id", tournamentID), slog.Any("error", auditErr))
	}

	s.logger.InfoContext(ctx, "bulk slot assignment finished",
		slog.Int("tournament_id", tournamentID),
		slog.Int("attempted", len(candidates)),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)))
	return result, nil
}

// ReleaseSlot отклоняет заявку и освобождает её слот одной транзакцией:
// состояние "заявка отклонена, но слот всё ещё занят ею" (и наоборот)
// не наблюдаемо ни в какой момент.
func (s *slotService) ReleaseSlot(ctx context.Context, registrationID int, actor Actor) error {
	if !CanReviewRegistrations(actor.Role) {
		return ErrForbiddenOperation
	}

	reg, err := s.regRepo.FindByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to load registration %d: %w", registrationID, err)
	}
	if !registrationTransitionAllowed(reg.Status, models.RegistrationRejected) {
		return ErrInvalidStatusTransition
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		cleared, err := s.slotRepo.ClearByRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if err := s.regRepo.UpdateStatusAndGroup(ctx, exec, registrationID, models.RegistrationRejected, nil); err != nil {
			return err
		}
		return s.recordAudit(ctx, exec, actor, models.AuditActionReviewRegistration, "registration", &registrationID, map[string]interface{}{
			"tournament_id": reg.TournamentID,
			"status":        models.RegistrationRejected,
			"cleared_slot":  cleared > 0,
		})
	})
	if err != nil {
		return err
	}

	s.notifySlotsUpdated(reg.TournamentID)
	return nil
}

// MoveOrSwap меняет содержимое двух слотов, адресуемых только по их
// уникальным идентификаторам: номер слота неоднозначен между группами.
// Пустой целевой слот даёт перенос, занятый — обмен. Перенос между
// группами поддерживается: зеркальный group_id заявок обновляется.
func (s *slotService) MoveOrSwap(ctx context.Context, fromSlotID, toSlotID int, actor Actor) error {
	if !CanManageSlots(actor.Role) {
		return ErrForbiddenOperation
	}
	if fromSlotID == toSlotID {
		return ErrInvalidSlotReference
	}

	var tournamentID int
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		// Блокируем строки в порядке возрастания id против дедлока
		// встречных обменов.
		firstID, secondID := fromSlotID, toSlotID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := s.slotRepo.LockByID(ctx, exec, firstID)
		if err != nil {
			return s.mapSlotLookupError(err)
		}
		second, err := s.slotRepo.LockByID(ctx, exec, secondID)
		if err != nil {
			return s.mapSlotLookupError(err)
		}

		from, to := first, second
		if from.ID != fromSlotID {
			from, to = second, first
		}
		if from.TournamentID != to.TournamentID {
			return ErrInvalidSlotReference
		}
		if !from.Occupied() {
			return ErrSlotVacant
		}
		tournamentID = from.TournamentID

		movedReg := *from.RegistrationID
		displacedReg := to.RegistrationID
		assignedAt := s.now()

		// Сначала освобождаем оба слота: частичный уникальный индекс
		// "одна заявка — один слот" не допускает промежуточного
		// состояния с дублем.
		if err := s.slotRepo.SetOccupant(ctx, exec, from.ID, nil, nil, nil); err != nil {
			return err
		}
		if to.Occupied() {
			if err := s.slotRepo.SetOccupant(ctx, exec, to.ID, nil, nil, nil); err != nil {
				return err
			}
		}

		if err := s.slotRepo.SetOccupant(ctx, exec, to.ID, &movedReg, &actor.UserID, &assignedAt); err != nil {
			return err
		}
		if err := s.regRepo.UpdateStatusAndGroup(ctx, exec, movedReg, models.RegistrationAssignedSlot, &to.GroupID); err != nil {
			return err
		}
		if displacedReg != nil {
			if err := s.slotRepo.SetOccupant(ctx, exec, from.ID, displacedReg, &actor.UserID, &assignedAt); err != nil {
				return err
			}
			if err := s.regRepo.UpdateStatusAndGroup(ctx, exec, *displacedReg, models.RegistrationAssignedSlot, &from.GroupID); err != nil {
				return err
			}
		}

		details := map[string]interface{}{
			"tournament_id":   tournamentID,
			"from_slot_id":    from.ID,
			"to_slot_id":      to.ID,
			"registration_id": movedReg,
		}
		if displacedReg != nil {
			details["swapped_with"] = *displacedReg
		}
		return s.recordAudit(ctx, exec, actor, models.AuditActionMoveSlot, "slot", &fromSlotID, details)
	})
	if err != nil {
		return err
	}

	s.notifySlotsUpdated(tournamentID)
	return nil
}

// GetBoard собирает доску слотов. Три независимых выборки выполняются
// параллельно, как и исходные запросы админской страницы.
func (s *slotService) GetBoard(ctx context.Context, tournamentID int) (*SlotBoard, error) {
	board := &SlotBoard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		groups, err := s.groupRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load groups: %w", err)
		}
		board.Groups = groups
		return nil
	})
	g.Go(func() error {
		slots, err := s.slotRepo.ListByTournament(gctx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load slots: %w", err)
		}
		board.Slots = slots
		return nil
	})
	g.Go(func() error {
		pending, err := s.regRepo.ListApprovedUnassigned(gctx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load pending registrations: %w", err)
		}
		board.PendingAssignment = pending
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	populateSlotOccupantURLs(board.Slots, s.uploader)
	for _, reg := range board.PendingAssignment {
		populateRegistrationLogoURL(reg, s.uploader)
	}

	board.TotalSlots = len(board.Slots)
	for _, slot := range board.Slots {
		if slot.Occupied() {
			board.AssignedCount++
		}
	}
	return board, nil
}

func (s *slotService) recordAudit(ctx context.Context, exec repositories.SQLExecutor, actor Actor, action, entityType string, entityID *int, details map[string]interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    payload,
	}
	return s.auditRepo.Record(ctx, exec, entry)
}

func (s *slotService) mapSlotLookupError(err error) error {
	if errors.Is(err, repositories.ErrSlotNotFound) {
		return ErrInvalidSlotReference
	}
	return err
}

func (s *slotService) notifySlotsUpdated(tournamentID int) {
	if s.notifier != nil {
		s.notifier.NotifySlotsUpdated(tournamentID)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
	"github.com/arenalink/tournament-platform/storage"
)

type PlayerInput struct {
	IGN         string  `json:"ign"`
	CharacterID string  `json:"character_id"`
	Discord     *string `json:"discord,omitempty"`
	IsCaptain   bool    `json:"is_captain"`
}

type SubmitRegistrationInput struct {
	TournamentID int           `json:"tournament_id"`
	TeamName     string        `json:"team_name"`
	Whatsapp     string        `json:"whatsapp"`
	Discord      *string       `json:"discord,omitempty"`
	Players      []PlayerInput `json:"players"`
}

type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

type RegistrationService interface {
	Submit(ctx context.Context, actor Actor, input SubmitRegistrationInput) (*models.Registration, error)
	GetOwn(ctx context.Context, actor Actor, tournamentID int) (*models.Registration, error)
	GetByID(ctx context.Context, actor Actor, registrationID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, actor Actor, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	Review(ctx context.Context, actor Actor, registrationID int, decision ReviewDecision) (*models.Registration, error)
	UploadTeamLogo(ctx context.Context, actor Actor, registrationID int, file io.Reader, contentType string) (*models.Registration, error)
}

// slotReleaser — отклонение заявки с атомарным освобождением слота.
// Реализуется движком рассадки.
type slotReleaser interface {
	ReleaseSlot(ctx context.Context, registrationID int, actor Actor) error
}

type registrationService struct {
	txRunner       repositories.TxRunner
	regRepo        repositories.RegistrationRepository
	playerRepo     repositories.PlayerRepository
	tournamentRepo repositories.TournamentRepository
	userRepo       repositories.UserRepository
	auditRepo      repositories.AuditRepository
	slots          slotReleaser
	uploader       storage.FileUploader
	logger         *slog.Logger
	now            func() time.Time
}

func NewRegistrationService(
	txRunner repositories.TxRunner,
	regRepo repositories.RegistrationRepository,
	playerRepo repositories.PlayerRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	auditRepo repositories.AuditRepository,
	slots SlotService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		txRunner:       txRunner,
		regRepo:        regRepo,
		playerRepo:     playerRepo,
		tournamentRepo: tournamentRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		slots:          slots,
		uploader:       uploader,
		logger:         logger,
		now:            time.Now,
	}
}

// Submit принимает заявку команды. Заявка и состав пишутся одной
// транзакцией; повторная активная заявка на тот же турнир отклоняется
// частичным уникальным индексом.
func (s *registrationService) Submit(ctx context.Context, actor Actor, input SubmitRegistrationInput) (*models.Registration, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", input.TournamentID, err)
	}
	if !tournament.IsPublished {
		return nil, ErrTournamentUnpublished
	}
	if !s.registrationOpen(tournament) {
		return nil, ErrRegistrationNotOpen
	}

	teamName := strings.TrimSpace(input.TeamName)
	if teamName == "" {
		return nil, ErrTeamNameRequired
	}
	if len(input.Players) == 0 {
		return nil, ErrRosterEmpty
	}
	if len(input.Players) > tournament.MaxPlayersPerTeam {
		return nil, ErrRosterTooLarge
	}

	whatsappRaw := strings.TrimSpace(input.Whatsapp)
	reg := &models.Registration{
		TournamentID:       tournament.ID,
		UserID:             actor.UserID,
		TeamName:           teamName,
		WhatsappRaw:        whatsappRaw,
		WhatsappNormalized: normalizeWhatsapp(whatsappRaw),
		Discord:            input.Discord,
		Status:             models.RegistrationPending,
	}

	players := make([]*models.Player, 0, len(input.Players))
	for i, p := range input.Players {
		ign := strings.TrimSpace(p.IGN)
		if ign == "" {
			return nil, ErrValidationFailed
		}
		players = append(players, &models.Player{
			IGN:         ign,
			CharacterID: strings.TrimSpace(p.CharacterID),
			Discord:     p.Discord,
			IsCaptain:   p.IsCaptain || i == 0,
			SortOrder:   i,
		})
	}

	err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.regRepo.Create(ctx, exec, reg); err != nil {
			return err
		}
		for _, p := range players {
			p.RegistrationID = reg.ID
		}
		return s.playerRepo.CreateBatch(ctx, exec, players)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrRegistrationUserInvalid):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to submit registration: %w", err)
	}
	reg.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		reg.Players = append(reg.Players, *p)
	}

	s.logger.InfoContext(ctx, "registration submitted",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("registration_id", reg.ID),
		slog.String("team_name", reg.TeamName))
	return reg, nil
}

func (s *registrationService) registrationOpen(t *models.Tournament) bool {
	if t.Status == models.StatusRegistrationOpen {
		return true
	}
	// Окно может открыться раньше, чем планировщик продвинет статус.
	now := s.now()
	if t.Status != models.StatusUpcoming {
		return false
	}
	if t.RegistrationStart == nil || t.RegistrationStart.After(now) {
		return false
	}
	return t.RegistrationEnd == nil || t.RegistrationEnd.After(now)
}

func (s *registrationService) GetOwn(ctx context.Context, actor Actor, tournamentID int) (*models.Registration, error) {
	reg, err := s.regRepo.FindActiveByUserAndTournament(ctx, actor.UserID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	if err := s.attachPlayers(ctx, reg); err != nil {
		return nil, err
	}
	populateRegistrationLogoURL(reg, s.uploader)
	return reg, nil
}

func (s *registrationService) GetByID(ctx context.Context, actor Actor, registrationID int) (*models.Registration, error) {
	reg, err := s.regRepo.FindByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration %d: %w", registrationID, err)
	}
	if reg.UserID != actor.UserID && !CanReviewRegistrations(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	if err := s.attachPlayers(ctx, reg); err != nil {
		return nil, err
	}
	populateRegistrationLogoURL(reg, s.uploader)
	return reg, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, actor Actor, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	if !CanReviewRegistrations(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	if statusFilter != nil && !statusFilter.Valid() {
		return nil, ErrValidationFailed
	}

	regs, err := s.regRepo.ListByTournament(ctx, tournamentID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	for _, reg := range regs {
		if err := s.attachPlayers(ctx, reg); err != nil {
			return nil, err
		}
		populateRegistrationLogoURL(reg, s.uploader)
	}
	return regs, nil
}

// Review одобряет или отклоняет заявку. Отклонение делегируется движку
// рассадки: слот и статус меняются одной транзакцией.
func (s *registrationService) Review(ctx context.Context, actor Actor, registrationID int, decision ReviewDecision) (*models.Registration, error) {
	if !CanReviewRegistrations(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	reg, err := s.regRepo.FindByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration %d: %w", registrationID, err)
	}

	switch decision {
	case ReviewApprove:
		if !registrationTransitionAllowed(reg.Status, models.RegistrationApproved) {
			return nil, ErrInvalidStatusTransition
		}
		err = s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
			if err := s.regRepo.UpdateStatusAndGroup(ctx, exec, registrationID, models.RegistrationApproved, nil); err != nil {
				return err
			}
			return s.recordReviewAudit(ctx, exec, actor, reg, models.RegistrationApproved)
		})
		if err != nil {
			return nil, err
		}
		reg.Status = models.RegistrationApproved
		reg.GroupID = nil
	case ReviewReject:
		if err := s.slots.ReleaseSlot(ctx, registrationID, actor); err != nil {
			return nil, err
		}
		reg.Status = models.RegistrationRejected
		reg.GroupID = nil
	default:
		return nil, ErrValidationFailed
	}

	s.logger.InfoContext(ctx, "registration reviewed",
		slog.Int("registration_id", registrationID),
		slog.String("decision", string(decision)))
	return reg, nil
}

func (s *registrationService) UploadTeamLogo(ctx context.Context, actor Actor, registrationID int, file io.Reader, contentType string) (*models.Registration, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	reg, err := s.regRepo.FindByID(ctx, nil, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration %d: %w", registrationID, err)
	}
	if reg.UserID != actor.UserID && !CanReviewRegistrations(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	key := storage.ObjectKey(fmt.Sprintf("teams/%d", registrationID), contentType)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	oldKey := reg.TeamLogoKey
	if err := s.regRepo.UpdateTeamLogoKey(ctx, registrationID, &key); err != nil {
		return nil, fmt.Errorf("failed to save team logo key: %w", err)
	}
	reg.TeamLogoKey = &key

	if oldKey != nil && *oldKey != "" && *oldKey != key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous team logo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	populateRegistrationLogoURL(reg, s.uploader)
	return reg, nil
}

func (s *registrationService) attachPlayers(ctx context.Context, reg *models.Registration) error {
	players, err := s.playerRepo.ListByRegistration(ctx, reg.ID)
	if err != nil {
		return fmt.Errorf("failed to list players for registration %d: %w", reg.ID, err)
	}
	reg.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		reg.Players = append(reg.Players, *p)
	}
	return nil
}

func (s *registrationService) recordReviewAudit(ctx context.Context, exec repositories.SQLExecutor, actor Actor, reg *models.Registration, status models.RegistrationStatus) error {
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionReviewRegistration,
		EntityType: "registration",
		EntityID:   &reg.ID,
		Details:    []byte(fmt.Sprintf(`{"tournament_id":%d,"status":%q}`, reg.TournamentID, status)),
	}
	return s.auditRepo.Record(ctx, exec, entry)
}

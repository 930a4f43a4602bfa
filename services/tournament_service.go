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

type CreateTournamentInput struct {
	Name              string     `json:"name"`
	Game              string     `json:"game"`
	Description       *string    `json:"description,omitempty"`
	PrizePool         *string    `json:"prize_pool,omitempty"`
	ServerRegion      string     `json:"server_region"`
	RegistrationStart *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `json:"registration_end,omitempty"`
	MatchStart        *time.Time `json:"match_start,omitempty"`
	MatchEnd          *time.Time `json:"match_end,omitempty"`
	TotalTeamCapacity int        `json:"total_team_capacity"`
	TeamsPerGroup     int        `json:"teams_per_group"`
	MaxPlayersPerTeam int        `json:"max_players_per_team"`
	IsPaid            bool       `json:"is_paid"`
	IsPublished       bool       `json:"is_published"`
	GroupNames        []string   `json:"group_names,omitempty"`
}

type UpdateTournamentInput struct {
	Name              *string    `json:"name,omitempty"`
	Game              *string    `json:"game,omitempty"`
	Description       *string    `json:"description,omitempty"`
	PrizePool         *string    `json:"prize_pool,omitempty"`
	ServerRegion      *string    `json:"server_region,omitempty"`
	RegistrationStart *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `json:"registration_end,omitempty"`
	MatchStart        *time.Time `json:"match_start,omitempty"`
	MatchEnd          *time.Time `json:"match_end,omitempty"`
	IsPaid            *bool      `json:"is_paid,omitempty"`
	IsPublished       *bool      `json:"is_published,omitempty"`
}

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int, includeUnpublished bool) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, actor Actor, id int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, actor Actor, id int) error
	CreateGroup(ctx context.Context, actor Actor, tournamentID int, name string, sortOrder int) (*models.TournamentGroup, error)
	DeleteGroup(ctx context.Context, actor Actor, groupID int) error
	UploadMedia(ctx context.Context, actor Actor, tournamentID int, kind string, file io.Reader, contentType string) (*models.Tournament, error)
	SyncStatusesByWindows(ctx context.Context) (int, error)
}

type tournamentService struct {
	txRunner       repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	groupRepo      repositories.GroupRepository
	slotRepo       repositories.SlotRepository
	auditRepo      repositories.AuditRepository
	uploader       storage.FileUploader
	logger         *slog.Logger
	now            func() time.Time
}

func NewTournamentService(
	txRunner repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	groupRepo repositories.GroupRepository,
	slotRepo repositories.SlotRepository,
	auditRepo repositories.AuditRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		txRunner:       txRunner,
		tournamentRepo: tournamentRepo,
		groupRepo:      groupRepo,
		slotRepo:       slotRepo,
		auditRepo:      auditRepo,
		uploader:       uploader,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !CanManageTournaments(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || strings.TrimSpace(input.Game) == "" {
		return nil, ErrValidationFailed
	}
	if input.TotalTeamCapacity < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.TeamsPerGroup < 0 || input.MaxPlayersPerTeam < 1 {
		return nil, ErrValidationFailed
	}

	t := &models.Tournament{
		Name:              name,
		Game:              strings.TrimSpace(input.Game),
		Description:       input.Description,
		PrizePool:         input.PrizePool,
		ServerRegion:      strings.TrimSpace(input.ServerRegion),
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		MatchStart:        input.MatchStart,
		MatchEnd:          input.MatchEnd,
		TotalTeamCapacity: input.TotalTeamCapacity,
		TeamsPerGroup:     input.TeamsPerGroup,
		MaxPlayersPerTeam: input.MaxPlayersPerTeam,
		IsPaid:            input.IsPaid,
		IsPublished:       input.IsPublished,
		Status:            models.StatusUpcoming,
		CreatedBy:         &actor.UserID,
	}
	if err := validateTournamentWindows(t); err != nil {
		return nil, err
	}
	t.Status = nextStatusByWindows(t, s.now())

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentInvalidOwner):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	for i, groupName := range input.GroupNames {
		g := &models.TournamentGroup{
			TournamentID: t.ID,
			Name:         strings.TrimSpace(groupName),
			SortOrder:    i,
		}
		if g.Name == "" {
			continue
		}
		if err := s.groupRepo.Create(ctx, g); err != nil {
			if errors.Is(err, repositories.ErrGroupNameConflict) {
				return nil, ErrGroupNameConflict
			}
			return nil, fmt.Errorf("failed to create group %q: %w", g.Name, err)
		}
		t.Groups = append(t.Groups, *g)
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", t.ID),
		slog.String("name", t.Name),
		slog.Int("groups", len(t.Groups)))
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int, includeUnpublished bool) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if !t.IsPublished && !includeUnpublished {
		return nil, ErrTournamentNotFound
	}

	groups, err := s.groupRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for tournament %d: %w", id, err)
	}
	for _, g := range groups {
		t.Groups = append(t.Groups, *g)
	}

	populateTournamentMediaURLs(t, s.uploader)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentMediaURLs(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, actor Actor, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	if !CanManageTournaments(actor.Role) {
		return nil, ErrForbiddenOperation
	}

	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrValidationFailed
		}
		t.Name = name
	}
	if input.Game != nil {
		t.Game = strings.TrimSpace(*input.Game)
	}
	if input.Description != nil {
		t.Description = input.Description
	}
	if input.PrizePool != nil {
		t.PrizePool = input.PrizePool
	}
	if input.ServerRegion != nil {
		t.ServerRegion = strings.TrimSpace(*input.ServerRegion)
	}
	if input.RegistrationStart != nil {
		t.RegistrationStart = input.RegistrationStart
	}
	if input.RegistrationEnd != nil {
		t.RegistrationEnd = input.RegistrationEnd
	}
	if input.MatchStart != nil {
		t.MatchStart = input.MatchStart
	}
	if input.MatchEnd != nil {
		t.MatchEnd = input.MatchEnd
	}
	if input.IsPaid != nil {
		t.IsPaid = *input.IsPaid
	}
	if input.IsPublished != nil {
		t.IsPublished = *input.IsPublished
	}
	if err := validateTournamentWindows(t); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", id, err)
	}

	populateTournamentMediaURLs(t, s.uploader)
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, actor Actor, id int) error {
	if !CanAdministrate(actor.Role) {
		return ErrForbiddenOperation
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", id))
	return nil
}

// CreateGroup добавляет группу. После инициализации пула слотов состав
// групп заморожен, иначе диапазоны номеров разъедутся.
func (s *tournamentService) CreateGroup(ctx context.Context, actor Actor, tournamentID int, name string, sortOrder int) (*models.TournamentGroup, error) {
	if !CanManageTournaments(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrValidationFailed
	}

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	slotCount, err := s.slotRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count slots for tournament %d: %w", tournamentID, err)
	}
	if slotCount > 0 {
		return nil, ErrSlotsAlreadyInitialized
	}

	g := &models.TournamentGroup{
		TournamentID: tournamentID,
		Name:         name,
		SortOrder:    sortOrder,
	}
	if err := s.groupRepo.Create(ctx, g); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGroupNameConflict):
			return nil, ErrGroupNameConflict
		case errors.Is(err, repositories.ErrGroupTournamentInvalid):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return g, nil
}

func (s *tournamentService) DeleteGroup(ctx context.Context, actor Actor, groupID int) error {
	if !CanManageTournaments(actor.Role) {
		return ErrForbiddenOperation
	}

	g, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to get group %d: %w", groupID, err)
	}

	slotCount, err := s.slotRepo.CountByTournament(ctx, g.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to count slots for tournament %d: %w", g.TournamentID, err)
	}
	if slotCount > 0 {
		return ErrSlotsAlreadyInitialized
	}

	if err := s.groupRepo.Delete(ctx, groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to delete group %d: %w", groupID, err)
	}
	return nil
}

// UploadMedia загружает постер или логотип турнира (kind: "poster" | "logo").
func (s *tournamentService) UploadMedia(ctx context.Context, actor Actor, tournamentID int, kind string, file io.Reader, contentType string) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrStorageUnavailable
	}
	if !CanManageTournaments(actor.Role) {
		return nil, ErrForbiddenOperation
	}
	if kind != "poster" && kind != "logo" {
		return nil, ErrValidationFailed
	}

	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	key := storage.ObjectKey(fmt.Sprintf("tournaments/%d/%s", tournamentID, kind), contentType)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload tournament %s: %w", kind, err)
	}

	var oldKey *string
	if kind == "poster" {
		oldKey = t.PosterKey
		t.PosterKey = &key
	} else {
		oldKey = t.LogoKey
		t.LogoKey = &key
	}
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save tournament %s key: %w", kind, err)
	}

	if oldKey != nil && *oldKey != "" && *oldKey != key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete previous tournament media",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	populateTournamentMediaURLs(t, s.uploader)
	return t, nil
}

// SyncStatusesByWindows продвигает статусы турниров по их временным
// окнам. Вызывается планировщиком; возвращает число обновлённых турниров.
func (s *tournamentService) SyncStatusesByWindows(ctx context.Context) (int, error) {
	updated := 0
	err := s.txRunner.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		now := s.now()
		tournaments, err := s.tournamentRepo.GetTournamentsForStatusSync(ctx, exec, now)
		if err != nil {
			return fmt.Errorf("failed to load tournaments for status sync: %w", err)
		}
		for _, t := range tournaments {
			// Догоняем по цепочке: турнир мог пропустить несколько
			// переходов, пока планировщик не работал.
			original := t.Status
			for next := nextStatusByWindows(t, now); next != t.Status; next = nextStatusByWindows(t, now) {
				t.Status = next
			}
			if t.Status == original {
				continue
			}
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, t.Status); err != nil {
				return fmt.Errorf("failed to update status of tournament %d: %w", t.ID, err)
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.logger.InfoContext(ctx, "tournament statuses synced", slog.Int("updated", updated))
	}
	return updated, nil
}

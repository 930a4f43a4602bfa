package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
)

// memStore — общее in-memory состояние для фейковых репозиториев.
// Мьютекс делает условный захват слота атомарным, как условный апдейт
// в Postgres, что позволяет проверять гонки за слот.
type memStore struct {
	mu sync.Mutex

	tournaments   map[int]*models.Tournament
	groups        map[int]*models.TournamentGroup
	registrations map[int]*models.Registration
	slots         map[int]*models.Slot
	players       map[int][]*models.Player
	audits        []*models.AuditLog

	nextSlotID  int
	nextRegID   int
	nextAuditID int
}

func newMemStore() *memStore {
	return &memStore{
		tournaments:   make(map[int]*models.Tournament),
		groups:        make(map[int]*models.TournamentGroup),
		registrations: make(map[int]*models.Registration),
		slots:         make(map[int]*models.Slot),
		players:       make(map[int][]*models.Player),
		nextSlotID:    1,
		nextRegID:     1,
		nextAuditID:   1,
	}
}

func (s *memStore) addTournament(t *models.Tournament) *models.Tournament {
	s.tournaments[t.ID] = t
	return t
}

func (s *memStore) addGroup(g *models.TournamentGroup) *models.TournamentGroup {
	s.groups[g.ID] = g
	return g
}

func (s *memStore) addRegistration(reg *models.Registration) *models.Registration {
	if reg.ID == 0 {
		reg.ID = s.nextRegID
	}
	if reg.ID >= s.nextRegID {
		s.nextRegID = reg.ID + 1
	}
	reg.CreatedAt = time.Now().Add(time.Duration(reg.ID) * time.Millisecond)
	s.registrations[reg.ID] = reg
	return reg
}

func (s *memStore) sortedSlots(tournamentID int, onlyVacant bool) []*models.Slot {
	slots := make([]*models.Slot, 0)
	for _, slot := range s.slots {
		if slot.TournamentID != tournamentID {
			continue
		}
		if onlyVacant && slot.RegistrationID != nil {
			continue
		}
		copied := *slot
		slots = append(slots, &copied)
	}
	sort.Slice(slots, func(i, j int) bool {
		gi, gj := s.groups[slots[i].GroupID], s.groups[slots[j].GroupID]
		if gi.SortOrder != gj.SortOrder {
			return gi.SortOrder < gj.SortOrder
		}
		if gi.ID != gj.ID {
			return gi.ID < gj.ID
		}
		return slots[i].SlotNumber < slots[j].SlotNumber
	})
	return slots
}

// --- TxRunner ---

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// --- SlotRepository ---

type fakeSlotRepo struct{ store *memStore }

func (r *fakeSlotRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, slots []*models.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, slot := range slots {
		for _, existing := range r.store.slots {
			if existing.GroupID == slot.GroupID && existing.SlotNumber == slot.SlotNumber {
				return repositories.ErrSlotNumberConflict
			}
		}
		slot.ID = r.store.nextSlotID
		r.store.nextSlotID++
		copied := *slot
		r.store.slots[slot.ID] = &copied
	}
	return nil
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[id]
	if !ok {
		return nil, repositories.ErrSlotNotFound
	}
	copied := *slot
	return &copied, nil
}

func (r *fakeSlotRepo) LockByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Slot, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeSlotRepo) FindByRegistration(ctx context.Context, exec repositories.SQLExecutor, registrationID int) (*models.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, slot := range r.store.slots {
		if slot.RegistrationID != nil && *slot.RegistrationID == registrationID {
			copied := *slot
			return &copied, nil
		}
	}
	return nil, repositories.ErrSlotNotFound
}

func (r *fakeSlotRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slots := r.store.sortedSlots(tournamentID, false)
	for _, slot := range slots {
		if slot.RegistrationID != nil {
			if reg, ok := r.store.registrations[*slot.RegistrationID]; ok {
				slot.Occupant = &models.SlotOccupant{
					RegistrationID: reg.ID,
					TeamName:       reg.TeamName,
					TeamLogoKey:    reg.TeamLogoKey,
				}
			}
		}
	}
	return slots, nil
}

func (r *fakeSlotRepo) ListVacantByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Slot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.sortedSlots(tournamentID, true), nil
}

func (r *fakeSlotRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, slot := range r.store.slots {
		if slot.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSlotRepo) Assign(ctx context.Context, exec repositories.SQLExecutor, slotID, registrationID, assignedBy int, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[slotID]
	if !ok || slot.RegistrationID != nil {
		return repositories.ErrSlotTaken
	}
	for _, other := range r.store.slots {
		if other.RegistrationID != nil && *other.RegistrationID == registrationID {
			return repositories.ErrSlotRegistrationConflict
		}
	}
	slot.RegistrationID = &registrationID
	slot.AssignedBy = &assignedBy
	slot.AssignedAt = &at
	return nil
}

func (r *fakeSlotRepo) SetOccupant(ctx context.Context, exec repositories.SQLExecutor, slotID int, registrationID *int, assignedBy *int, at *time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	slot, ok := r.store.slots[slotID]
	if !ok {
		return repositories.ErrSlotNotFound
	}
	if registrationID != nil {
		for _, other := range r.store.slots {
			if other.ID != slotID && other.RegistrationID != nil && *other.RegistrationID == *registrationID {
				return repositories.ErrSlotRegistrationConflict
			}
		}
	}
	slot.RegistrationID = registrationID
	slot.AssignedBy = assignedBy
	slot.AssignedAt = at
	return nil
}

func (r *fakeSlotRepo) ClearByRegistration(ctx context.Context, exec repositories.SQLExecutor, registrationID int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cleared := 0
	for _, slot := range r.store.slots {
		if slot.RegistrationID != nil && *slot.RegistrationID == registrationID {
			slot.RegistrationID = nil
			slot.AssignedBy = nil
			slot.AssignedAt = nil
			cleared++
		}
	}
	return cleared, nil
}

// --- GroupRepository ---

type fakeGroupRepo struct{ store *memStore }

func (r *fakeGroupRepo) Create(ctx context.Context, g *models.TournamentGroup) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.groups {
		if existing.TournamentID == g.TournamentID && existing.Name == g.Name {
			return repositories.ErrGroupNameConflict
		}
	}
	if g.ID == 0 {
		g.ID = len(r.store.groups) + 1
	}
	r.store.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id int) (*models.TournamentGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	g, ok := r.store.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	return g, nil
}

func (r *fakeGroupRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	groups := make([]*models.TournamentGroup, 0)
	for _, g := range r.store.groups {
		if g.TournamentID == tournamentID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SortOrder != groups[j].SortOrder {
			return groups[i].SortOrder < groups[j].SortOrder
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (r *fakeGroupRepo) Delete(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.groups[id]; !ok {
		return repositories.ErrGroupNotFound
	}
	delete(r.store.groups, id)
	return nil
}

// --- RegistrationRepository ---

type fakeRegistrationRepo struct{ store *memStore }

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.registrations {
		if existing.TournamentID == reg.TournamentID && existing.UserID == reg.UserID &&
			existing.Status != models.RegistrationRejected {
			return repositories.ErrRegistrationConflict
		}
	}
	r.store.addRegistration(reg)
	return nil
}

func (r *fakeRegistrationRepo) FindByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeRegistrationRepo) FindActiveByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, reg := range r.store.registrations {
		if reg.UserID == userID && reg.TournamentID == tournamentID && reg.Status != models.RegistrationRejected {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	regs := make([]*models.Registration, 0)
	for _, reg := range r.store.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if statusFilter != nil && reg.Status != *statusFilter {
			continue
		}
		copied := *reg
		regs = append(regs, &copied)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
	return regs, nil
}

func (r *fakeRegistrationRepo) ListApprovedUnassigned(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Registration, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	regs := make([]*models.Registration, 0)
	for _, reg := range r.store.registrations {
		if reg.TournamentID != tournamentID || reg.Status != models.RegistrationApproved {
			continue
		}
		seated := false
		for _, slot := range r.store.slots {
			if slot.RegistrationID != nil && *slot.RegistrationID == reg.ID {
				seated = true
				break
			}
		}
		if seated {
			continue
		}
		copied := *reg
		regs = append(regs, &copied)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
	return regs, nil
}

func (r *fakeRegistrationRepo) UpdateStatusAndGroup(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus, groupID *int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = status
	reg.GroupID = groupID
	return nil
}

func (r *fakeRegistrationRepo) UpdateTeamLogoKey(ctx context.Context, id int, teamLogoKey *string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	reg, ok := r.store.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.TeamLogoKey = teamLogoKey
	return nil
}

// --- PlayerRepository ---

type fakePlayerRepo struct{ store *memStore }

func (r *fakePlayerRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, players []*models.Player) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, p := range players {
		p.ID = len(r.store.players[p.RegistrationID]) + i + 1
		r.store.players[p.RegistrationID] = append(r.store.players[p.RegistrationID], p)
	}
	return nil
}

func (r *fakePlayerRepo) ListByRegistration(ctx context.Context, registrationID int) ([]*models.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.players[registrationID], nil
}

func (r *fakePlayerRepo) DeleteByRegistration(ctx context.Context, exec repositories.SQLExecutor, registrationID int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.players, registrationID)
	return nil
}

// --- TournamentRepository ---

type fakeTournamentRepo struct{ store *memStore }

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if t.ID == 0 {
		t.ID = len(r.store.tournaments) + 1
	}
	r.store.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tournaments := make([]models.Tournament, 0)
	for _, t := range r.store.tournaments {
		if filter.IsPublished != nil && t.IsPublished != *filter.IsPublished {
			continue
		}
		tournaments = append(tournaments, *t)
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })
	return tournaments, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	copied := *t
	r.store.tournaments[t.ID] = &copied
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.store.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) GetTournamentsForStatusSync(ctx context.Context, exec repositories.SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tournaments := make([]*models.Tournament, 0)
	for _, t := range r.store.tournaments {
		if t.Status == models.StatusCompleted {
			continue
		}
		copied := *t
		tournaments = append(tournaments, &copied)
	}
	sort.Slice(tournaments, func(i, j int) bool { return tournaments[i].ID < tournaments[j].ID })
	return tournaments, nil
}

// --- AuditRepository ---

type fakeAuditRepo struct{ store *memStore }

func (r *fakeAuditRepo) Record(ctx context.Context, exec repositories.SQLExecutor, entry *models.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	entry.ID = r.store.nextAuditID
	r.store.nextAuditID++
	entry.CreatedAt = time.Now()
	r.store.audits = append(r.store.audits, entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, filter repositories.ListAuditLogsFilter) ([]*models.AuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]*models.AuditLog(nil), r.store.audits...), nil
}

// --- BoardNotifier ---

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []int
}

func (n *fakeNotifier) NotifySlotsUpdated(tournamentID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, tournamentID)
}

// --- UserRepository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = len(r.users) + 1
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		copied := *u
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id int, role models.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *fakeUserRepo) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.AvatarKey = avatarKey
	return nil
}

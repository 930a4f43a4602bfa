package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminActor = Actor{UserID: 1, Role: models.RoleAdmin}
	userActor  = Actor{UserID: 42, Role: models.RoleUser}
)

type slotFixture struct {
	store    *memStore
	service  SlotService
	notifier *fakeNotifier
	regRepo  *fakeRegistrationRepo
	slotRepo *fakeSlotRepo
}

func newSlotFixture(t *testing.T) *slotFixture {
	t.Helper()
	store := newMemStore()
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	slotRepo := &fakeSlotRepo{store: store}
	regRepo := &fakeRegistrationRepo{store: store}
	service := NewSlotService(
		fakeTxRunner{},
		slotRepo,
		&fakeGroupRepo{store: store},
		regRepo,
		&fakeTournamentRepo{store: store},
		&fakeAuditRepo{store: store},
		nil,
		notifier,
		logger,
	)
	return &slotFixture{
		store:    store,
		service:  service,
		notifier: notifier,
		regRepo:  regRepo,
		slotRepo: slotRepo,
	}
}

// seedTournament создаёт турнир с двумя группами по 5 мест.
func (f *slotFixture) seedTournament() *models.Tournament {
	t := f.store.addTournament(&models.Tournament{
		ID:                1,
		Name:              "Arena Cup",
		TotalTeamCapacity: 10,
		TeamsPerGroup:     5,
		MaxPlayersPerTeam: 5,
		IsPublished:       true,
		Status:            models.StatusRegistrationClosed,
	})
	f.store.addGroup(&models.TournamentGroup{ID: 1, TournamentID: 1, Name: "Group A", SortOrder: 0})
	f.store.addGroup(&models.TournamentGroup{ID: 2, TournamentID: 1, Name: "Group B", SortOrder: 1})
	return t
}

func (f *slotFixture) seedApprovedRegistrations(n int) []*models.Registration {
	regs := make([]*models.Registration, 0, n)
	for i := 1; i <= n; i++ {
		regs = append(regs, f.store.addRegistration(&models.Registration{
			TournamentID: 1,
			UserID:       100 + i,
			TeamName:     fmt.Sprintf("Team %02d", i),
			Status:       models.RegistrationApproved,
		}))
	}
	return regs
}

func TestInitializeSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("creates numbered slots per group", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()

		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))

		slots := f.store.sortedSlots(1, false)
		require.Len(t, slots, 10)
		// Первая группа: номера 6..10, затем вторая группа 6..10.
		for i := 0; i < 5; i++ {
			assert.Equal(t, 1, slots[i].GroupID)
			assert.Equal(t, 6+i, slots[i].SlotNumber)
		}
		for i := 0; i < 5; i++ {
			assert.Equal(t, 2, slots[5+i].GroupID)
			assert.Equal(t, 6+i, slots[5+i].SlotNumber)
		}
		assert.Equal(t, []int{1}, f.notifier.notifications)
	})

	t.Run("rejects repeated initialization", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()

		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		err := f.service.InitializeSlots(ctx, 1, adminActor)
		assert.ErrorIs(t, err, ErrSlotsAlreadyInitialized)
	})

	t.Run("requires groups", func(t *testing.T) {
		f := newSlotFixture(t)
		f.store.addTournament(&models.Tournament{ID: 1, TotalTeamCapacity: 10, TeamsPerGroup: 5})

		err := f.service.InitializeSlots(ctx, 1, adminActor)
		assert.ErrorIs(t, err, ErrNoGroupsDefined)
	})

	t.Run("single pool when teams_per_group is zero", func(t *testing.T) {
		f := newSlotFixture(t)
		f.store.addTournament(&models.Tournament{ID: 1, TotalTeamCapacity: 4, TeamsPerGroup: 0})
		f.store.addGroup(&models.TournamentGroup{ID: 1, TournamentID: 1, Name: "Main", SortOrder: 0})

		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))

		slots := f.store.sortedSlots(1, false)
		require.Len(t, slots, 4)
		assert.Equal(t, 6, slots[0].SlotNumber)
		assert.Equal(t, 9, slots[3].SlotNumber)
	})

	t.Run("forbidden for regular user", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()

		err := f.service.InitializeSlots(ctx, 1, userActor)
		assert.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		f := newSlotFixture(t)
		err := f.service.InitializeSlots(ctx, 99, adminActor)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})
}

func TestAutoAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("takes first vacant slot in group order", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(2)

		first, err := f.service.AutoAssign(ctx, 1, regs[0].ID, adminActor)
		require.NoError(t, err)
		assert.Equal(t, 1, first.GroupID)
		assert.Equal(t, 6, first.SlotNumber)

		second, err := f.service.AutoAssign(ctx, 1, regs[1].ID, adminActor)
		require.NoError(t, err)
		assert.Equal(t, 1, second.GroupID)
		assert.Equal(t, 7, second.SlotNumber)

		// Заявка переведена в assigned_slot с зеркальной группой.
		reg, err := f.regRepo.FindByID(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.RegistrationAssignedSlot, reg.Status)
		require.NotNil(t, reg.GroupID)
		assert.Equal(t, 1, *reg.GroupID)
	})

	t.Run("already assigned is rejected", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(1)

		_, err := f.service.AutoAssign(ctx, 1, regs[0].ID, adminActor)
		require.NoError(t, err)

		_, err = f.service.AutoAssign(ctx, 1, regs[0].ID, adminActor)
		assert.ErrorIs(t, err, ErrAlreadyAssigned)

		// Занятым остался ровно один слот.
		occupied := 0
		for _, slot := range f.store.sortedSlots(1, false) {
			if slot.Occupied() {
				occupied++
			}
		}
		assert.Equal(t, 1, occupied)
	})

	t.Run("pending registration is not seatable", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		reg := f.store.addRegistration(&models.Registration{
			TournamentID: 1, UserID: 200, TeamName: "Pending", Status: models.RegistrationPending,
		})

		_, err := f.service.AutoAssign(ctx, 1, reg.ID, adminActor)
		assert.ErrorIs(t, err, ErrRegistrationNotApproved)
	})

	t.Run("capacity exhausted", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(11)

		for _, reg := range regs[:10] {
			_, err := f.service.AutoAssign(ctx, 1, reg.ID, adminActor)
			require.NoError(t, err)
		}

		_, err := f.service.AutoAssign(ctx, 1, regs[10].ID, adminActor)
		assert.ErrorIs(t, err, ErrCapacityExhausted)
	})

	t.Run("registration from another tournament", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		f.store.addTournament(&models.Tournament{ID: 2, TotalTeamCapacity: 10})
		foreign := f.store.addRegistration(&models.Registration{
			TournamentID: 2, UserID: 300, TeamName: "Foreign", Status: models.RegistrationApproved,
		})

		_, err := f.service.AutoAssign(ctx, 1, foreign.ID, adminActor)
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
	})
}

func TestAutoAssignAll(t *testing.T) {
	ctx := context.Background()

	t.Run("fills groups in submission order", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(12)

		result, err := f.service.AutoAssignAll(ctx, 1, adminActor)
		require.NoError(t, err)
		require.Len(t, result.Succeeded, 10)
		require.Len(t, result.Failed, 2)

		// Первые 5 заявок в группе 1 (номера 6..10), следующие 5 в группе 2.
		for i, assigned := range result.Succeeded {
			assert.Equal(t, regs[i].ID, assigned.RegistrationID)
			if i < 5 {
				assert.Equal(t, 1, assigned.GroupID)
				assert.Equal(t, 6+i, assigned.SlotNumber)
			} else {
				assert.Equal(t, 2, assigned.GroupID)
				assert.Equal(t, 6+i-5, assigned.SlotNumber)
			}
		}

		// Две лишние заявки получили отказ по вместимости.
		for i, failed := range result.Failed {
			assert.Equal(t, regs[10+i].ID, failed.RegistrationID)
			assert.Equal(t, ErrCapacityExhausted.Error(), failed.Reason)
		}
	})

	t.Run("empty candidate list", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))

		result, err := f.service.AutoAssignAll(ctx, 1, adminActor)
		require.NoError(t, err)
		assert.Empty(t, result.Succeeded)
		assert.Empty(t, result.Failed)
	})
}

func TestReleaseSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("clears slot and rejects registration together", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(1)

		_, err := f.service.AutoAssign(ctx, 1, regs[0].ID, adminActor)
		require.NoError(t, err)

		require.NoError(t, f.service.ReleaseSlot(ctx, regs[0].ID, adminActor))

		reg, err := f.regRepo.FindByID(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.RegistrationRejected, reg.Status)
		assert.Nil(t, reg.GroupID)

		_, err = f.slotRepo.FindByRegistration(ctx, nil, regs[0].ID)
		assert.ErrorIs(t, err, repositories.ErrSlotNotFound)
	})

	t.Run("rejects unseated registration too", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		regs := f.seedApprovedRegistrations(1)

		require.NoError(t, f.service.ReleaseSlot(ctx, regs[0].ID, adminActor))

		reg, err := f.regRepo.FindByID(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.RegistrationRejected, reg.Status)
	})

	t.Run("rejected registration cannot be rejected again", func(t *testing.T) {
		f := newSlotFixture(t)
		f.seedTournament()
		regs := f.seedApprovedRegistrations(1)

		require.NoError(t, f.service.ReleaseSlot(ctx, regs[0].ID, adminActor))
		err := f.service.ReleaseSlot(ctx, regs[0].ID, adminActor)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestMoveOrSwap(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, seated int) (*slotFixture, []*models.Registration, []*models.Slot) {
		f := newSlotFixture(t)
		f.seedTournament()
		require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
		regs := f.seedApprovedRegistrations(seated)
		for _, reg := range regs {
			_, err := f.service.AutoAssign(ctx, 1, reg.ID, adminActor)
			require.NoError(t, err)
		}
		return f, regs, f.store.sortedSlots(1, false)
	}

	t.Run("move to vacant slot across groups", func(t *testing.T) {
		f, regs, slots := setup(t, 1)
		from, to := slots[0], slots[7] // группа 1 слот 6 -> группа 2 слот 8

		require.NoError(t, f.service.MoveOrSwap(ctx, from.ID, to.ID, adminActor))

		moved, err := f.slotRepo.FindByRegistration(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, to.ID, moved.ID)

		reg, err := f.regRepo.FindByID(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		require.NotNil(t, reg.GroupID)
		assert.Equal(t, 2, *reg.GroupID)
	})

	t.Run("swap exchanges two occupants", func(t *testing.T) {
		f, regs, slots := setup(t, 2)
		first, second := slots[0], slots[1]

		require.NoError(t, f.service.MoveOrSwap(ctx, first.ID, second.ID, adminActor))

		slotOfFirst, err := f.slotRepo.FindByRegistration(ctx, nil, regs[0].ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, slotOfFirst.ID)

		slotOfSecond, err := f.slotRepo.FindByRegistration(ctx, nil, regs[1].ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, slotOfSecond.ID)
	})

	t.Run("vacant source is rejected", func(t *testing.T) {
		f, _, slots := setup(t, 1)
		err := f.service.MoveOrSwap(ctx, slots[3].ID, slots[4].ID, adminActor)
		assert.ErrorIs(t, err, ErrSlotVacant)
	})

	t.Run("same slot twice is rejected", func(t *testing.T) {
		f, _, slots := setup(t, 1)
		err := f.service.MoveOrSwap(ctx, slots[0].ID, slots[0].ID, adminActor)
		assert.ErrorIs(t, err, ErrInvalidSlotReference)
	})

	t.Run("unknown slot id", func(t *testing.T) {
		f, _, slots := setup(t, 1)
		err := f.service.MoveOrSwap(ctx, slots[0].ID, 9999, adminActor)
		assert.ErrorIs(t, err, ErrInvalidSlotReference)
	})
}

func TestAutoAssignConcurrentLastSlot(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t)
	f.store.addTournament(&models.Tournament{ID: 1, TotalTeamCapacity: 2, TeamsPerGroup: 1})
	f.store.addGroup(&models.TournamentGroup{ID: 1, TournamentID: 1, Name: "Final", SortOrder: 0})
	require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
	regs := f.seedApprovedRegistrations(2)

	// Один свободный слот, две конкурирующие рассадки: ровно одна
	// выигрывает, вторая упирается в исчерпанную вместимость.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.AutoAssign(ctx, 1, regs[i].ID, adminActor)
		}(i)
	}
	wg.Wait()

	var wins, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrCapacityExhausted):
			exhausted++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, exhausted)
}

func TestGetBoard(t *testing.T) {
	ctx := context.Background()
	f := newSlotFixture(t)
	f.seedTournament()
	require.NoError(t, f.service.InitializeSlots(ctx, 1, adminActor))
	regs := f.seedApprovedRegistrations(3)
	for _, reg := range regs[:2] {
		_, err := f.service.AutoAssign(ctx, 1, reg.ID, adminActor)
		require.NoError(t, err)
	}

	board, err := f.service.GetBoard(ctx, 1)
	require.NoError(t, err)

	assert.Len(t, board.Groups, 2)
	assert.Equal(t, 10, board.TotalSlots)
	assert.Equal(t, 2, board.AssignedCount)
	require.Len(t, board.PendingAssignment, 1)
	assert.Equal(t, regs[2].ID, board.PendingAssignment[0].ID)

	// Занятые слоты несут сводку по команде.
	require.NotNil(t, board.Slots[0].Occupant)
	assert.Equal(t, "Team 01", board.Slots[0].Occupant.TeamName)
}

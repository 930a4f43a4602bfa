package handlers

import (
	"errors"
	"net/http"

	"github.com/arenalink/tournament-platform/services"
)

type SlotHandler struct {
	slotService services.SlotService
}

func NewSlotHandler(slotService services.SlotService) *SlotHandler {
	return &SlotHandler{slotService: slotService}
}

// InitializeSlots godoc
// @Summary      Инициализация пула слотов турнира
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      201 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/slots/initialize [post]
func (h *SlotHandler) InitializeSlots(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.slotService.InitializeSlots(r.Context(), tournamentID, actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"initialized": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AutoAssign godoc
// @Summary      Рассадка одной заявки в первый свободный слот
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/slots/assign [post]
func (h *SlotHandler) AutoAssign(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RegistrationID int `json:"registration_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RegistrationID <= 0 {
		badRequestResponse(w, r, errors.New("registration_id is required"))
		return
	}

	assigned, err := h.slotService.AutoAssign(r.Context(), tournamentID, input.RegistrationID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"assigned": assigned}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AutoAssignAll godoc
// @Summary      Пакетная рассадка всех одобренных заявок
// @Tags         slots
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/slots/assign-all [post]
func (h *SlotHandler) AutoAssignAll(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.slotService.AutoAssignAll(r.Context(), tournamentID, actor)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MoveOrSwap godoc
// @Summary      Перенос или обмен занятости двух слотов
// @Tags         slots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]interface{}
// @Router       /slots/move [post]
func (h *SlotHandler) MoveOrSwap(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		FromSlotID int `json:"from_slot_id"`
		ToSlotID   int `json:"to_slot_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.FromSlotID <= 0 || input.ToSlotID <= 0 {
		badRequestResponse(w, r, errors.New("from_slot_id and to_slot_id are required"))
		return
	}

	if err := h.slotService.MoveOrSwap(r.Context(), input.FromSlotID, input.ToSlotID, actor); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"moved": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBoard godoc
// @Summary      Доска слотов турнира
// @Tags         slots
// @Produce      json
// @Param        tournamentID path int true "ID турнира"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/slots [get]
func (h *SlotHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	board, err := h.slotService.GetBoard(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"board": board}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

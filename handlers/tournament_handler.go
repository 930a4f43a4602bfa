package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/repositories"
	"github.com/arenalink/tournament-platform/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

// Create godoc
// @Summary      Создание турнира
// @Tags         tournaments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body services.CreateTournamentInput true "Параметры турнира"
// @Success      201 {object} map[string]interface{}
// @Router       /tournaments [post]
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary      Турнир по ID
// @Tags         tournaments
// @Produce      json
// @Param        tournamentID path int true "ID турнира"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Неопубликованные турниры видят только модераторы и администраторы.
	includeUnpublished := false
	if actor, err := actorFromContext(r); err == nil {
		includeUnpublished = services.CanManageTournaments(actor.Role)
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id, includeUnpublished)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary      Список турниров
// @Tags         tournaments
// @Produce      json
// @Param        status query string false "Фильтр по статусу"
// @Param        game   query string false "Фильтр по игре"
// @Param        limit  query int    false "Лимит"
// @Param        offset query int    false "Смещение"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments [get]
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{}

	// Публичный список показывает только опубликованные турниры.
	published := true
	filter.IsPublished = &published
	if actor, err := actorFromContext(r); err == nil && services.CanManageTournaments(actor.Role) {
		filter.IsPublished = nil
	}

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if game := r.URL.Query().Get("game"); game != "" {
		filter.Game = &game
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Update godoc
// @Summary      Правка турнира
// @Tags         tournaments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Param        input body services.UpdateTournamentInput true "Изменяемые поля"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID} [patch]
func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), actor, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary      Удаление турнира (только админ)
// @Tags         tournaments
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      204
// @Router       /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), actor, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateGroup godoc
// @Summary      Добавление группы в турнир
// @Tags         tournaments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      201 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/groups [post]
func (h *TournamentHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
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
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	group, err := h.tournamentService.CreateGroup(r.Context(), actor, tournamentID, input.Name, input.SortOrder)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"group": group}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteGroup godoc
// @Summary      Удаление группы
// @Tags         tournaments
// @Security     BearerAuth
// @Param        groupID path int true "ID группы"
// @Success      204
// @Router       /groups/{groupID} [delete]
func (h *TournamentHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	groupID, err := getIDFromURL(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteGroup(r.Context(), actor, groupID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadMedia godoc
// @Summary      Загрузка постера или логотипа турнира
// @Tags         tournaments
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Param        kind path string true "poster или logo"
// @Param        file formData file true "Изображение"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/media/{kind} [post]
func (h *TournamentHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
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
	kind := getStringFromURL(r, "kind")

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, errors.New("file is required"))
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UploadMedia(r.Context(), actor, tournamentID, kind, file, header.Header.Get("Content-Type"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

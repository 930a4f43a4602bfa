package handlers

import (
	"errors"
	"net/http"

	"github.com/arenalink/tournament-platform/models"
	"github.com/arenalink/tournament-platform/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(registrationService services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Submit godoc
// @Summary      Подача заявки команды
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Param        input body services.SubmitRegistrationInput true "Заявка"
// @Success      201 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/registrations [post]
func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
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

	var input services.SubmitRegistrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.TournamentID = tournamentID

	reg, err := h.registrationService.Submit(r.Context(), actor, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetOwn godoc
// @Summary      Активная заявка текущего пользователя на турнир
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/registrations/me [get]
func (h *RegistrationHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
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

	reg, err := h.registrationService.GetOwn(r.Context(), actor, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByID godoc
// @Summary      Заявка по идентификатору (владелец или модерация)
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        registrationID path int true "ID заявки"
// @Success      200 {object} map[string]interface{}
// @Router       /registrations/{registrationID} [get]
func (h *RegistrationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.GetByID(r.Context(), actor, registrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListByTournament godoc
// @Summary      Заявки турнира (модерация)
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        tournamentID path int true "ID турнира"
// @Param        status query string false "Фильтр по статусу"
// @Success      200 {object} map[string]interface{}
// @Router       /tournaments/{tournamentID}/registrations [get]
func (h *RegistrationHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
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

	var statusFilter *models.RegistrationStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.RegistrationStatus(statusStr)
		statusFilter = &status
	}

	regs, err := h.registrationService.ListByTournament(r.Context(), actor, tournamentID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Review godoc
// @Summary      Решение по заявке: approve или reject
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        registrationID path int true "ID заявки"
// @Success      200 {object} map[string]interface{}
// @Router       /registrations/{registrationID}/review [post]
func (h *RegistrationHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Decision services.ReviewDecision `json:"decision"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Decision != services.ReviewApprove && input.Decision != services.ReviewReject {
		badRequestResponse(w, r, errors.New("decision must be approve or reject"))
		return
	}

	reg, err := h.registrationService.Review(r.Context(), actor, registrationID, input.Decision)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadTeamLogo godoc
// @Summary      Загрузка эмблемы команды
// @Tags         registrations
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        registrationID path int true "ID заявки"
// @Param        file formData file true "Изображение"
// @Success      200 {object} map[string]interface{}
// @Router       /registrations/{registrationID}/logo [post]
func (h *RegistrationHandler) UploadTeamLogo(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, errors.New("file is required"))
		return
	}
	defer file.Close()

	reg, err := h.registrationService.UploadTeamLogo(r.Context(), actor, registrationID, file, header.Header.Get("Content-Type"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

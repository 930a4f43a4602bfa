package handlers

import (
	"net/http"
	"strconv"

	"github.com/arenalink/tournament-platform/repositories"
	"github.com/arenalink/tournament-platform/services"
)

type AuditHandler struct {
	auditService services.AuditService
}

func NewAuditHandler(auditService services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List godoc
// @Summary      Журнал аудита (только админ)
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        user_id     query int    false "Фильтр по пользователю"
// @Param        entity_type query string false "Фильтр по типу сущности"
// @Param        action      query string false "Фильтр по действию"
// @Param        limit       query int    false "Лимит"
// @Param        offset      query int    false "Смещение"
// @Success      200 {object} map[string]interface{}
// @Router       /admin/audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromContext(r)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	filter := repositories.ListAuditLogsFilter{}
	if userIDStr := r.URL.Query().Get("user_id"); userIDStr != "" {
		if userID, err := strconv.Atoi(userIDStr); err == nil && userID > 0 {
			filter.UserID = &userID
		}
	}
	if entityType := r.URL.Query().Get("entity_type"); entityType != "" {
		filter.EntityType = &entityType
	}
	if action := r.URL.Query().Get("action"); action != "" {
		filter.Action = &action
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.auditService.List(r.Context(), actor, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"audit_logs": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

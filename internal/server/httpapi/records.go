package httpapi

import (
	"encoding/json"
	"net/http"

	"medequip/internal/server/models"
	sm "medequip/internal/shared/models"
)

func (r *Router) handleListEquipment(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Equipment.List(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sm.EquipmentList{Equipment: list, Total: len(list)})
}

func (r *Router) handleCreateEquipment(w http.ResponseWriter, req *http.Request) {
	var body models.NewEquipment
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	eq, err := r.services.Equipment.Create(req.Context(), body, currentUser(req.Context()).Username)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, sm.EquipmentCreated{Message: "equipment created", Equipment: eq})
}

func (r *Router) handleListMaintenance(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Maintenance.List(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sm.MaintenanceList{Maintenance: list, Total: len(list)})
}

func (r *Router) handleCreateMaintenance(w http.ResponseWriter, req *http.Request) {
	var body models.NewMaintenance
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	m, err := r.services.Maintenance.Create(req.Context(), body, currentUser(req.Context()).Username)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, sm.MaintenanceCreated{Message: "maintenance created", Maintenance: m})
}

func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) {
	report, err := r.services.Reports.Generate(req.Context(), currentUser(req.Context()).Username)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sm.ReportEnvelope{Report: report})
}

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	list, err := r.services.Notifications.List(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, sm.NotificationList{Notifications: list, Total: len(list)})
}

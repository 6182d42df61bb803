package api

import (
	"net/http"

	"github.com/openlar/openlar/models"
)

func (g *Gateway) handleGETShiftNotice(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)

	notice, err := g.queries.ShiftNotice(user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, notice)
}

func (g *Gateway) handleDELETEShiftNotice(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)

	if err := g.queries.AcknowledgeShift(user.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleGETRelativeMessages(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)

	notices, err := g.queries.RelativeMessages(user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if notices == nil {
		notices = []models.Notification{}
	}
	writeJSONResponse(w, notices)
}

func (g *Gateway) handleDELETERelativeMessages(w http.ResponseWriter, r *http.Request) {
	user := identityFromRequest(r)

	if err := g.queries.AcknowledgeMessages(user.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"strconv"

	"classquest/internal/apperr"
	"classquest/internal/service"
)

// ChallengeHandler serves the student-facing challenge endpoints
type ChallengeHandler struct {
	challenges *service.ChallengeService
}

// NewChallengeHandler creates a new challenge handler
func NewChallengeHandler(challenges *service.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges}
}

// RegisterRoutes attaches the student endpoints to the mux
func (h *ChallengeHandler) RegisterRoutes(mux *http.ServeMux, mw *Middleware) {
	mux.HandleFunc("GET /api/challenges", mw.RequireStudent(h.State))

	mux.HandleFunc("POST /api/challenges/custom/{id}/start", mw.RequireStudent(h.StartCustom))
	mux.HandleFunc("POST /api/challenges/custom/{id}/hint", mw.RequireStudent(h.CustomHint))
	mux.HandleFunc("POST /api/challenges/custom/{id}/submit", mw.RequireStudent(h.SubmitCustom))

	mux.HandleFunc("POST /api/challenges/legacy/{kind}/start", mw.RequireStudent(h.StartLegacy))
	mux.HandleFunc("POST /api/challenges/legacy/{kind}/hint", mw.RequireStudent(h.LegacyHint))
	mux.HandleFunc("POST /api/challenges/legacy/{kind}/submit", mw.RequireStudent(h.SubmitLegacy))
	mux.HandleFunc("GET /api/challenges/legacy/{kind}/artifact", mw.RequireStudent(h.LegacyArtifact))
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, apperr.Validation("invalid " + name + " in path")
	}
	return id, nil
}

// State returns the student's sanitized view of the whole series
func (h *ChallengeHandler) State(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())

	state, err := h.challenges.GetPublicState(r.Context(), claims.ClassroomID, claims.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// StartCustom starts a custom challenge and returns its content
func (h *ChallengeHandler) StartCustom(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	challengeID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	view, err := h.challenges.StartCustom(r.Context(), claims.ClassroomID, claims.UserID, challengeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type hintResponse struct {
	Hint string `json:"hint"`
}

// CustomHint unlocks the next hint on a custom challenge
func (h *ChallengeHandler) CustomHint(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	challengeID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	hint, err := h.challenges.UnlockCustomHint(r.Context(), claims.ClassroomID, claims.UserID, challengeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, hintResponse{Hint: hint})
}

type submitRequest struct {
	Answer string `json:"answer"`
}

// SubmitCustom verifies an answer for a custom challenge
func (h *ChallengeHandler) SubmitCustom(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	challengeID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.challenges.SubmitCustom(r.Context(), claims.ClassroomID, claims.UserID, challengeID, req.Answer)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// StartLegacy produces the content for a legacy challenge
func (h *ChallengeHandler) StartLegacy(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	kind, err := pathID(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}

	view, err := h.challenges.StartLegacy(r.Context(), claims.ClassroomID, claims.UserID, int(kind))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// LegacyHint unlocks the next hint on a legacy challenge
func (h *ChallengeHandler) LegacyHint(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	kind, err := pathID(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}

	hint, err := h.challenges.UnlockLegacyHint(r.Context(), claims.ClassroomID, claims.UserID, int(kind))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, hintResponse{Hint: hint})
}

// SubmitLegacy verifies an answer for a legacy challenge
func (h *ChallengeHandler) SubmitLegacy(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	kind, err := pathID(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}

	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := h.challenges.SubmitLegacy(r.Context(), claims.ClassroomID, claims.UserID, int(kind), req.Answer)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// LegacyArtifact streams the downloadable artifact for a legacy challenge
func (h *ChallengeHandler) LegacyArtifact(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	kind, err := pathID(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.challenges.LegacyArtifact(r.Context(), claims.ClassroomID, claims.UserID, int(kind))
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="evidence.png"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		return
	}
}

package handlers

import (
	"net/http"
	"time"

	"classquest/internal/apperr"
	"classquest/internal/models"
	"classquest/internal/service"
)

// SeriesHandler serves the teacher-facing configuration endpoints
type SeriesHandler struct {
	series *service.SeriesService
}

// NewSeriesHandler creates a new series handler
func NewSeriesHandler(series *service.SeriesService) *SeriesHandler {
	return &SeriesHandler{series: series}
}

// RegisterRoutes attaches the teacher endpoints to the mux
func (h *SeriesHandler) RegisterRoutes(mux *http.ServeMux, mw *Middleware) {
	mux.HandleFunc("POST /api/series", mw.RequireTeacher(h.Create))
	mux.HandleFunc("PUT /api/series/{id}", mw.RequireTeacher(h.Configure))
	mux.HandleFunc("DELETE /api/series/{id}", mw.RequireTeacher(h.Delete))
	mux.HandleFunc("PUT /api/series/{id}/rewards", mw.RequireTeacher(h.UpdateRewards))
	mux.HandleFunc("POST /api/series/{id}/activate", mw.RequireTeacher(h.Activate))
	mux.HandleFunc("POST /api/series/{id}/deactivate", mw.RequireTeacher(h.Deactivate))
	mux.HandleFunc("GET /api/series/{id}/progress", mw.RequireTeacher(h.Progress))
	mux.HandleFunc("POST /api/series/{id}/students", mw.RequireTeacher(h.AssignStudent))
	mux.HandleFunc("POST /api/series/{id}/students/{studentId}/reset", mw.RequireTeacher(h.ResetStudent))
	mux.HandleFunc("POST /api/series/{id}/students/{studentId}/reset/custom/{challengeId}", mw.RequireTeacher(h.ResetCustom))
	mux.HandleFunc("POST /api/series/{id}/students/{studentId}/reset/legacy/{kind}", mw.RequireTeacher(h.ResetLegacy))

	mux.HandleFunc("POST /api/series/{id}/challenges", mw.RequireTeacher(h.CreateChallenge))
	mux.HandleFunc("PUT /api/series/{id}/challenges/{challengeId}", mw.RequireTeacher(h.UpdateChallenge))
	mux.HandleFunc("DELETE /api/series/{id}/challenges/{challengeId}", mw.RequireTeacher(h.DeleteChallenge))
	mux.HandleFunc("POST /api/series/{id}/challenges/reorder", mw.RequireTeacher(h.ReorderChallenges))
	mux.HandleFunc("POST /api/series/{id}/challenges/{challengeId}/attachments", mw.RequireTeacher(h.UploadAttachment))
}

type seriesRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SeriesType  string     `json:"seriesType"`
	LegacyKinds []int      `json:"legacyKinds"`
	IsVisible   bool       `json:"isVisible"`
	DueDate     *time.Time `json:"dueDate"`
}

func (req seriesRequest) input() service.SeriesInput {
	return service.SeriesInput{
		Title:       req.Title,
		Description: req.Description,
		SeriesType:  models.SeriesType(req.SeriesType),
		LegacyKinds: req.LegacyKinds,
		IsVisible:   req.IsVisible,
		DueDate:     req.DueDate,
	}
}

// Create creates the classroom's challenge series
func (h *SeriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())

	var req seriesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	series, err := h.series.CreateSeries(r.Context(), claims.UserID, claims.ClassroomID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, series)
}

// Configure updates the series definition
func (h *SeriesHandler) Configure(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req seriesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	series, err := h.series.ConfigureSeries(r.Context(), claims.UserID, seriesID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Delete removes the series and all progress
func (h *SeriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.DeleteSeries(r.Context(), claims.UserID, seriesID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// UpdateRewards replaces the series reward settings
func (h *SeriesHandler) UpdateRewards(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var settings models.RewardSettings
	if err := decodeJSON(r, &settings); err != nil {
		respondError(w, err)
		return
	}

	series, err := h.series.UpdateRewardSettings(r.Context(), claims.UserID, seriesID, settings)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

type activateRequest struct {
	StudentIDs []int64 `json:"studentIds"`
}

// Activate turns the series live and provisions student records
func (h *SeriesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req activateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	series, err := h.series.ActivateSeries(r.Context(), claims.UserID, seriesID, req.StudentIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// Deactivate hides the series from students
func (h *SeriesHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.DeactivateSeries(r.Context(), claims.UserID, seriesID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Progress lists every student's progress for the series
func (h *SeriesHandler) Progress(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	overview, err := h.series.ProgressOverview(r.Context(), claims.UserID, seriesID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

type assignRequest struct {
	StudentID int64 `json:"studentId"`
}

// AssignStudent provisions a record for a late-joining student
func (h *SeriesHandler) AssignStudent(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	rec, err := h.series.AssignStudent(r.Context(), claims.UserID, seriesID, req.StudentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, service.RecordSummary{
		RecordID:  rec.ID,
		StudentID: rec.StudentID,
		Token:     rec.Token,
		CreatedAt: rec.CreatedAt,
	})
}

// ResetStudent clears all of a student's progress
func (h *SeriesHandler) ResetStudent(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.ResetStudent(r.Context(), claims.UserID, seriesID, studentID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ResetCustom clears one custom challenge's progress for a student
func (h *SeriesHandler) ResetCustom(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		respondError(w, err)
		return
	}
	challengeID, err := pathID(r, "challengeId")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.ResetCustomChallenge(r.Context(), claims.UserID, seriesID, studentID, challengeID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// ResetLegacy clears one legacy slot's progress for a student
func (h *SeriesHandler) ResetLegacy(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	studentID, err := pathID(r, "studentId")
	if err != nil {
		respondError(w, err)
		return
	}
	kind, err := pathID(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.ResetLegacyChallenge(r.Context(), claims.UserID, seriesID, studentID, int(kind)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type challengeRequest struct {
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	ExternalLink       string         `json:"externalLink"`
	TemplateType       string         `json:"templateType"`
	TemplateConfig     map[string]any `json:"templateConfig"`
	Answer             string         `json:"answer"`
	Hints              []string       `json:"hints"`
	HintPenaltyPercent int            `json:"hintPenaltyPercent"`
	MaxAttempts        int            `json:"maxAttempts"`
	Bits               int            `json:"bits"`
	Multiplier         float64        `json:"multiplier"`
	Luck               float64        `json:"luck"`
	Discount           float64        `json:"discount"`
	Shield             bool           `json:"shield"`
	IsVisible          bool           `json:"isVisible"`
	DueDate            *time.Time     `json:"dueDate"`
}

func (req challengeRequest) input() service.ChallengeInput {
	return service.ChallengeInput{
		Title:              req.Title,
		Description:        req.Description,
		ExternalLink:       req.ExternalLink,
		TemplateType:       models.TemplateType(req.TemplateType),
		TemplateConfig:     req.TemplateConfig,
		Answer:             req.Answer,
		Hints:              req.Hints,
		HintPenaltyPercent: req.HintPenaltyPercent,
		MaxAttempts:        req.MaxAttempts,
		Bits:               req.Bits,
		Multiplier:         req.Multiplier,
		Luck:               req.Luck,
		Discount:           req.Discount,
		Shield:             req.Shield,
		IsVisible:          req.IsVisible,
		DueDate:            req.DueDate,
	}
}

// challengeResponse strips the stored answer hash from a definition
type challengeResponse struct {
	*models.CustomChallengeDefinition
	AnswerHash string `json:"answerHash,omitempty"`
}

// CreateChallenge adds a custom challenge to the series
func (h *SeriesHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req challengeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	def, err := h.series.CreateCustomChallenge(r.Context(), claims.UserID, seriesID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, challengeResponse{CustomChallengeDefinition: def})
}

// UpdateChallenge rewrites a custom challenge definition
func (h *SeriesHandler) UpdateChallenge(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	challengeID, err := pathID(r, "challengeId")
	if err != nil {
		respondError(w, err)
		return
	}

	var req challengeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	def, err := h.series.UpdateCustomChallenge(r.Context(), claims.UserID, seriesID, challengeID, req.input())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, challengeResponse{CustomChallengeDefinition: def})
}

// DeleteChallenge removes a custom challenge
func (h *SeriesHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	challengeID, err := pathID(r, "challengeId")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.DeleteCustomChallenge(r.Context(), claims.UserID, seriesID, challengeID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type reorderRequest struct {
	OrderedIDs []int64 `json:"orderedIds"`
}

// ReorderChallenges rewrites the display order of the series' challenges
func (h *SeriesHandler) ReorderChallenges(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if err := h.series.ReorderCustomChallenges(r.Context(), claims.UserID, seriesID, req.OrderedIDs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// UploadAttachment stores a file for a custom challenge
func (h *SeriesHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims := SessionFromContext(r.Context())
	seriesID, err := pathID(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	challengeID, err := pathID(r, "challengeId")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, apperr.Validation("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, apperr.Validation("missing file field"))
		return
	}
	defer file.Close()

	attachment, err := h.series.UploadAttachment(
		r.Context(), claims.UserID, seriesID, challengeID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file,
	)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, attachment)
}

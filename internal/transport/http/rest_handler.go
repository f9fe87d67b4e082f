package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"classboard-service/internal/app"
	"classboard-service/internal/domain"
	"github.com/google/uuid"
)

// ExerciseStore is the authoring-side contract: the document store the
// real-time core otherwise only reads.
type ExerciseStore interface {
	LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
	FindByPIN(ctx context.Context, pin string) (domain.Exercise, error)
	SaveExercise(ctx context.Context, exercise domain.Exercise) error
}

// RESTHandler serves the exercise CRUD and monitor snapshot endpoints.
type RESTHandler struct {
	store   ExerciseStore
	service *app.RoomService
	rnd     *rand.Rand
}

func NewRESTHandler(store ExerciseStore, service *app.RoomService) *RESTHandler {
	return &RESTHandler{
		store:   store,
		service: service,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register mounts the REST routes on the mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/exercises", h.createExercise)
	mux.HandleFunc("GET /api/exercises/{id}", h.getExercise)
	mux.HandleFunc("GET /api/pins/{pin}", h.findByPIN)
	mux.HandleFunc("GET /api/rooms/{id}/progress", h.roomProgress)
}

type createExerciseRequest struct {
	Kind            domain.ExerciseKind `json:"type"`
	Title           string              `json:"title"`
	OriginalText    string              `json:"originalText"`
	Blanks          []domain.Blank      `json:"blanks"`
	AllowDuplicates bool                `json:"allowDuplicates"`
	Steps           []string            `json:"steps"`
	Items           []domain.BoardItem  `json:"items"`
	BackgroundURL   string              `json:"backgroundUrl"`
	BaseWidth       float64             `json:"baseWidth"`
	AspectRatio     float64             `json:"aspectRatio"`
}

type createExerciseResponse struct {
	ID  string `json:"id"`
	PIN string `json:"pinNumber"`
}

func (h *RESTHandler) createExercise(w http.ResponseWriter, r *http.Request) {
	var req createExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !req.Kind.Valid() {
		http.Error(w, "unknown exercise type", http.StatusBadRequest)
		return
	}

	exercise := domain.Exercise{
		ID:              uuid.NewString(),
		PIN:             h.newPIN(),
		Kind:            req.Kind,
		Title:           req.Title,
		OriginalText:    req.OriginalText,
		Blanks:          req.Blanks,
		AllowDuplicates: req.AllowDuplicates,
		Items:           req.Items,
		BackgroundURL:   req.BackgroundURL,
		BaseWidth:       req.BaseWidth,
		AspectRatio:     req.AspectRatio,
		CreatedAt:       time.Now(),
	}
	// Steps arrive as plain strings; ids are positional so the canonical
	// order is the submitted order.
	for i, text := range req.Steps {
		exercise.Steps = append(exercise.Steps, domain.Step{ID: fmt.Sprintf("step-%d", i), Text: text})
	}
	if exercise.Kind == domain.KindFreeDrop {
		if exercise.BaseWidth == 0 {
			exercise.BaseWidth = 1000
		}
		if exercise.AspectRatio == 0 {
			exercise.AspectRatio = 16.0 / 9.0
		}
	}

	if err := h.store.SaveExercise(r.Context(), exercise); err != nil {
		log.Printf("save exercise: %v", err)
		http.Error(w, "store unavailable", http.StatusInternalServerError)
		return
	}
	log.Printf("exercise created: %s (%s, PIN %s)", exercise.Title, exercise.Kind, exercise.PIN)
	writeJSON(w, http.StatusCreated, createExerciseResponse{ID: exercise.ID, PIN: exercise.PIN})
}

func (h *RESTHandler) getExercise(w http.ResponseWriter, r *http.Request) {
	exercise, err := h.store.LoadExercise(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exercise)
}

type pinLookupResponse struct {
	ID   string              `json:"id"`
	Kind domain.ExerciseKind `json:"type"`
}

func (h *RESTHandler) findByPIN(w http.ResponseWriter, r *http.Request) {
	exercise, err := h.store.FindByPIN(r.Context(), r.PathValue("pin"))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pinLookupResponse{ID: exercise.ID, Kind: exercise.Kind})
}

func (h *RESTHandler) roomProgress(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *RESTHandler) newPIN() string {
	return fmt.Sprintf("%06d", 100000+h.rnd.Intn(900000))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrExerciseNotFound) {
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	}
	log.Printf("load exercise: %v", err)
	http.Error(w, "store unavailable", http.StatusInternalServerError)
}

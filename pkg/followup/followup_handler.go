package followup

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pocketledger/pocketledger/internal/rest"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

type SplitLineDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	CategoryID  string `json:"categoryId"`
}

type SessionDTO struct {
	Original ledger.EntryDTO `json:"original"`
	Lines    []SplitLineDTO  `json:"lines"`
	State    string          `json:"state"`
}

type LineEditDTO struct {
	Description *string `json:"description,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	CategoryID  *string `json:"categoryId,omitempty"`
}

type QueueDTO struct {
	Entries []ledger.EntryDTO `json:"entries"`
}

type ConfirmResponseDTO struct {
	Records []ledger.EntryDTO `json:"records"`
}

type CategoryStatDTO struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

type ReviewStatsDTO struct {
	Processed  int                        `json:"processed"`
	ByCategory map[string]CategoryStatDTO `json:"byCategory"`
}

type Handler struct {
	service Service
	stats   *StatsRecorder
}

func NewHandler(service Service, stats *StatsRecorder) *Handler {
	return &Handler{service: service, stats: stats}
}

// GetQueue godoc
// @Summary List pending follow-ups
// @Description Pending follow-up entries in presentation order, skipped
// @Description entries rotated to the back.
// @Tags FollowUp
// @Produce json
// @Success 200 {object} QueueDTO
// @Router /api/followup [get]
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	queue := h.service.Queue(r.Context())
	dto := QueueDTO{Entries: make([]ledger.EntryDTO, 0, len(queue))}
	for _, entry := range queue {
		dto.Entries = append(dto.Entries, ledger.EntryToDTO(entry))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Skip godoc
// @Summary Skip the current follow-up
// @Description Move the head of the queue to the back without touching the ledger
// @Tags FollowUp
// @Produce json
// @Success 200 {object} QueueDTO
// @Router /api/followup/skip [post]
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.service.Skip(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.GetQueue(w, r)
}

// BeginSplit godoc
// @Summary Start splitting a follow-up
// @Description Open a split session seeded with a single line carrying the
// @Description full original amount.
// @Tags FollowUp
// @Produce json
// @Success 201 {object} SessionDTO
// @Failure 404 {object} rest.ErrorResponse "Not a pending follow-up"
// @Router /api/followup/{id}/split [post]
func (h *Handler) BeginSplit(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["id"]
	log.Debugf("Starting split session for %s", entryID)
	w.Header().Set("Content-Type", "application/json")

	session, err := h.service.BeginSplit(r.Context(), entryID)
	if err != nil {
		if errors.Is(err, ErrNotFollowUp) {
			rest.WriteError(w, http.StatusNotFound, "Not a follow-up", "This entry is not a pending follow-up.")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeSession(w, http.StatusCreated, session)
}

// GetSession godoc
// @Summary Get the active split session
// @Tags FollowUp
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 404 {object} rest.ErrorResponse "No active split"
// @Router /api/followup/{id}/split [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	session, err := h.service.ActiveSession(mux.Vars(r)["id"])
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// AddLine godoc
// @Summary Add a split line
// @Description Append a new zero-amount line to the active session
// @Tags FollowUp
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 404 {object} rest.ErrorResponse "No active split"
// @Router /api/followup/{id}/split/lines [post]
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	session, err := h.service.AddLine(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// UpdateLine godoc
// @Summary Edit a split line
// @Description Partial update; omitted fields are left unchanged
// @Tags FollowUp
// @Accept json
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 400 {object} rest.ErrorResponse "Unknown category"
// @Failure 404 {object} rest.ErrorResponse "No active split or unknown line"
// @Router /api/followup/{id}/split/lines/{lineId} [put]
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json")

	var dto LineEditDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	edit := LineEdit{
		Description: dto.Description,
		Amount:      dto.Amount,
	}
	if dto.CategoryID != nil {
		id := category.ID(*dto.CategoryID)
		edit.CategoryID = &id
	}

	session, err := h.service.UpdateLine(r.Context(), vars["id"], vars["lineId"], edit)
	if err != nil {
		if errors.Is(err, ledger.ErrUnknownCategory) {
			rest.WriteError(w, http.StatusBadRequest, "Select category", "Please select a valid category for this line.")
			return
		}
		h.writeSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// RemoveLine godoc
// @Summary Remove a split line
// @Tags FollowUp
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 400 {object} rest.ErrorResponse "Last remaining line"
// @Failure 404 {object} rest.ErrorResponse "No active split or unknown line"
// @Router /api/followup/{id}/split/lines/{lineId} [delete]
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json")

	session, err := h.service.RemoveLine(r.Context(), vars["id"], vars["lineId"])
	if err != nil {
		if errors.Is(err, ErrMinimumOneLine) {
			rest.WriteError(w, http.StatusBadRequest, "Cannot remove", "A split needs at least one line.")
			return
		}
		h.writeSessionError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// Confirm godoc
// @Summary Confirm the split
// @Description Validate that the lines add up to the original amount, then
// @Description commit the whole split to the ledger in one batch.
// @Tags FollowUp
// @Produce json
// @Success 200 {object} ConfirmResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Amounts do not add up"
// @Failure 404 {object} rest.ErrorResponse "No active split"
// @Router /api/followup/{id}/split/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["id"]
	log.Debugf("Confirming split for %s", entryID)
	w.Header().Set("Content-Type", "application/json")

	records, err := h.service.Confirm(r.Context(), entryID)
	if err != nil {
		var mismatch *AmountMismatchError
		if errors.As(err, &mismatch) {
			rest.WriteError(w, http.StatusBadRequest, "Amounts don't add up", mismatch.Error())
			return
		}
		h.writeSessionError(w, err)
		return
	}

	dto := ConfirmResponseDTO{Records: make([]ledger.EntryDTO, 0, len(records))}
	for _, record := range records {
		dto.Records = append(dto.Records, ledger.EntryToDTO(record))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Cancel godoc
// @Summary Cancel the split
// @Description Discard all session edits. The original entry stays pending.
// @Tags FollowUp
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "No active split"
// @Router /api/followup/{id}/split [delete]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReviewStats godoc
// @Summary Get review statistics
// @Description Totals of processed follow-ups and where their money was routed
// @Tags FollowUp
// @Produce json
// @Success 200 {object} ReviewStatsDTO
// @Router /api/review-stats [get]
func (h *Handler) GetReviewStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats := h.stats.Stats()
	dto := ReviewStatsDTO{
		Processed:  stats.Processed,
		ByCategory: map[string]CategoryStatDTO{},
	}
	for id, stat := range stats.ByCategory {
		dto.ByCategory[id] = CategoryStatDTO{
			Count: stat.Count,
			Total: stat.Total.StringFixed(2),
		}
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, session Session) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SessionToDTO(session)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoActiveSplit):
		rest.WriteError(w, http.StatusNotFound, "No active split", "There is no split in progress for this entry.")
	case errors.Is(err, ErrLineNotFound):
		rest.WriteError(w, http.StatusNotFound, "Line not found", "This split line does not exist.")
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func SessionToDTO(session Session) SessionDTO {
	dto := SessionDTO{
		Original: ledger.EntryToDTO(session.Original),
		Lines:    make([]SplitLineDTO, 0, len(session.Lines)),
		State:    string(session.State),
	}
	for _, line := range session.Lines {
		dto.Lines = append(dto.Lines, SplitLineDTO{
			ID:          line.ID,
			Description: line.Description,
			Amount:      line.Amount,
			CategoryID:  string(line.CategoryID),
		})
	}
	return dto
}

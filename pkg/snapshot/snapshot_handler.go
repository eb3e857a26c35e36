package snapshot

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pocketledger/pocketledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

type PieSliceDTO struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Amount     string `json:"amount"`
	Share      string `json:"share"`
	Allocated  string `json:"allocated"`
}

type FollowUpSummaryDTO struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

type SnapshotDTO struct {
	Month             int                `json:"month"`
	Year              int                `json:"year"`
	PerCategoryTotals map[string]string  `json:"perCategoryTotals"`
	TotalSpent        string             `json:"totalSpent"`
	RemainingBudget   string             `json:"remainingBudget"`
	RecentEntries     []ledger.EntryDTO  `json:"recentEntries"`
	PendingFollowUps  FollowUpSummaryDTO `json:"pendingFollowUps"`
	PieChart          []PieSliceDTO      `json:"pieChart"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetSnapshot godoc
// @Summary Get the month snapshot
// @Description Recompute all derived figures for a month window. month is
// @Description zero-based (0 = January); both parameters default to the
// @Description current month.
// @Tags Snapshot
// @Produce json
// @Param month query int false "Month (0-11)"
// @Param year query int false "Year"
// @Success 200 {object} SnapshotDTO
// @Failure 400 {string} string "Invalid month or year"
// @Router /api/snapshot [get]
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	window := h.service.CurrentWindow()
	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 0 || month > 11 {
			http.Error(w, "month must be between 0 and 11", http.StatusBadRequest)
			return
		}
		window.Month = time.Month(month + 1)
	}
	if yearParam := r.URL.Query().Get("year"); yearParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil {
			http.Error(w, "invalid year", http.StatusBadRequest)
			return
		}
		window.Year = year
	}
	log.Debugf("Computing snapshot for %s %d", window.Month, window.Year)

	snapshot, err := h.service.GetSnapshot(r.Context(), window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(SnapshotToDTO(snapshot)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func SnapshotToDTO(snapshot Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		Month:             int(snapshot.Window.Month) - 1,
		Year:              snapshot.Window.Year,
		PerCategoryTotals: map[string]string{},
		TotalSpent:        snapshot.TotalSpent.StringFixed(2),
		RemainingBudget:   snapshot.RemainingBudget.StringFixed(2),
		RecentEntries:     make([]ledger.EntryDTO, 0, len(snapshot.RecentEntries)),
		PendingFollowUps: FollowUpSummaryDTO{
			Count: snapshot.PendingFollowUps,
			Total: snapshot.FollowUpTotal.StringFixed(2),
		},
	}
	for id, total := range snapshot.PerCategoryTotals {
		dto.PerCategoryTotals[string(id)] = total.StringFixed(2)
	}
	for _, entry := range snapshot.RecentEntries {
		dto.RecentEntries = append(dto.RecentEntries, ledger.EntryToDTO(entry))
	}
	for _, slice := range snapshot.PieChart {
		dto.PieChart = append(dto.PieChart, PieSliceDTO{
			CategoryID: string(slice.Category.ID),
			Name:       slice.Category.Name,
			Color:      slice.Category.Color,
			Amount:     slice.Amount.StringFixed(2),
			Share:      slice.Share.StringFixed(1),
			Allocated:  slice.AllocatedDollar.StringFixed(2),
		})
	}
	return dto
}

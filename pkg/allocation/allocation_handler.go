package allocation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pocketledger/pocketledger/pkg/category"
	log "github.com/sirupsen/logrus"
)

type CategoryAllocationDTO struct {
	CategoryID string `json:"categoryId"`
	Raw        string `json:"raw"`
	Mode       string `json:"mode"`
	Percent    string `json:"percent"`
	Dollar     string `json:"dollar"`
}

type AllocationsDTO struct {
	Budget       string                  `json:"budget"`
	TotalPercent string                  `json:"totalPercent"`
	Categories   []CategoryAllocationDTO `json:"categories"`
}

type SetBudgetDTO struct {
	Budget string `json:"budget"`
}

type SetAllocationDTO struct {
	Value string `json:"value"`
	Mode  string `json:"mode"`
}

type AllocationResultDTO struct {
	Stored  string `json:"stored"`
	Clamped bool   `json:"clamped"`
	Notice  string `json:"notice,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetAllocations godoc
// @Summary Get the budget allocation
// @Tags Allocation
// @Produce json
// @Success 200 {object} AllocationsDTO
// @Router /api/allocation [get]
func (h *Handler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	dto := h.allocationsDTO()
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// SetBudget godoc
// @Summary Set the total monthly budget
// @Tags Allocation
// @Accept json
// @Produce json
// @Success 200 {object} AllocationsDTO
// @Router /api/budget [put]
func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto SetBudgetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.SetTotalBudget(r.Context(), dto.Budget); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.allocationsDTO()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// SetAllocation godoc
// @Summary Set one category's allocation
// @Description Set the allocation value for a category in percent or dollar
// @Description units. Edits that would push the total past 100% are clamped
// @Description and reported in the notice.
// @Tags Allocation
// @Accept json
// @Produce json
// @Success 200 {object} AllocationResultDTO
// @Failure 400 {string} string "Category cannot receive allocation"
// @Router /api/allocation/{categoryId} [put]
func (h *Handler) SetAllocation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	categoryID := category.ID(mux.Vars(r)["categoryId"])

	var dto SetAllocationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.SetAllocation(r.Context(), categoryID, dto.Value, UnitMode(dto.Mode))
	if err != nil {
		if errors.Is(err, ErrNotAllocatable) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resultToDTO(result)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// ToggleUnitMode godoc
// @Summary Toggle a category between percent and dollar editing
// @Tags Allocation
// @Produce json
// @Success 200 {object} AllocationResultDTO
// @Router /api/allocation/{categoryId}/toggle [post]
func (h *Handler) ToggleUnitMode(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	categoryID := category.ID(mux.Vars(r)["categoryId"])

	result, err := h.service.ToggleUnitMode(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, ErrNotAllocatable) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resultToDTO(result)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// DistributeEvenly godoc
// @Summary Split 100% evenly across the spendable categories
// @Tags Allocation
// @Produce json
// @Success 200 {object} AllocationsDTO
// @Router /api/allocation/distribute [post]
func (h *Handler) DistributeEvenly(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.service.DistributeEvenly(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.allocationsDTO()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Reset godoc
// @Summary Clear all allocations
// @Tags Allocation
// @Success 204
// @Router /api/allocation [delete]
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) allocationsDTO() AllocationsDTO {
	view := h.service.View()
	dto := AllocationsDTO{
		Budget:       view.Budget,
		TotalPercent: h.service.TotalPercent("").StringFixed(1),
	}
	for _, c := range category.Spendable() {
		dto.Categories = append(dto.Categories, CategoryAllocationDTO{
			CategoryID: string(c.ID),
			Raw:        view.Allocs[c.ID],
			Mode:       string(view.Modes[c.ID]),
			Percent:    h.service.PercentOf(c.ID).StringFixed(1),
			Dollar:     h.service.DollarOf(c.ID).StringFixed(2),
		})
	}
	return dto
}

func resultToDTO(result Result) AllocationResultDTO {
	dto := AllocationResultDTO{
		Stored:  result.Stored,
		Clamped: result.Clamped,
	}
	if result.Notice != nil {
		if result.Notice.Unit == UnitDollar {
			dto.Notice = fmt.Sprintf("Maximum you can allocate here is $%s (total cannot exceed 100%%)", result.Notice.MaxAllowed)
		} else {
			dto.Notice = fmt.Sprintf("Maximum you can allocate here is %s%% (total cannot exceed 100%%)", result.Notice.MaxAllowed)
		}
	}
	log.Tracef("allocation result: %+v", dto)
	return dto
}

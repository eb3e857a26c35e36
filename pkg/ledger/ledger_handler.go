package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pocketledger/pocketledger/internal/rest"
	"github.com/pocketledger/pocketledger/pkg/category"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type AttachmentDTO struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type ExpenseRequestDTO struct {
	Amount     string         `json:"amount"`
	CategoryID string         `json:"categoryId"`
	Date       *time.Time     `json:"date,omitempty"`
	Attachment *AttachmentDTO `json:"attachment,omitempty"`
}

type EntryDTO struct {
	ID                string         `json:"id"`
	Amount            string         `json:"amount"`
	CategoryID        string         `json:"categoryId"`
	Date              time.Time      `json:"date"`
	Description       string         `json:"description,omitempty"`
	Attachment        *AttachmentDTO `json:"attachment,omitempty"`
	Processed         bool           `json:"processed,omitempty"`
	SplitFromFollowUp string         `json:"splitFromFollowUp,omitempty"`
	SplitInto         int            `json:"splitInto,omitempty"`
}

type ExpenseResponseDTO struct {
	Entry EntryDTO `json:"entry"`
	// ReceiptRecommended flags a follow-up logged without a receipt: splitting
	// is easier with one attached, but it is not required.
	ReceiptRecommended bool `json:"receiptRecommended,omitempty"`
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// LogExpense godoc
// @Summary Log an expense
// @Description Append a new expense entry to the ledger
// @Tags Ledger
// @Accept json
// @Produce json
// @Success 201 {object} ExpenseResponseDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount or category"
// @Router /api/expense [post]
func (h *Handler) LogExpense(w http.ResponseWriter, r *http.Request) {
	log.Debug("Logging new expense")
	w.Header().Set("Content-Type", "application/json")

	var dto ExpenseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid amount", "Please enter a valid expense amount.")
		return
	}

	input := ExpenseInput{
		Amount:     amount,
		CategoryID: category.ID(dto.CategoryID),
	}
	if dto.Date != nil {
		input.Date = *dto.Date
	}
	if dto.Attachment != nil {
		input.Attachment = &Attachment{
			LocationRef: dto.Attachment.URI,
			Kind:        AttachmentKind(dto.Attachment.Type),
			Name:        dto.Attachment.Name,
		}
	}

	entry, err := h.store.LogExpense(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			rest.WriteError(w, http.StatusBadRequest, "Invalid amount", "Please enter a valid expense amount.")
		case errors.Is(err, ErrUnknownCategory):
			rest.WriteError(w, http.StatusBadRequest, "Select category", "Please select a category for this expense.")
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	response := ExpenseResponseDTO{
		Entry:              EntryToDTO(entry),
		ReceiptRecommended: entry.CategoryID == category.FollowUp && entry.Attachment == nil,
	}
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func EntryToDTO(entry Entry) EntryDTO {
	dto := EntryDTO{
		ID:                entry.ID,
		Amount:            entry.Amount.StringFixed(2),
		CategoryID:        string(entry.CategoryID),
		Date:              entry.Date,
		Description:       entry.Description,
		Processed:         entry.Processed,
		SplitFromFollowUp: entry.SplitFromFollowUp,
		SplitInto:         entry.SplitInto,
	}
	if entry.Attachment != nil {
		dto.Attachment = &AttachmentDTO{
			URI:  entry.Attachment.LocationRef,
			Type: string(entry.Attachment.Kind),
			Name: entry.Attachment.Name,
		}
	}
	return dto
}

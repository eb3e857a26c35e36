package attachment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pocketledger/pocketledger/internal/rest"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

type UploadResponseDTO struct {
	Attachment *ledger.AttachmentDTO `json:"attachment,omitempty"`
	// Message is set for graceful declines (picker cancelled, permission
	// denied); the expense can be logged without a receipt.
	Message string `json:"message,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Upload godoc
// @Summary Upload a receipt
// @Description Store a receipt (image or PDF, max 10MB) and return a durable
// @Description reference to attach to an expense. A cancelled or
// @Description permission-denied picker outcome is accepted without a file.
// @Tags Attachment
// @Accept multipart/form-data
// @Param receipt formData file false "Receipt file"
// @Param outcome formData string false "Picker outcome"
// @Produce json
// @Success 201 {object} UploadResponseDTO
// @Success 200 {object} UploadResponseDTO "Graceful decline"
// @Failure 400 {object} rest.ErrorResponse "File too large or unsupported type"
// @Router /api/attachment [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Uploading receipt")

	// Enforce a hard limit of 10MB on the request body
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		log.Debugf("File is too large: %v", err)
		rest.WriteError(w, http.StatusBadRequest, "File is too large",
			"Maximum size is 10MB. Please try again with a smaller file.")
		return
	}

	switch Outcome(r.FormValue("outcome")) {
	case OutcomeCancelled:
		h.writeDecline(w, "No receipt selected.")
		return
	case OutcomePermissionDenied:
		h.writeDecline(w, "Storage permission denied. You can add a receipt later.")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	log.Debugf("Uploaded file: %s (%d bytes)", header.Filename, header.Size)

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.service.Store(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, ErrUnsupportedType) {
			rest.WriteError(w, http.StatusBadRequest, "Unsupported file type",
				"Receipts must be an image or a PDF.")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	response := UploadResponseDTO{Attachment: &ledger.AttachmentDTO{
		URI:  stored.LocationRef,
		Type: string(stored.Kind),
		Name: stored.Name,
	}}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Download godoc
// @Summary Download a receipt
// @Tags Attachment
// @Produce image/jpeg
// @Produce application/pdf
// @Success 200 {file} file
// @Failure 404 {string} string "Not found"
// @Router /api/attachment/{ref} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]

	data, kind, err := h.service.Read(ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if kind == ledger.AttachmentPDF {
		w.Header().Set("Content-Type", "application/pdf")
	} else {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) writeDecline(w http.ResponseWriter, message string) {
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(UploadResponseDTO{Message: message})
}

package attachment

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pocketledger/pocketledger/internal/utils"
	"github.com/pocketledger/pocketledger/pkg/ledger"
	log "github.com/sirupsen/logrus"
)

// Service copies receipt files into durable storage and serves them back. The
// ledger never stores file contents, only the reference returned by Store.
type Service interface {
	Store(name string, contentType string, data []byte) (ledger.Attachment, error)
	Read(ref string) ([]byte, ledger.AttachmentKind, error)
}

type ServiceImpl struct {
	dir   string
	clock utils.Clock
}

func NewServiceImpl(dataDir string, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{dir: filepath.Join(dataDir, "attachments"), clock: clock}
}

// Store writes the file under a generated expense_<millis> name. The original
// filename is only kept as display metadata.
func (s *ServiceImpl) Store(name string, contentType string, data []byte) (ledger.Attachment, error) {
	kind, ext, err := classify(name, contentType)
	if err != nil {
		return ledger.Attachment{}, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return ledger.Attachment{}, fmt.Errorf("failed to create attachment dir: %w", err)
	}
	ref := fmt.Sprintf("expense_%d%s", s.clock.Now().UnixMilli(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0644); err != nil {
		return ledger.Attachment{}, fmt.Errorf("failed to store attachment: %w", err)
	}
	log.Debugf("Stored attachment %s (%d bytes)", ref, len(data))

	return ledger.Attachment{
		LocationRef: ref,
		Kind:        kind,
		Name:        name,
	}, nil
}

func (s *ServiceImpl) Read(ref string) ([]byte, ledger.AttachmentKind, error) {
	// refs are generated by Store; reject anything trying to leave the dir
	if ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return nil, "", fmt.Errorf("%w: %q", ErrNotFound, ref)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if os.IsNotExist(err) {
		return nil, "", fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attachment: %w", err)
	}

	kind := ledger.AttachmentImage
	if strings.HasSuffix(ref, ".pdf") {
		kind = ledger.AttachmentPDF
	}
	return data, kind, nil
}

func classify(name string, contentType string) (ledger.AttachmentKind, string, error) {
	switch {
	case contentType == "application/pdf":
		return ledger.AttachmentPDF, ".pdf", nil
	case strings.HasPrefix(contentType, "image/"):
		ext := strings.ToLower(filepath.Ext(name))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
			return ledger.AttachmentImage, ext, nil
		default:
			return ledger.AttachmentImage, ".jpg", nil
		}
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
}

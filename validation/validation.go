package validation

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nijaru/vidsight/errors"
)

const MaxPromptLength = 8000

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// SupportedExtensions lists the accepted file extensions in display order.
var SupportedExtensions = []string{".mp4", ".mov", ".mkv", ".webm"}

type Validator struct {
	MaxUploadSize int64
}

func NewValidator(maxUploadSize int64) *Validator {
	return &Validator{MaxUploadSize: maxUploadSize}
}

// MediaType returns the media type for filename's extension, or "" when
// the extension is not supported.
func MediaType(filename string) string {
	return mediaTypes[strings.ToLower(filepath.Ext(filename))]
}

// ValidateUpload checks an uploaded file's name and size and returns the
// media type to send along with it.
func (v *Validator) ValidateUpload(filename string, size int64) (string, error) {
	const op = "Validator.ValidateUpload"

	if strings.TrimSpace(filename) == "" {
		return "", errors.InvalidInput(op, nil, "filename is required")
	}

	mediaType := MediaType(filename)
	if mediaType == "" {
		return "", errors.InvalidInput(op, nil,
			fmt.Sprintf("unsupported file type %q, expected one of %s",
				filepath.Ext(filename), strings.Join(SupportedExtensions, ", ")))
	}

	if size == 0 {
		return "", errors.MissingInput(op, "uploaded file is empty")
	}
	if v.MaxUploadSize > 0 && size > v.MaxUploadSize {
		return "", errors.E(op, errors.KindInvalidInput, nil,
			fmt.Sprintf("file is too large (%d bytes, limit %d)", size, v.MaxUploadSize),
			http.StatusRequestEntityTooLarge)
	}

	return mediaType, nil
}

func (v *Validator) ValidatePrompt(prompt string) error {
	const op = "Validator.ValidatePrompt"

	if !utf8.ValidString(prompt) {
		return errors.InvalidInput(op, nil, "prompt must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
		return errors.InvalidInput(op, nil,
			fmt.Sprintf("prompt is too long (%d characters, limit %d)", n, MaxPromptLength))
	}
	return nil
}

package audit

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	domain "github.com/bryanwahyu/automaton-audit/internal/domain/audit"
)

// DefaultExtensions are the source-like file types accepted for upload.
var DefaultExtensions = []string{".sol", ".vy", ".txt"}

// InputController owns the two mutually exclusive input modes. It is not
// safe for concurrent use; Session serialises access.
type InputController struct {
	address    string
	fileName   string
	extensions []string
	notify     Notifier
}

func NewInputController(extensions []string, notify Notifier) *InputController {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return &InputController{extensions: exts, notify: notify}
}

func (c *InputController) Address() string  { return c.address }
func (c *InputController) FileName() string { return c.fileName }

// Mode is file when a file is selected, address otherwise.
func (c *InputController) Mode() domain.RequestKind {
	if c.fileName != "" {
		return domain.KindFile
	}
	return domain.KindAddress
}

// SetAddress stores the typed address. A non-empty address drops any
// selected file.
func (c *InputController) SetAddress(text string) {
	c.address = text
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	if c.fileName != "" {
		c.RemoveFile()
	}
	if !common.IsHexAddress(trimmed) {
		c.emit("Address Format",
			fmt.Sprintf("%s does not look like a 20-byte EVM address. It will still be analyzed.", trimmed),
			domain.VariantDefault, 3*time.Second)
	}
}

// SelectFile selects an uploaded file by name and clears the address.
func (c *InputController) SelectFile(name string) error {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		err := &domain.ValidationError{Field: "file", Message: "Please select a file to upload."}
		c.emit("Input Error", err.Message, domain.VariantDestructive, 3*time.Second)
		return err
	}
	if !c.allowed(name) {
		err := &domain.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("%s is not a supported source file (allowed: %s).", name, strings.Join(c.extensions, ", ")),
		}
		c.emit("Input Error", err.Message, domain.VariantDestructive, 3*time.Second)
		return err
	}
	c.fileName = name
	c.address = ""
	c.emit("File Selected", fmt.Sprintf("%s is ready for analysis. Click \"Analyze Contract\".", name),
		domain.VariantDefault, 3*time.Second)
	return nil
}

// RemoveFile drops the selected file, if any.
func (c *InputController) RemoveFile() {
	if c.fileName == "" {
		return
	}
	c.fileName = ""
	c.emit("File Removed", "The selected file has been removed.", domain.VariantDefault, 2*time.Second)
}

// Clear resets both inputs without notifications.
func (c *InputController) Clear() {
	c.address = ""
	c.fileName = ""
}

// Request builds the analysis request for the active mode.
func (c *InputController) Request() (domain.AnalysisRequest, error) {
	var req domain.AnalysisRequest
	if c.Mode() == domain.KindFile {
		req = domain.FileRequest(c.fileName)
	} else {
		req = domain.AddressRequest(c.address)
	}
	if err := req.Validate(); err != nil {
		var msg string
		if ve, ok := err.(*domain.ValidationError); ok {
			msg = ve.Message
		}
		c.emit("Input Error", msg, domain.VariantDestructive, 3*time.Second)
		return domain.AnalysisRequest{}, err
	}
	return req, nil
}

func (c *InputController) allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (c *InputController) emit(title, desc string, v domain.Variant, d time.Duration) {
	if c.notify != nil {
		c.notify.Notify(title, desc, v, d)
	}
}

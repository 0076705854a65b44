package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Yates-Labs/permitdesk/internal/backend"
	"github.com/Yates-Labs/permitdesk/internal/logger"
	"github.com/patrickmn/go-cache"
)

const (
	FileUploadedMessage = "파일이 성공적으로 업로드되었습니다."
	TextUploadedMessage = "문서가 성공적으로 업로드되었습니다."
	DeletedMessage      = "문서가 삭제되었습니다."
	DeleteConfirmPrompt = "정말 삭제하시겠습니까?"
)

const (
	documentsCacheKey        = "documents"
	DefaultDocumentsCacheTTL = 30 * time.Second
)

// ErrDeleteDeclined is returned when the user did not confirm a delete.
var ErrDeleteDeclined = errors.New("delete cancelled")

// DocumentBackend is the document store on the server.
type DocumentBackend interface {
	ListDocuments(ctx context.Context) ([]backend.DocumentInfo, error)
	UploadText(ctx context.Context, filename, content string) (*backend.DocumentInfo, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (*backend.DocumentInfo, error)
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*backend.DocumentContent, error)
	ReloadDocuments(ctx context.Context) (*backend.ReloadResult, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain func to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// UploadMode selects what an UploadRequest sends. Exactly one kind is sent.
type UploadMode string

const (
	UploadText UploadMode = "text"
	UploadFile UploadMode = "file"
)

// UploadRequest is either a text document (Filename + Content) or a file on
// disk (Path). Fields of the other mode are ignored.
type UploadRequest struct {
	Mode     UploadMode `json:"mode" validate:"required,oneof=text file"`
	Filename string     `json:"filename" validate:"required_if=Mode text"`
	Content  string     `json:"content" validate:"required_if=Mode text"`
	Path     string     `json:"path" validate:"required_if=Mode file"`
}

// NewTextUpload builds a text-mode request.
func NewTextUpload(filename, content string) UploadRequest {
	return UploadRequest{Mode: UploadText, Filename: filename, Content: content}
}

// NewFileUpload builds a file-mode request.
func NewFileUpload(path string) UploadRequest {
	return UploadRequest{Mode: UploadFile, Path: path}
}

// DocumentPanel lists, uploads, views and deletes documents. The listing is
// cached briefly and dropped after every mutation.
type DocumentPanel struct {
	backend DocumentBackend
	cache   *cache.Cache
	log     logger.Logger

	ListForm   Form[[]backend.DocumentInfo]
	UploadForm Form[string]
	DeleteForm Form[string]
	ViewForm   Form[*backend.DocumentContent]
	ReloadForm Form[*backend.ReloadResult]
}

func NewDocumentPanel(b DocumentBackend, ttl time.Duration, log logger.Logger) *DocumentPanel {
	if ttl <= 0 {
		ttl = DefaultDocumentsCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentPanel{
		backend: b,
		cache:   cache.New(ttl, 2*ttl),
		log:     log,
	}
}

// Documents returns the listing, from cache when it is fresh.
func (p *DocumentPanel) Documents(ctx context.Context) ([]backend.DocumentInfo, error) {
	if cached, found := p.cache.Get(documentsCacheKey); found {
		docs := cached.([]backend.DocumentInfo)
		p.ListForm.Succeed(docs)
		return docs, nil
	}
	return p.Refresh(ctx)
}

// Refresh always asks the backend for the listing.
func (p *DocumentPanel) Refresh(ctx context.Context) ([]backend.DocumentInfo, error) {
	return submit(ctx, &p.ListForm, func(ctx context.Context) ([]backend.DocumentInfo, error) {
		docs, err := p.backend.ListDocuments(ctx)
		if err != nil {
			return nil, err
		}
		p.cache.Set(documentsCacheKey, docs, cache.DefaultExpiration)
		return docs, nil
	})
}

// Upload uploads req and returns the confirmation message. The listing is
// refreshed afterwards.
func (p *DocumentPanel) Upload(ctx context.Context, req UploadRequest) (string, error) {
	msg, err := submit(ctx, &p.UploadForm, func(ctx context.Context) (string, error) {
		if err := Validate(req); err != nil {
			return "", err
		}
		switch req.Mode {
		case UploadFile:
			return p.uploadFile(ctx, req.Path)
		default:
			if _, err := p.backend.UploadText(ctx, req.Filename, req.Content); err != nil {
				return "", err
			}
			return TextUploadedMessage, nil
		}
	})
	if err != nil {
		return "", err
	}
	p.afterMutation(ctx)
	return msg, nil
}

func (p *DocumentPanel) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := p.backend.UploadFile(ctx, filepath.Base(path), f)
	if err != nil {
		return "", err
	}
	p.log.Info("panel", "file uploaded", map[string]interface{}{
		"path": path,
		"id":   info.ID,
	})
	return FileUploadedMessage, nil
}

// Delete deletes a document after confirm agrees. A declined confirmation
// sends nothing and returns ErrDeleteDeclined.
func (p *DocumentPanel) Delete(ctx context.Context, id string, confirm Confirmer) (string, error) {
	if confirm != nil && !confirm.Confirm(DeleteConfirmPrompt) {
		return "", ErrDeleteDeclined
	}
	msg, err := submit(ctx, &p.DeleteForm, func(ctx context.Context) (string, error) {
		if err := p.backend.DeleteDocument(ctx, id); err != nil {
			return "", err
		}
		return DeletedMessage, nil
	})
	if err != nil {
		return "", err
	}
	p.afterMutation(ctx)
	return msg, nil
}

// View fetches a single document's content.
func (p *DocumentPanel) View(ctx context.Context, id string) (*backend.DocumentContent, error) {
	return submit(ctx, &p.ViewForm, func(ctx context.Context) (*backend.DocumentContent, error) {
		return p.backend.GetDocument(ctx, id)
	})
}

// Reload asks the backend to re-read its document directory.
func (p *DocumentPanel) Reload(ctx context.Context) (*backend.ReloadResult, error) {
	res, err := submit(ctx, &p.ReloadForm, func(ctx context.Context) (*backend.ReloadResult, error) {
		return p.backend.ReloadDocuments(ctx)
	})
	if err != nil {
		return nil, err
	}
	p.afterMutation(ctx)
	return res, nil
}

// afterMutation drops the cached listing and reloads it. A failed reload is
// left on ListForm; the mutation itself already succeeded.
func (p *DocumentPanel) afterMutation(ctx context.Context) {
	p.cache.Delete(documentsCacheKey)
	if _, err := p.Refresh(ctx); err != nil {
		p.log.Warn("panel", "document list refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

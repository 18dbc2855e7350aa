package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories"
	apperrors "dispatch-system/pkg/errors"
	"dispatch-system/pkg/utils"
)

type fakeStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Save(ctx context.Context, file io.Reader, originalFileName, contentType, prefix string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	path := prefix + "/" + originalFileName
	s.files[path] = data
	return path, nil
}

func (s *fakeStorage) Delete(ctx context.Context, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, filePath)
	s.deleted = append(s.deleted, filePath)
	return nil
}

func (s *fakeStorage) URL(filePath string) string {
	return "https://files.local/" + filePath
}

type failingAttachments struct {
	repositories.AttachmentRepositoryInterface
}

func (failingAttachments) Create(ctx context.Context, a *entities.Attachment) error {
	return apperrors.NewStorageError("attachment.create", errors.New("диск переполнен"))
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestAttachment_UploadAndList(t *testing.T) {
	f := newFixture(t)
	f.seedTechnician(t, "T1")
	d := f.createDispatch(t, "09:00", "10:00")
	f.assign(t, d.ID, "T1")

	storage := newFakeStorage()
	svc := NewAttachmentService(f.store.Attachments(), f.store.Dispatches(), storage, authz.NewGatekeeper(), zap.NewNop())

	res, err := svc.Upload(asTechnician("T1"), d.ID, fileHeader(t, "акт.txt", []byte("работы выполнены")), utils.ToPtr("act"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", res.FileType)
	assert.Equal(t, "0.00", res.FileSizeMB)
	assert.Equal(t, "T1", res.UploadedBy)
	assert.Equal(t, "https://files.local/dispatches/"+d.ID+"/акт.txt", res.URL)
	assert.Contains(t, storage.files, "dispatches/"+d.ID+"/акт.txt")

	list, err := svc.ListByDispatch(asDispatcher, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.ID, list[0].ID)
}

func TestAttachment_RejectsUnsupportedType(t *testing.T) {
	f := newFixture(t)
	d := f.createDispatch(t, "09:00", "10:00")
	svc := NewAttachmentService(f.store.Attachments(), f.store.Dispatches(), newFakeStorage(), authz.NewGatekeeper(), zap.NewNop())

	_, err := svc.Upload(asDispatcher, d.ID, fileHeader(t, "page.html", []byte("<html><body>x</body></html>")), nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAttachment_FailedRecordRemovesStoredFile(t *testing.T) {
	f := newFixture(t)
	d := f.createDispatch(t, "09:00", "10:00")
	storage := newFakeStorage()
	svc := NewAttachmentService(failingAttachments{f.store.Attachments()}, f.store.Dispatches(), storage, authz.NewGatekeeper(), zap.NewNop())

	_, err := svc.Upload(asDispatcher, d.ID, fileHeader(t, "notes.txt", []byte("текст")), nil)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Empty(t, storage.files)
	assert.Equal(t, []string{"dispatches/" + d.ID + "/notes.txt"}, storage.deleted)
}

func TestAttachment_ForeignTechnicianIsForbidden(t *testing.T) {
	f := newFixture(t)
	d := f.createDispatch(t, "09:00", "10:00")
	svc := NewAttachmentService(f.store.Attachments(), f.store.Dispatches(), newFakeStorage(), authz.NewGatekeeper(), zap.NewNop())

	_, err := svc.Upload(asTechnician("T9"), d.ID, fileHeader(t, "a.txt", []byte("x")), nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestNote_CreateValidatesContent(t *testing.T) {
	f := newFixture(t)
	d := f.createDispatch(t, "09:00", "10:00")
	svc := NewNoteService(f.store.Notes(), f.store.Dispatches(), authz.NewGatekeeper(), zap.NewNop())

	_, err := svc.Create(asDispatcher, d.ID, dto.CreateNoteDTO{Content: "   "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = svc.Create(asDispatcher, d.ID, dto.CreateNoteDTO{Content: strings.Repeat("я", maxNoteLength+1)})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	n, err := svc.Create(asDispatcher, d.ID, dto.CreateNoteDTO{Content: "  позвонить клиенту  "})
	require.NoError(t, err)
	assert.Equal(t, "позвонить клиенту", n.Content)
	assert.Equal(t, "disp-1", n.CreatedBy)

	notes, err := svc.ListByDispatch(asDispatcher, d.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	_, err = svc.Create(asDispatcher, "missing", dto.CreateNoteDTO{Content: "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

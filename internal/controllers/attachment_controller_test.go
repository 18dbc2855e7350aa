package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/internal/authz"
	"dispatch-system/internal/dto"
	"dispatch-system/internal/entities"
	"dispatch-system/internal/repositories/memory"
	"dispatch-system/internal/services"
	"dispatch-system/pkg/constants"
	"dispatch-system/pkg/filestorage"
	"dispatch-system/pkg/middleware"
	"dispatch-system/pkg/validation"
)

func newAttachmentEcho(t *testing.T, role, actorID string) (*echo.Echo, *memory.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	require.NoError(t, store.Dispatches().Create(context.Background(), nil, &entities.Dispatch{
		ID: "d-1", DispatchNumber: "DSP-1", Status: entities.DispatchAssigned, Priority: entities.PriorityMedium,
		Technicians: []entities.TechnicianAssignment{{DispatchID: "d-1", TechnicianID: "T1", AssignedAt: time.Now()}},
		CreatedAt:   time.Now(), UpdatedAt: time.Now(),
	}))

	fs, err := filestorage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	gk := authz.NewGatekeeper()
	ctrl := NewAttachmentController(
		services.NewAttachmentService(store.Attachments(), store.Dispatches(), fs, gk, logger),
		services.NewNoteService(store.Notes(), store.Dispatches(), gk, logger),
		time.Second, logger,
	)

	e := echo.New()
	e.Validator = validation.New()
	withActor := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(middleware.WithActor(c.Request().Context(), actorID, role)))
			return next(c)
		}
	}
	e.POST("/dispatches/:id/attachments", ctrl.UploadAttachment, withActor)
	e.GET("/dispatches/:id/attachments", ctrl.GetAttachments, withActor)
	e.POST("/dispatches/:id/notes", ctrl.CreateNote, withActor)
	e.GET("/dispatches/:id/notes", ctrl.GetNotes, withActor)
	return e, store
}

func multipartBody(t *testing.T, fileName, content, category string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	if category != "" {
		require.NoError(t, w.WriteField("category", category))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadAttachment_StoresAndLists(t *testing.T) {
	e, _ := newAttachmentEcho(t, constants.RoleTechnician, "T1")

	body, contentType := multipartBody(t, "act.txt", "акт выполненных работ", "report")
	req := httptest.NewRequest(http.MethodPost, "/dispatches/d-1/attachments", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Body dto.AttachmentResponseDTO `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "act.txt", created.Body.FileName)
	assert.True(t, strings.HasPrefix(created.Body.URL, filestorage.LocalPublicPrefix), created.Body.URL)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dispatches/d-1/attachments", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Body struct {
			List []dto.AttachmentResponseDTO `json:"list"`
		} `json:"body"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Body.List, 1)
	assert.Equal(t, created.Body.ID, listed.Body.List[0].ID)
}

func TestUploadAttachment_MissingFileIsBadRequest(t *testing.T) {
	e, _ := newAttachmentEcho(t, constants.RoleTechnician, "T1")

	body, contentType := multipartBody(t, "", "", "report")
	req := httptest.NewRequest(http.MethodPost, "/dispatches/d-1/attachments", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAttachment_ForeignTechnicianForbidden(t *testing.T) {
	e, _ := newAttachmentEcho(t, constants.RoleTechnician, "T9")

	body, contentType := multipartBody(t, "act.txt", "x", "")
	req := httptest.NewRequest(http.MethodPost, "/dispatches/d-1/attachments", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNotes_CreateValidatesAndLists(t *testing.T) {
	e, _ := newAttachmentEcho(t, constants.RoleDispatcher, "disp-1")

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/dispatches/d-1/notes", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"content": ""}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"content": `).Code)
	require.Equal(t, http.StatusCreated, post(`{"content": "клиент просит позвонить за час"}`).Code)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dispatches/missing/notes", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dispatches/d-1/notes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "клиент просит позвонить за час")
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"NoteFM/config"
	"NoteFM/core/bus"
	"NoteFM/core/meta"
	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAttachmentRepo struct {
	created []*model.Attachment
}

func (r *fakeAttachmentRepo) CreateAttachment(att *model.Attachment) error {
	r.created = append(r.created, att)
	return nil
}
func (r *fakeAttachmentRepo) GetAttachmentByID(id string) (*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttachmentRepo) GetAttachmentByFilePath(filePath string) (*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttachmentRepo) GetAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttachmentRepo) GetAudioAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	return nil, nil
}
func (r *fakeAttachmentRepo) UpdateDisplayName(id string, displayName string) error { return nil }
func (r *fakeAttachmentRepo) UpdateObjectKey(id string, objectKey string) error     { return nil }
func (r *fakeAttachmentRepo) UpdateDuration(id string, duration float64) error      { return nil }
func (r *fakeAttachmentRepo) DeleteAttachment(id string) error                      { return nil }

func newUploadTestHandler(t *testing.T) (*APIHandler, *fakeAttachmentRepo) {
	cfg := &config.Config{
		AttachmentDir: t.TempDir(),
		VisibleLimit:  3,
	}
	repo := &fakeAttachmentRepo{}
	h := NewAPIHandler(context.Background(), cfg, nil, repo, nil,
		meta.NewFetcher(nil), bus.NewEditorHub(), nil)
	return h, repo
}

func multipartUpload(t *testing.T, noteID, filename string, content []byte) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if noteID != "" {
		require.NoError(t, writer.WriteField("noteId", noteID))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/attachments", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	ctx := context.WithValue(req.Context(), ctxKeyUserID, int64(7))
	return req.WithContext(ctx)
}

func TestUploadAttachmentParsesMultipartForm(t *testing.T) {
	h, repo := newUploadTestHandler(t)

	req := multipartUpload(t, "42", "notes.txt", []byte("hello"))
	rec := httptest.NewRecorder()
	h.UploadAttachmentHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var att model.Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &att))
	assert.Equal(t, int64(42), att.NoteID)
	assert.Equal(t, int64(7), att.UserID)
	assert.Equal(t, "notes.txt", att.DisplayName)
	assert.False(t, att.IsAudio)
	assert.NotEmpty(t, att.ID)

	require.Len(t, repo.created, 1)

	// 文件已写入暂存目录
	_, err := os.Stat(repo.created[0].FilePath)
	assert.NoError(t, err)
}

func TestUploadAttachmentRejectsMissingNoteID(t *testing.T) {
	h, repo := newUploadTestHandler(t)

	req := multipartUpload(t, "", "notes.txt", []byte("hello"))
	rec := httptest.NewRecorder()
	h.UploadAttachmentHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.created)
}

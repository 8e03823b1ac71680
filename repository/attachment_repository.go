package repository

import (
	"database/sql"
	"fmt"

	"NoteFM/model"
)

// AttachmentRepository defines the interface for attachment data operations.
type AttachmentRepository interface {
	CreateAttachment(att *model.Attachment) error
	GetAttachmentByID(id string) (*model.Attachment, error)
	GetAttachmentByFilePath(filePath string) (*model.Attachment, error)
	GetAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error)
	GetAudioAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error)
	UpdateDisplayName(id string, displayName string) error
	UpdateObjectKey(id string, objectKey string) error
	UpdateDuration(id string, duration float64) error
	DeleteAttachment(id string) error
}

// mysqlAttachmentRepository implements AttachmentRepository for MySQL.
type mysqlAttachmentRepository struct {
	db *sql.DB
}

// NewMySQLAttachmentRepository creates a new mysqlAttachmentRepository.
func NewMySQLAttachmentRepository(db *sql.DB) AttachmentRepository {
	return &mysqlAttachmentRepository{db: db}
}

const attachmentColumns = "id, user_id, note_id, display_name, file_path, object_key, mime_type, size, is_audio, duration, created_at, updated_at"

func scanAttachment(row interface{ Scan(...interface{}) error }) (*model.Attachment, error) {
	att := &model.Attachment{}
	var objectKey sql.NullString
	err := row.Scan(&att.ID, &att.UserID, &att.NoteID, &att.DisplayName, &att.FilePath, &objectKey,
		&att.MimeType, &att.Size, &att.IsAudio, &att.Duration, &att.CreatedAt, &att.UpdatedAt)
	if err != nil {
		return nil, err
	}
	att.ObjectKey = objectKey.String
	return att, nil
}

// CreateAttachment adds a new attachment row keyed by its UUID.
func (r *mysqlAttachmentRepository) CreateAttachment(att *model.Attachment) error {
	query := "INSERT INTO attachments (id, user_id, note_id, display_name, file_path, object_key, mime_type, size, is_audio, duration) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	stmt, err := r.db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare create attachment statement: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(att.ID, att.UserID, att.NoteID, att.DisplayName, att.FilePath,
		att.ObjectKey, att.MimeType, att.Size, att.IsAudio, att.Duration)
	if err != nil {
		return fmt.Errorf("failed to execute create attachment statement: %w", err)
	}
	return nil
}

// GetAttachmentByID retrieves an attachment by its UUID.
func (r *mysqlAttachmentRepository) GetAttachmentByID(id string) (*model.Attachment, error) {
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE id = ?"
	att, err := scanAttachment(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Attachment not found
		}
		return nil, fmt.Errorf("failed to scan attachment row for ID %s: %w", id, err)
	}
	return att, nil
}

// GetAttachmentByFilePath retrieves an attachment by its spool path.
func (r *mysqlAttachmentRepository) GetAttachmentByFilePath(filePath string) (*model.Attachment, error) {
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE file_path = ?"
	att, err := scanAttachment(r.db.QueryRow(query, filePath))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan attachment row for path %s: %w", filePath, err)
	}
	return att, nil
}

// GetAttachmentsByNoteID retrieves all attachments of a note in creation order.
func (r *mysqlAttachmentRepository) GetAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE note_id = ? ORDER BY created_at ASC, id ASC"
	return r.queryAttachments(query, noteID)
}

// GetAudioAttachmentsByNoteID retrieves only the audio attachments of a note in creation order.
func (r *mysqlAttachmentRepository) GetAudioAttachmentsByNoteID(noteID int64) ([]*model.Attachment, error) {
	query := "SELECT " + attachmentColumns + " FROM attachments WHERE note_id = ? AND is_audio = 1 ORDER BY created_at ASC, id ASC"
	return r.queryAttachments(query, noteID)
}

func (r *mysqlAttachmentRepository) queryAttachments(query string, args ...interface{}) ([]*model.Attachment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*model.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		attachments = append(attachments, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return attachments, nil
}

// UpdateDisplayName renames an attachment. The UUID stays stable so player
// state and cached metadata survive the rename.
func (r *mysqlAttachmentRepository) UpdateDisplayName(id string, displayName string) error {
	query := "UPDATE attachments SET display_name = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.Exec(query, displayName, id)
	if err != nil {
		return fmt.Errorf("failed to update attachment display name: %w", err)
	}
	return nil
}

// UpdateObjectKey records the MinIO object key after upload.
func (r *mysqlAttachmentRepository) UpdateObjectKey(id string, objectKey string) error {
	query := "UPDATE attachments SET object_key = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.Exec(query, objectKey, id)
	if err != nil {
		return fmt.Errorf("failed to update attachment object key: %w", err)
	}
	return nil
}

// UpdateDuration records the probed media duration in seconds.
func (r *mysqlAttachmentRepository) UpdateDuration(id string, duration float64) error {
	query := "UPDATE attachments SET duration = ?, updated_at = NOW() WHERE id = ?"
	_, err := r.db.Exec(query, duration, id)
	if err != nil {
		return fmt.Errorf("failed to update attachment duration: %w", err)
	}
	return nil
}

// DeleteAttachment removes an attachment row.
func (r *mysqlAttachmentRepository) DeleteAttachment(id string) error {
	query := "DELETE FROM attachments WHERE id = ?"
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/speechrelay/api/internal/errs"
	"github.com/speechrelay/api/internal/model"
)

// SessionStore owns the three session tables. It is the only component that
// mutates them; everything else passes code strings through its operations.
type SessionStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(db *gorm.DB, log *zap.Logger) *SessionStore {
	return &SessionStore{db: db, log: log}
}

// now returns wall-clock epoch seconds, the timestamp format used across all
// three tables.
func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// CreateTeacherSession inserts a paired session. A uniqueness violation on
// either code is an expected recoverable outcome and returns (false, nil);
// the caller retries with fresh codes.
func (s *SessionStore) CreateTeacherSession(ctx context.Context, teacherCode, studentCode string) (bool, error) {
	ts := now()
	session := model.TeacherSession{
		TeacherCode:  teacherCode,
		StudentCode:  studentCode,
		Created:      ts,
		LastAccessed: ts,
	}

	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create teacher session: %w", err)
	}
	return true, nil
}

// ValidateTeacherSession refreshes last_accessed and reports existence in a
// single UPDATE, so a concurrent expiry sweep cannot remove the row between
// check and refresh.
func (s *SessionStore) ValidateTeacherSession(ctx context.Context, teacherCode string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.TeacherSession{}).
		Where("teacher_code = ?", teacherCode).
		Update("last_accessed", now())
	if res.Error != nil {
		return false, fmt.Errorf("validate teacher session: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ValidateStudentSession resolves the owning teacher, refreshes the teacher's
// last_accessed (a student's activity keeps the classroom alive), and upserts
// the student row. The whole thing is one transaction so a sweep never
// observes a half-refreshed pair.
func (s *SessionStore) ValidateStudentSession(ctx context.Context, studentCode string) (bool, error) {
	ts := now()
	valid := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var teacher model.TeacherSession
		if err := tx.Where("student_code = ?", studentCode).First(&teacher).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Model(&model.TeacherSession{}).
			Where("teacher_code = ?", teacher.TeacherCode).
			Update("last_accessed", ts).Error; err != nil {
			return err
		}

		student := model.StudentSession{
			StudentCode:  studentCode,
			TeacherCode:  teacher.TeacherCode,
			Created:      ts,
			LastAccessed: ts,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_code"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_accessed": ts}),
		}).Create(&student).Error; err != nil {
			return err
		}

		valid = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("validate student session: %w", err)
	}
	return valid, nil
}

// GetSessionCodes returns the session row for a teacher code, or nil when it
// does not exist.
func (s *SessionStore) GetSessionCodes(ctx context.Context, teacherCode string) (*model.TeacherSession, error) {
	var session model.TeacherSession
	err := s.db.WithContext(ctx).Where("teacher_code = ?", teacherCode).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session codes: %w", err)
	}
	return &session, nil
}

// GetTeacherCodeForStudent returns the owning teacher code, or "" when the
// student code is unknown.
func (s *SessionStore) GetTeacherCodeForStudent(ctx context.Context, studentCode string) (string, error) {
	var session model.TeacherSession
	err := s.db.WithContext(ctx).Where("student_code = ?", studentCode).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get teacher code for student: %w", err)
	}
	return session.TeacherCode, nil
}

// StoreTranscriptEntry appends one processed utterance and returns its ID.
// Callers treat failure as best-effort relative to the real-time result.
func (s *SessionStore) StoreTranscriptEntry(ctx context.Context, teacherCode, transcription, translation string) (int64, error) {
	entry := model.TranscriptEntry{
		TeacherCode:   teacherCode,
		Transcription: transcription,
		Translation:   translation,
		Timestamp:     now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return 0, errs.Wrap(errs.KindPersistence, err, "store transcript entry")
	}
	return entry.ID, nil
}

// AttachWordTimings backfills the word-timing payload on an already-stored
// entry once synthesis has produced it. Best-effort, like the insert.
func (s *SessionStore) AttachWordTimings(ctx context.Context, entryID int64, timings []byte) error {
	err := s.db.WithContext(ctx).
		Model(&model.TranscriptEntry{}).
		Where("id = ?", entryID).
		Update("word_timings", timings).Error
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "attach word timings")
	}
	return nil
}

// GetTranscript returns all entries for a teacher session in insertion order.
func (s *SessionStore) GetTranscript(ctx context.Context, teacherCode string) ([]model.TranscriptEntry, error) {
	var entries []model.TranscriptEntry
	err := s.db.WithContext(ctx).
		Where("teacher_code = ?", teacherCode).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return entries, nil
}

// ClearTranscript removes every entry for a teacher session.
func (s *SessionStore) ClearTranscript(ctx context.Context, teacherCode string) error {
	err := s.db.WithContext(ctx).
		Where("teacher_code = ?", teacherCode).
		Delete(&model.TranscriptEntry{}).Error
	if err != nil {
		return errs.Wrap(errs.KindPersistence, err, "clear transcript")
	}
	return nil
}

// SweepExpired removes every teacher session idle longer than expiry, along
// with its transcript entries and student rows. Children are deleted before
// parents inside one transaction so readers never observe a dangling
// reference. Returns the number of teacher sessions removed.
func (s *SessionStore) SweepExpired(ctx context.Context, expiry time.Duration) (int64, error) {
	threshold := now() - expiry.Seconds()
	var removed int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&model.TeacherSession{}).
			Select("teacher_code").
			Where("last_accessed < ?", threshold)

		if err := tx.Where("teacher_code IN (?)", expired).
			Delete(&model.TranscriptEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("teacher_code IN (?)", expired).
			Delete(&model.StudentSession{}).Error; err != nil {
			return err
		}

		res := tx.Where("last_accessed < ?", threshold).Delete(&model.TeacherSession{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	return removed, nil
}

// isUniqueViolation recognizes a uniqueness constraint failure from either
// backend: gorm's translated sentinel, postgres error code 23505, or the
// sqlite constraint message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

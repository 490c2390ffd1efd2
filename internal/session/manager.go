package session

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/speechrelay/api/internal/errs"
	"github.com/speechrelay/api/internal/middleware"
	"github.com/speechrelay/api/internal/model"
	"github.com/speechrelay/api/internal/store"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the pairing code length. 36^6 codes make an accidental
// collision astronomically unlikely at classroom scale.
const CodeLength = 6

// maxCreateAttempts bounds code-generation retries. Exhausting them means
// the store is misbehaving, not bad luck.
const maxCreateAttempts = 5

// Manager generates pairing codes, orchestrates session creation, and runs
// the eager expiry sweep in front of every validation. Sweeping on the
// validation path instead of a timer keeps correctness independent of any
// background scheduler; validations are human-paced, so the cost is fine.
type Manager struct {
	store  *store.SessionStore
	expiry time.Duration
	log    *zap.Logger

	// genCode is swappable so collision handling is testable.
	genCode func(length int) string
}

func NewManager(st *store.SessionStore, expiry time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		store:   st,
		expiry:  expiry,
		log:     log,
		genCode: GenerateCode,
	}
}

// GenerateCode returns a uniformly random uppercase alphanumeric code.
func GenerateCode(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// CreateTeacherSession generates a fresh teacher/student code pair and
// inserts it, retrying on uniqueness collisions up to maxCreateAttempts.
func (m *Manager) CreateTeacherSession(ctx context.Context) (teacherCode, studentCode string, err error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		teacherCode = m.genCode(CodeLength)
		studentCode = m.genCode(CodeLength)

		created, err := m.store.CreateTeacherSession(ctx, teacherCode, studentCode)
		if err != nil {
			return "", "", err
		}
		if created {
			middleware.RecordSessionCreated()
			return teacherCode, studentCode, nil
		}
		m.log.Warn("pairing code collision, regenerating",
			zap.Int("attempt", attempt+1))
	}
	return "", "", errs.New(errs.KindDuplicateCode,
		"failed to create unique session after %d attempts", maxCreateAttempts)
}

// ValidateTeacherSession sweeps expired sessions, then atomically refreshes
// and checks the teacher session.
func (m *Manager) ValidateTeacherSession(ctx context.Context, teacherCode string) (bool, error) {
	m.sweep(ctx)
	return m.store.ValidateTeacherSession(ctx, teacherCode)
}

// ValidateStudentSession sweeps expired sessions, then refreshes the owning
// teacher and upserts the student row.
func (m *Manager) ValidateStudentSession(ctx context.Context, studentCode string) (bool, error) {
	m.sweep(ctx)
	return m.store.ValidateStudentSession(ctx, studentCode)
}

// GetSessionCodes returns the code pair for a teacher session, nil if absent.
func (m *Manager) GetSessionCodes(ctx context.Context, teacherCode string) (*model.TeacherSession, error) {
	return m.store.GetSessionCodes(ctx, teacherCode)
}

// Expiry reports the configured idle window.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// sweep runs the expiry pass. A failed sweep is logged and does not block
// the validation that triggered it.
func (m *Manager) sweep(ctx context.Context) {
	removed, err := m.store.SweepExpired(ctx, m.expiry)
	if err != nil {
		m.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		middleware.RecordSessionsSwept(removed)
		m.log.Info("swept expired sessions", zap.Int64("removed", removed))
	}
}

package session

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/speechrelay/api/internal/errs"
	"github.com/speechrelay/api/internal/model"
	"github.com/speechrelay/api/internal/store"
)

func newTestManager(t *testing.T, expiry time.Duration) *Manager {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.TeacherSession{}, &model.StudentSession{}, &model.TranscriptEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewManager(store.New(db, zap.NewNop()), expiry, zap.NewNop())
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode(CodeLength)
	if len(code) != CodeLength {
		t.Fatalf("expected %d characters, got %d", CodeLength, len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("unexpected character %q in code %q", r, code)
		}
	}
}

func TestCreateTeacherSession(t *testing.T) {
	m := newTestManager(t, 2*time.Hour)

	teacherCode, studentCode, err := m.CreateTeacherSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teacherCode) != CodeLength || len(studentCode) != CodeLength {
		t.Fatalf("unexpected code lengths: %q / %q", teacherCode, studentCode)
	}
	if teacherCode == studentCode {
		t.Fatal("teacher and student codes should differ")
	}

	codes, err := m.GetSessionCodes(context.Background(), teacherCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codes == nil || codes.StudentCode != studentCode {
		t.Fatalf("expected stored pair %s/%s, got %+v", teacherCode, studentCode, codes)
	}
}

func TestCreateTeacherSession_ConcurrentUniqueness(t *testing.T) {
	m := newTestManager(t, 2*time.Hour)

	const n = 1000
	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := make(map[string]bool, 2*n)
	errCh := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			teacherCode, studentCode, err := m.CreateTeacherSession(context.Background())
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if codes[teacherCode] {
				t.Errorf("duplicate teacher code %q", teacherCode)
			}
			if codes[studentCode] {
				t.Errorf("duplicate student code %q", studentCode)
			}
			codes[teacherCode] = true
			codes[studentCode] = true
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("unexpected creation error: %v", err)
	}
	if len(codes) != 2*n {
		t.Fatalf("expected %d distinct codes, got %d", 2*n, len(codes))
	}
}

func TestCreateTeacherSession_BoundedRetries(t *testing.T) {
	m := newTestManager(t, 2*time.Hour)
	ctx := context.Background()

	// Occupy the fixed code, then force the generator to keep returning it.
	if created, err := m.store.CreateTeacherSession(ctx, "FIXED1", "FIXED2"); err != nil || !created {
		t.Fatalf("failed to seed fixed session: created=%v err=%v", created, err)
	}
	m.genCode = func(int) string { return "FIXED1" }

	_, _, err := m.CreateTeacherSession(ctx)
	if err == nil {
		t.Fatal("expected bounded-retry failure")
	}
	if errs.KindOf(err) != errs.KindDuplicateCode {
		t.Fatalf("expected KindDuplicateCode, got %v", errs.KindOf(err))
	}
}

func TestValidateTeacherSession_SweepsBeforeValidating(t *testing.T) {
	// Zero expiry means every existing row is already past the threshold
	// when the eager sweep runs.
	m := newTestManager(t, 0)
	ctx := context.Background()

	teacherCode, _, err := m.CreateTeacherSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	valid, err := m.ValidateTeacherSession(ctx, teacherCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if valid {
		t.Fatal("expected expired session to be swept before validation")
	}
}

func TestValidateTeacherSession_WithinExpiry(t *testing.T) {
	m := newTestManager(t, 2*time.Hour)
	ctx := context.Background()

	teacherCode, studentCode, err := m.CreateTeacherSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	valid, err := m.ValidateTeacherSession(ctx, teacherCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Fatal("expected live session to validate")
	}

	valid, err = m.ValidateStudentSession(ctx, studentCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !valid {
		t.Fatal("expected student code to validate")
	}
}

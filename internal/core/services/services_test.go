package services

import (
	"context"
	"path/filepath"
	"testing"

	"registryhub/internal/adapters/persistence/models"
	"registryhub/internal/adapters/persistence/repositories"
	"registryhub/internal/config"
	"registryhub/internal/core/domain"
	"registryhub/internal/pkg/password"
	"registryhub/internal/pkg/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires real repositories and services on a throwaway sqlite
// file, one per test
type testEnv struct {
	db    *gorm.DB
	store *storage.LocalStore

	users   repositories.UserRepository
	docs    *repositories.DocumentRepository
	history *repositories.HistoryRepository
	verif   *repositories.VerificationRepository

	docService   *DocumentService
	fieldService *FieldService
	verifService *VerificationService
}

const testMaxUpload = 1 << 20 // 1MB keeps the too-large case cheap

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	env := &testEnv{
		db:      db,
		store:   store,
		users:   repositories.NewUserRepository(db),
		docs:    repositories.NewDocumentRepository(db),
		history: repositories.NewHistoryRepository(db),
		verif:   repositories.NewVerificationRepository(db),
	}
	env.docService = NewDocumentService(env.docs, env.history, env.users, store, testMaxUpload)
	env.fieldService = NewFieldService(db, env.docs, env.history, env.users, NewMockExtractor(0))
	env.verifService = NewVerificationService(env.verif, env.docs, env.history, env.users)
	return env
}

// createUser inserts a user directly. The password is only hashed when
// a test actually needs to log in.
func (e *testEnv) createUser(t *testing.T, username string, role domain.Role, bureaus ...string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Password: "not-a-real-hash",
		Role:     string(role),
		IsActive: true,
	}
	require.NoError(t, e.db.Create(user).Error)

	for _, bureau := range bureaus {
		require.NoError(t, e.db.Create(&models.SupervisorBureau{
			UserID: user.ID,
			Bureau: bureau,
		}).Error)
	}

	loaded, err := e.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	return loaded
}

func (e *testEnv) createLoginUser(t *testing.T, username string, role domain.Role, plaintext string) *models.User {
	t.Helper()

	hashed, err := password.Hash(plaintext)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Password: hashed,
		Role:     string(role),
		IsActive: true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func testUploadInput(bureau, registreType string, year int, acte string) *UploadInput {
	return &UploadInput{
		Bureau:         bureau,
		RegistreType:   registreType,
		Year:           year,
		RegistreNumber: "12",
		ActeNumber:     acte,
		ContentType:    "image/png",
		Data:           []byte("fake png payload"),
	}
}

// uploadDocument uploads one document as the given agent
func (e *testEnv) uploadDocument(t *testing.T, agent *models.User, bureau, registreType string, year int, acte string) *models.Document {
	t.Helper()

	doc, err := e.docService.Upload(context.Background(), testUploadInput(bureau, registreType, year, acte), agent.ID)
	require.NoError(t, err)
	return doc
}

// storedDocument drives a fresh upload through review and approval
func (e *testEnv) storedDocument(t *testing.T, agent, reviewer *models.User, bureau string, year int, acte string) *models.Document {
	t.Helper()
	ctx := context.Background()

	doc := e.uploadDocument(t, agent, bureau, string(domain.RegistreNaissances), year, acte)
	_, err := e.docService.StartReview(ctx, doc.ID, reviewer.ID)
	require.NoError(t, err)
	doc, err = e.docService.Approve(ctx, doc.ID, reviewer.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusStored), doc.Status)
	return doc
}

func testAuthConfig() *config.Config {
	return &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
}

func (e *testEnv) authService() *AuthService {
	return NewAuthService(
		e.users,
		repositories.NewRefreshTokenRepository(e.db),
		repositories.NewSessionRepository(e.db),
		e.history,
		testAuthConfig(),
	)
}

// countRows is a small assertion helper on raw tables
func (e *testEnv) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&count).Error)
	return count
}

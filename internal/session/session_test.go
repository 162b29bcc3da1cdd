package session_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nkovachev/dbdeck/internal/session"
	"github.com/nkovachev/dbdeck/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(t *testing.T) *models.User {
	t.Helper()
	return &models.User{
		ID:        uuid.New(),
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// signedToken mints a JWT expiring at exp, signed with a throwaway key.
// The client never verifies signatures, only reads the exp claim.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice@example.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// --- Session invariant ---

func TestSession_AuthenticatedInvariant(t *testing.T) {
	u := testUser(t)

	assert.False(t, session.Session{}.Authenticated())
	assert.False(t, session.Session{User: u}.Authenticated())
	assert.False(t, session.Session{Token: "tok"}.Authenticated())
	assert.True(t, session.Session{User: u, Token: "tok"}.Authenticated())
}

func TestStore_SetThenClear(t *testing.T) {
	st := session.NewStore(session.NewMemoryStorage())
	u := testUser(t)

	require.NoError(t, st.Set(u, "tok-123"))
	assert.True(t, st.Authenticated())
	assert.Equal(t, "tok-123", st.Token())
	assert.Equal(t, u.Email, st.Current().User.Email)

	require.NoError(t, st.Clear())
	assert.False(t, st.Authenticated())
	assert.Empty(t, st.Token())
	assert.Nil(t, st.Current().User)
}

func TestStore_SetRequiresBoth(t *testing.T) {
	st := session.NewStore(session.NewMemoryStorage())

	require.Error(t, st.Set(nil, "tok"))
	require.Error(t, st.Set(testUser(t), ""))
	assert.False(t, st.Authenticated())
}

// --- Restore ---

func TestStore_RestoreRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	u := testUser(t)

	storage, err := session.NewFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, session.NewStore(storage).Set(u, "tok-abc"))

	// Fresh process: reopen the file and restore.
	storage2, err := session.NewFileStorage(path)
	require.NoError(t, err)
	st := session.NewStore(storage2)
	st.Restore()

	require.True(t, st.Authenticated())
	assert.Equal(t, "tok-abc", st.Token())
	assert.Equal(t, u.ID, st.Current().User.ID)
	assert.Equal(t, u.Email, st.Current().User.Email)
}

func TestStore_RestoreIdempotent(t *testing.T) {
	storage := session.NewMemoryStorage()
	require.NoError(t, session.NewStore(storage).Set(testUser(t), "tok"))

	st := session.NewStore(storage)
	st.Restore()
	first := st.Current()
	st.Restore()
	second := st.Current()

	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.True(t, second.Authenticated())
}

func TestStore_RestoreEmptyStorage(t *testing.T) {
	st := session.NewStore(session.NewMemoryStorage())
	st.Restore()
	assert.False(t, st.Authenticated())
}

func TestStore_RestorePartialPair(t *testing.T) {
	onlyToken := session.NewMemoryStorage()
	require.NoError(t, onlyToken.Put(map[string]string{"token": "tok"}))
	st := session.NewStore(onlyToken)
	st.Restore()
	assert.False(t, st.Authenticated())

	onlyUser := session.NewMemoryStorage()
	require.NoError(t, onlyUser.Put(map[string]string{"user": `{"email":"a@b.c"}`}))
	st = session.NewStore(onlyUser)
	st.Restore()
	assert.False(t, st.Authenticated())
}

func TestStore_RestoreCorruptUserRecord(t *testing.T) {
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Put(map[string]string{
		"user":  "{not json",
		"token": "tok",
	}))

	st := session.NewStore(storage)
	st.Restore()
	assert.False(t, st.Authenticated())
}

func TestStore_RestoreExpiredJWT(t *testing.T) {
	storage := session.NewMemoryStorage()
	u := testUser(t)
	require.NoError(t, session.NewStore(storage).Set(u, signedToken(t, time.Now().Add(-time.Hour))))

	st := session.NewStore(storage)
	st.Restore()
	assert.False(t, st.Authenticated())
}

func TestStore_RestoreLiveJWT(t *testing.T) {
	storage := session.NewMemoryStorage()
	require.NoError(t, session.NewStore(storage).Set(testUser(t), signedToken(t, time.Now().Add(time.Hour))))

	st := session.NewStore(storage)
	st.Restore()
	assert.True(t, st.Authenticated())
}

func TestStore_RestoreOpaqueToken(t *testing.T) {
	storage := session.NewMemoryStorage()
	require.NoError(t, session.NewStore(storage).Set(testUser(t), "tok-opaque-not-a-jwt"))

	st := session.NewStore(storage)
	st.Restore()
	assert.True(t, st.Authenticated())
}

// --- File storage ---

func TestFileStorage_PersistsBothKeysTogether(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	storage, err := session.NewFileStorage(path)
	require.NoError(t, err)

	require.NoError(t, session.NewStore(storage).Set(testUser(t), "tok"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "user")
	assert.Contains(t, doc, "token")
}

func TestFileStorage_ClearRemovesDurableState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	storage, err := session.NewFileStorage(path)
	require.NoError(t, err)

	st := session.NewStore(storage)
	require.NoError(t, st.Set(testUser(t), "tok"))
	require.NoError(t, st.Clear())

	storage2, err := session.NewFileStorage(path)
	require.NoError(t, err)
	_, hasUser := storage2.Get("user")
	_, hasToken := storage2.Get("token")
	assert.False(t, hasUser)
	assert.False(t, hasToken)
}

func TestFileStorage_CorruptFileTolerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	storage, err := session.NewFileStorage(path)
	require.NoError(t, err)
	_, ok := storage.Get("token")
	assert.False(t, ok)
}

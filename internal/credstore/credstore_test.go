package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "credentials.json"), nil)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	expiry := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	cred := &Credential{
		AccessToken: "tok-abc",
		OwnerID:     "user-1",
		DisplayName: "Maja",
		Expiry:      expiry,
	}
	require.NoError(t, s.Save(cred))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "tok-abc", loaded.AccessToken)
	assert.Equal(t, "user-1", loaded.OwnerID)
	assert.Equal(t, "Maja", loaded.DisplayName)
	assert.True(t, expiry.Equal(loaded.Expiry))
}

func TestLoad_MissingFileMeansLoggedOut(t *testing.T) {
	s := newTestStore(t)

	cred, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("not json"), FilePerms))

	_, err := s.Load()
	assert.Error(t, err)
}

func TestLoad_MissingTokenField(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte(`{"meta":{}}`), FilePerms))

	_, err := s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-login required")
}

func TestSave_FilePermissions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&Credential{AccessToken: "t"}))

	info, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())
}

func TestSave_OverwritesPrevious(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&Credential{AccessToken: "old", OwnerID: "u"}))
	require.NoError(t, s.Save(&Credential{AccessToken: "new", OwnerID: "u"}))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.AccessToken)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save(&Credential{AccessToken: "t"}))
	require.NoError(t, s.Clear())

	cred, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, cred)

	// Clearing twice is not an error.
	require.NoError(t, s.Clear())
}

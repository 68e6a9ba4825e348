package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/store/badgerdb"
)

// run executes shelfctl with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		keyOutput = ""
		seedOwner = ""
		dataPath = ""
		backend = ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}\n$`), out)
}

func TestKeygen_WritesFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing.key")

	_, err := run(t, "keygen", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}\n$`), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, "keygen", "--output", path)
	require.Error(t, err)

	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func createOwner(t *testing.T, dir, email string) {
	t.Helper()

	st, err := badgerdb.New(filepath.Join(dir, "badger"), nil)
	require.NoError(t, err)
	defer st.Close()

	userID, err := id.Generate(id.PrefixUser)
	require.NoError(t, err)
	user := &domain.User{
		Timestamps:   domain.Timestamps{ID: userID},
		Email:        email,
		Name:         "Admin",
		PasswordHash: "unused",
	}
	user.InitTimestamps()
	require.NoError(t, st.CreateUser(context.Background(), user))
}

func TestSeedAndReindex(t *testing.T) {
	dir := t.TempDir()
	createOwner(t, dir, "admin@example.com")
	seedFile := filepath.Join("..", "..", "..", "testdata", "books.json")

	out, err := run(t, "seed", seedFile, "--owner", "admin@example.com", "--data-path", dir, "--store", "badger")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Seeded 5 books, skipped 0")

	out, err = run(t, "seed", seedFile, "--owner", "admin@example.com", "--data-path", dir, "--store", "badger")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Seeded 0 books, skipped 5")

	out, err = run(t, "reindex", "--data-path", dir, "--store", "badger")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Indexed 5 books")
}

func TestSeed_UnknownOwner(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join("..", "..", "..", "testdata", "books.json")

	_, err := run(t, "seed", seedFile, "--owner", "nobody@example.com", "--data-path", dir, "--store", "badger")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register it first")
}

//go:build !integration

// internal/sessionstore/store_test.go
package sessionstore_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/internal/sessionstore"
)

func TestSiteIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want string
	}{
		{"https://linear.app/acme/team/ENG/all", "linear"},
		{"https://www.notion.so/workspace", "notion"},
		{"https://LINEAR.APP/", "linear"},
		{"https://google.com", "default"},
		{"https://example.com/linear.app.html", "linear"},
		{"", "default"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sessionstore.SiteIdentity(tc.url), tc.url)
	}
}

func TestStore_LoadAbsentIsNotAnError(t *testing.T) {
	t.Parallel()

	store := sessionstore.New(t.TempDir(), zap.NewNop())
	st, err := store.Load("linear")

	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := sessionstore.New(dir, zap.NewNop())

	in := &sessionstore.State{
		Cookies: []sessionstore.Cookie{
			{Name: "sid", Value: "abc", Domain: ".linear.app", Path: "/", Expires: 1893456000, HTTPOnly: true, Secure: true, SameSite: "Lax"},
			{Name: "pref", Value: "dark", Domain: ".linear.app", Path: "/"},
		},
		LocalStorage: map[string]string{"theme": "dark"},
		Origin:       "https://linear.app",
	}
	require.NoError(t, store.Save("linear", in))

	out, err := store.Load("linear")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.False(t, out.SavedAt.IsZero(), "save stamps the state")

	if diff := cmp.Diff(in, out, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("state round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestStore_SavesArePerSite(t *testing.T) {
	t.Parallel()

	store := sessionstore.New(t.TempDir(), zap.NewNop())
	require.NoError(t, store.Save("linear", &sessionstore.State{Origin: "https://linear.app"}))
	require.NoError(t, store.Save("notion", &sessionstore.State{Origin: "https://www.notion.so"}))

	linear, err := store.Load("linear")
	require.NoError(t, err)
	notion, err := store.Load("notion")
	require.NoError(t, err)

	assert.Equal(t, "https://linear.app", linear.Origin)
	assert.Equal(t, "https://www.notion.so", notion.Origin)
}

func TestStore_LoadCorruptFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "linear_state.json"), []byte("{not json"), 0o600))

	store := sessionstore.New(dir, zap.NewNop())
	st, err := store.Load("linear")

	require.Error(t, err, "a corrupt state file must not be mistaken for an absent one")
	assert.Nil(t, st)
}

func TestStore_RejectsNilState(t *testing.T) {
	t.Parallel()

	store := sessionstore.New(t.TempDir(), zap.NewNop())
	assert.Error(t, store.Save("linear", nil))
}

func TestStore_StateFileIsOwnerOnly(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	dir := t.TempDir()
	store := sessionstore.New(dir, zap.NewNop())
	require.NoError(t, store.Save("linear", &sessionstore.State{}))

	info, err := os.Stat(filepath.Join(dir, "linear_state.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/weatherdash/internal/client/client"
	"github.com/dmitrijs2005/weatherdash/internal/client/config"
	"github.com/dmitrijs2005/weatherdash/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	err      error
	token    string
	closed   bool
	gotEmail string
	gotPass  string
	gotFirst string
}

var ada = client.Profile{ID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}

func (f *fakeAccounts) Register(_ context.Context, first, _, email string, pw []byte) (*client.Session, error) {
	f.gotFirst, f.gotEmail, f.gotPass = first, email, string(pw)
	if f.err != nil {
		return nil, f.err
	}
	return &client.Session{Token: "tok-reg", Profile: ada, Message: common.MessageSignupSuccessful}, nil
}

func (f *fakeAccounts) Login(_ context.Context, email string, pw []byte) (*client.Session, error) {
	f.gotEmail, f.gotPass = email, string(pw)
	if f.err != nil {
		return nil, f.err
	}
	return &client.Session{Token: "tok-login", Profile: ada}, nil
}

func (f *fakeAccounts) WhoAmI(context.Context) (*client.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := ada
	return &p, nil
}

func (f *fakeAccounts) SetToken(token string) { f.token = token }
func (f *fakeAccounts) Close() error         { f.closed = true; return nil }

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

// run executes the CLI with a temp token file and returns stdout.
func run(t *testing.T, f *fakeAccounts, tokenFile, stdin string, args ...string) (string, error) {
	t.Helper()
	dial := func(*config.Config) (Accounts, error) { return f, nil }
	root := NewRootCmd(dial, "test")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--token_file", tokenFile))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readToken(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func TestRegister_PromptsAndSavesToken(t *testing.T) {
	stubPassword(t, "analytical")
	tokenFile := filepath.Join(t.TempDir(), "token")
	f := &fakeAccounts{}

	out, err := run(t, f, tokenFile, "Ada\nLovelace\nada@example.com\n", "register")
	require.NoError(t, err)

	assert.Equal(t, "Ada", f.gotFirst)
	assert.Equal(t, "ada@example.com", f.gotEmail)
	assert.Equal(t, "analytical", f.gotPass)
	assert.True(t, f.closed)
	assert.Contains(t, out, common.MessageSignupSuccessful)
	assert.Contains(t, out, "Logged in as Ada Lovelace <ada@example.com>")
	assert.Equal(t, "tok-reg", readToken(t, tokenFile))
}

func TestRegister_Exists(t *testing.T) {
	stubPassword(t, "analytical")
	tokenFile := filepath.Join(t.TempDir(), "token")

	_, err := run(t, &fakeAccounts{err: client.ErrAccountExists}, tokenFile, "",
		"register", "--first", "Ada", "--last", "Lovelace", "-e", "ada@example.com")
	require.EqualError(t, err, common.MessageAccountExists)

	_, statErr := os.Stat(tokenFile)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestLogin(t *testing.T) {
	stubPassword(t, "analytical")
	tokenFile := filepath.Join(t.TempDir(), "token")
	f := &fakeAccounts{}

	_, err := run(t, f, tokenFile, "", "login", "-e", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok-login", readToken(t, tokenFile))
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{client.ErrInvalidCredentials, common.MessageInvalidCredentials},
		{client.ErrUnavailable, "server unavailable"},
		{errors.New("boom"), common.MessageServerError + ": boom"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			stubPassword(t, "x")
			_, err := run(t, &fakeAccounts{err: tt.err}, filepath.Join(t.TempDir(), "token"), "", "login", "-e", "a@b.c")
			require.EqualError(t, err, tt.want)
		})
	}
}

func TestWhoAmI(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("saved\n"), 0o600))
	f := &fakeAccounts{}

	out, err := run(t, f, tokenFile, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "saved", f.token)
	assert.Contains(t, out, "Email: ada@example.com")
}

func TestWhoAmI_NotLoggedIn(t *testing.T) {
	_, err := run(t, &fakeAccounts{}, filepath.Join(t.TempDir(), "token"), "", "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestWhoAmI_RejectedClearsToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("stale"), 0o600))

	_, err := run(t, &fakeAccounts{err: client.ErrUnauthenticated}, tokenFile, "", "whoami")
	require.ErrorContains(t, err, "not logged in")

	_, statErr := os.Stat(tokenFile)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestLogout(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("saved"), 0o600))

	out, err := run(t, &fakeAccounts{}, tokenFile, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, statErr := os.Stat(tokenFile)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestDialError(t *testing.T) {
	stubPassword(t, "x")
	root := NewRootCmd(func(*config.Config) (Accounts, error) { return nil, errors.New("no route") }, "test")
	root.SetOut(io.Discard)
	root.SetArgs([]string{"login", "-e", "a@b.c", "--token_file", filepath.Join(t.TempDir(), "t")})

	require.EqualError(t, root.Execute(), "no route")
}

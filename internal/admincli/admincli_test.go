package admincli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/bulletinkeeper/internal/cryptox"
	"github.com/dmitrijs2005/bulletinkeeper/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPassphrase(t *testing.T, pw string, err error) {
	t.Helper()
	old := newPassphrase
	t.Cleanup(func() { newPassphrase = old })
	newPassphrase = func(io.Writer) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		return []byte(pw), nil
	}
}

func TestKeygen_WritesReadableKeyPair(t *testing.T) {
	stubPassphrase(t, "pw", nil)
	path := filepath.Join(t.TempDir(), "keypair.dat")

	var out, errOut bytes.Buffer
	require.Equal(t, 0, Run([]string{"keygen", "-o", path}, &out, &errOut), errOut.String())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sec, err := cryptox.ReadKeyPair(f, []byte("pw"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "account: "+sec.AccountID())
	code, err := cryptox.PublicCode(sec.AccountID())
	require.NoError(t, err)
	assert.Contains(t, out.String(), code)
}

func TestKeygen_RefusesToOverwrite(t *testing.T) {
	stubPassphrase(t, "pw", nil)
	path := filepath.Join(t.TempDir(), "keypair.dat")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0o600))

	assert.Equal(t, 1, Run([]string{"keygen", "-o", path}, io.Discard, io.Discard))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(b))
}

func TestKeygen_PassphraseError(t *testing.T) {
	stubPassphrase(t, "", errors.New("mismatch"))
	path := filepath.Join(t.TempDir(), "keypair.dat")

	var errOut bytes.Buffer
	assert.Equal(t, 1, Run([]string{"keygen", "-o", path}, io.Discard, &errOut))
	assert.Contains(t, errOut.String(), "mismatch")
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestToken(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, 0, Run([]string{"token", "-s", "k", "-n", "alice", "-t", "5"}, &out, io.Discard))

	op, err := auth.OperatorFromToken(strings.TrimSpace(out.String()), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "alice", op)

	assert.Equal(t, 1, Run([]string{"token"}, io.Discard, io.Discard), "secret is required")
}

func TestPublicCodeAndUsage(t *testing.T) {
	sec, err := cryptox.GenerateSecurity()
	require.NoError(t, err)
	want, err := cryptox.PublicCode(sec.AccountID())
	require.NoError(t, err)

	var out bytes.Buffer
	require.Equal(t, 0, Run([]string{"publiccode", sec.AccountID()}, &out, io.Discard))
	assert.Equal(t, want+"\n", out.String())

	assert.Equal(t, 2, Run(nil, io.Discard, io.Discard))
	assert.Equal(t, 1, Run([]string{"frobnicate"}, io.Discard, io.Discard))
}

package validator

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/inverton/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootsCheck(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	inside := filepath.Join(root, "notes", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(inside), 0o755))
	require.NoError(t, os.WriteFile(inside, []byte("kept"), 0o644))
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("private"), 0o600))
	link := filepath.Join(root, "escape.txt")
	require.NoError(t, os.Symlink(secret, link))
	sibling := filepath.Join(root+"-other", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(sibling), 0o755))
	require.NoError(t, os.WriteFile(sibling, []byte("near miss"), 0o644))

	roots, err := NewRoots([]string{root})
	require.NoError(t, err)

	got, err := roots.Check(inside)
	require.NoError(t, err)
	assert.Equal(t, inside, got)

	for name, path := range map[string]string{
		"outside": secret,
		"dot-dot": filepath.Join(root, "..", filepath.Base(outside), "secret.txt"),
		"symlink": link,
		"missing": filepath.Join(root, "nope.txt"),
		"etc":     "/etc/shadow",
		"sibling": sibling,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := roots.Check(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrPathNotAllowed)
			assert.Equal(t, 403, apperrors.HTTPStatusCode(err))
		})
	}
}

func TestEmptyRootsAllowNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	roots, err := NewRoots(nil)
	require.NoError(t, err)
	_, err = roots.Check(path)
	assert.ErrorContains(t, err, "no index roots configured")

	var zero *Roots
	_, err = zero.Check(path)
	assert.ErrorIs(t, err, apperrors.ErrPathNotAllowed)
}

func TestNewRootsRejectsBadDirs(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewRoots([]string{file})
	assert.ErrorContains(t, err, "not a directory")

	_, err = NewRoots([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

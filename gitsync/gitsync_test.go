package gitsync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	sync := Detect(filepath.Join(dir, "out.json"), nil)
	assert.Nil(t, sync, "non-repo directory should disable gitsync")
}

func TestDetectInsideRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	// Detection walks up from a nested directory
	nested := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	sync := Detect(filepath.Join(nested, "out.json"), nil)
	require.NotNil(t, sync)
	assert.Equal(t, dir, sync.Root())
}

func TestCommitNewFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(out, []byte(`[]`), 0o644))

	sync := Detect(out, nil)
	require.NotNil(t, sync)
	require.NoError(t, sync.Commit(out))

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "auto-export: out.json", commit.Message)
}

func TestCommitUnchangedFileSkips(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	out := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(out, []byte(`[]`), 0o644))

	sync := Detect(out, nil)
	require.NotNil(t, sync)
	require.NoError(t, sync.Commit(out))

	firstHead, err := repo.Head()
	require.NoError(t, err)

	// Same content again: no new commit
	require.NoError(t, sync.Commit(out))

	secondHead, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, firstHead.Hash(), secondHead.Hash())
}

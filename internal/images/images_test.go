package images

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectHighestTag(t *testing.T) {
	c, err := parseConstraint("1.x")
	require.NoError(t, err)

	tag, err := selectHighestTag([]string{"1.0.0", "v1.2.3", "1.1.5", "not-semver", "2.0.0"}, c)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", tag)

	_, err = selectHighestTag([]string{"0.1.0", "0.2.0"}, c)
	assert.Error(t, err)
}

func TestRepositoryAndTag(t *testing.T) {
	assert.Equal(t, "example.com/foo/bar", Repository("example.com/foo/bar:1.2.3"))
	assert.Equal(t, "index.docker.io/library/nginx", Repository("nginx"))
	assert.Equal(t, "", Repository("UPPER CASE"))

	assert.Equal(t, "1.2.3", Tag("example.com/foo/bar:1.2.3"))
	assert.Equal(t, "latest", Tag("nginx"))
	assert.Equal(t, "", Tag("nginx@sha256:"+sha))
}

const sha = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestMatches(t *testing.T) {
	assert.True(t, Matches("postgres:14.5", "^14"))
	assert.False(t, Matches("postgres:15.0", "^14"))
	assert.False(t, Matches("postgres:alpine", "^14"))
	assert.False(t, Matches("postgres:14.5", "not a constraint"))
}

func TestResolveUsesRegistryTags(t *testing.T) {
	r := NewResolver()
	r.list = func(ctx context.Context, repo name.Repository) ([]string, error) {
		assert.Equal(t, "index.docker.io/library/postgres", repo.Name())
		return []string{"14.1", "14.5", "15.0", "latest"}, nil
	}
	got, err := r.Resolve(context.Background(), "postgres:14.1", "14.x")
	require.NoError(t, err)
	assert.Equal(t, "index.docker.io/library/postgres:14.5", got)

	r.list = func(context.Context, name.Repository) ([]string, error) { return nil, errors.New("offline") }
	_, err = r.Resolve(context.Background(), "postgres:14.1", "14.x")
	assert.ErrorContains(t, err, "offline")
}

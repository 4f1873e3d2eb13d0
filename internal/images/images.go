// Package images parses image references and resolves semver tag policies
// for template helpers.
package images

import (
	"context"
	"fmt"
	"sort"

	mvc "github.com/Masterminds/semver/v3"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// Repository returns the repository part of image ("nginx:1.25" ->
// "index.docker.io/library/nginx"). Unparseable references yield "".
func Repository(image string) string {
	repo, err := parseRepo(image)
	if err != nil {
		return ""
	}
	return repo.Name()
}

// Tag returns the tag of image, "latest" when none is given, or "" for
// digest references and unparseable input.
func Tag(image string) string {
	ref, err := name.ParseReference(image)
	if err != nil {
		return ""
	}
	if t, ok := ref.(name.Tag); ok {
		return t.TagStr()
	}
	return ""
}

// Matches reports whether the tag of image satisfies the semver
// constraint. Non-semver tags never match.
func Matches(image, constraint string) bool {
	c, err := parseConstraint(constraint)
	if err != nil {
		return false
	}
	v, err := mvc.NewVersion(Tag(image))
	if err != nil {
		return false
	}
	return c.Check(v)
}

// Resolver looks up registry tags.
type Resolver struct {
	// keychain defaults to the docker config (~/.docker/config.json)
	keychain authn.Keychain
	list     func(ctx context.Context, repo name.Repository) ([]string, error)
}

func NewResolver() *Resolver {
	r := &Resolver{keychain: authn.DefaultKeychain}
	r.list = r.remoteList
	return r
}

func (r *Resolver) remoteList(ctx context.Context, repo name.Repository) ([]string, error) {
	return remote.List(repo, remote.WithAuthFromKeychain(r.keychain), remote.WithContext(ctx))
}

// Resolve returns image with its tag replaced by the highest registry tag
// matching policy, e.g. ("postgres:14.1", "14.x") -> "index.docker.io/library/postgres:14.5".
func (r *Resolver) Resolve(ctx context.Context, image, policy string) (string, error) {
	c, err := parseConstraint(policy)
	if err != nil {
		return "", err
	}
	repo, err := parseRepo(image)
	if err != nil {
		return "", err
	}
	tags, err := r.list(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("list tags for %s: %w", repo.Name(), err)
	}
	tag, err := selectHighestTag(tags, c)
	if err != nil {
		return "", fmt.Errorf("%s: %w", repo.Name(), err)
	}
	return fmt.Sprintf("%s:%s", repo.Name(), tag), nil
}

func parseConstraint(policy string) (*mvc.Constraints, error) {
	c, err := mvc.NewConstraint(policy)
	if err != nil {
		return nil, fmt.Errorf("invalid semver policy %q: %w", policy, err)
	}
	return c, nil
}

func parseRepo(image string) (name.Repository, error) {
	ref, err := name.ParseReference(image)
	if err != nil {
		return name.Repository{}, fmt.Errorf("invalid image reference %q: %w", image, err)
	}
	return ref.Context(), nil
}

// selectHighestTag keeps the registry's spelling of the winning tag, so a
// "v" prefix survives.
func selectHighestTag(tags []string, c *mvc.Constraints) (string, error) {
	var versions []*mvc.Version
	original := make(map[*mvc.Version]string)
	for _, t := range tags {
		v, err := mvc.NewVersion(t)
		if err != nil {
			continue
		}
		if c.Check(v) {
			versions = append(versions, v)
			original[v] = t
		}
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("no tags match %q", c.String())
	}
	sort.Sort(mvc.Collection(versions))
	return original[versions[len(versions)-1]], nil
}

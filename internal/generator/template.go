package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/template"
	"time"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/Masterminds/sprig/v3"

	"github.com/dockgen/dockgen/internal/enhanced"
	"github.com/dockgen/dockgen/internal/images"
)

const (
	inlineName     = "inline"
	resolveTimeout = 10 * time.Second
)

// IsInline reports whether source is template text rather than a path.
func IsInline(source string) bool {
	return strings.HasPrefix(source, "#")
}

// Parse builds a template from source. A source starting with "#" is the
// template text itself, anything else is read from disk.
func Parse(source string, resolver *images.Resolver) (*template.Template, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("no template defined")
	}
	name, text := inlineName, strings.TrimSpace(strings.TrimPrefix(source, "#"))
	if !IsInline(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		name, text = filepath.Base(source), string(data)
	}
	t, err := template.New(name).Funcs(FuncMap(resolver)).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return t, nil
}

// FuncMap is sprig's text function map plus the container helpers.
// resolver may be nil, in which case latestTag always fails.
func FuncMap(resolver *images.Resolver) template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["any"] = anyOf
	fm["all"] = allOf
	fm["wildcard"] = func(pattern, s string) bool { return wildcard.Match(pattern, s) }
	fm["semverMatches"] = func(constraint, image string) bool { return images.Matches(image, constraint) }
	fm["imageRepository"] = images.Repository
	fm["imageTag"] = images.Tag
	fm["latestTag"] = func(policy, image string) (string, error) {
		if resolver == nil {
			return "", fmt.Errorf("registry lookups are disabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()
		return resolver.Resolve(ctx, image, policy)
	}
	return fm
}

// anyOf reports whether any value is non-empty. A single slice argument is
// inspected element by element.
func anyOf(values ...any) bool {
	for _, v := range flatten(values) {
		if !enhanced.IsEmpty(v) {
			return true
		}
	}
	return false
}

// allOf reports whether every value is non-empty. It is true for no values.
func allOf(values ...any) bool {
	for _, v := range flatten(values) {
		if enhanced.IsEmpty(v) {
			return false
		}
	}
	return true
}

func flatten(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

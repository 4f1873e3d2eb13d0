// Package generator renders the template against the engine state and
// keeps the target file up to date.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/rs/zerolog"

	"github.com/dockgen/dockgen/internal/docker"
	"github.com/dockgen/dockgen/internal/enhanced"
	"github.com/dockgen/dockgen/internal/images"
	"github.com/dockgen/dockgen/internal/logging"
	"github.com/dockgen/dockgen/internal/metrics"
	"github.com/dockgen/dockgen/internal/resources"
)

const targetFileMode = 0o644

// Source supplies engine state. *docker.API satisfies it.
type Source interface {
	State(ctx context.Context) (*docker.State, error)
}

// Context is the data a template renders against.
type Context struct {
	Containers  resources.ContainerList
	Services    resources.ServiceList
	AllServices resources.ServiceList
	Nodes       resources.NodeList
	Networks    resources.NetworkList
	Env         enhanced.Dict[string]
}

// NewContext wraps st and the process environment.
func NewContext(st *docker.State) *Context {
	env := make(enhanced.Dict[string])
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return &Context{
		Containers:  st.Containers,
		Services:    st.Services,
		AllServices: st.AllServices,
		Nodes:       st.Nodes,
		Networks:    st.Networks,
		Env:         env,
	}
}

type Options struct {
	// Target is the output path. Empty means Stdout.
	Target   string
	Stdout   io.Writer
	Resolver *images.Resolver
	Logger   *zerolog.Logger
}

type Generator struct {
	source   Source
	template string
	target   string
	stdout   io.Writer
	resolver *images.Resolver
	log      *zerolog.Logger

	mu   sync.Mutex
	tmpl *template.Template
}

// New parses templateSource (inline text after "#", or a file path).
func New(templateSource string, src Source, opts Options) (*Generator, error) {
	g := &Generator{
		source:   src,
		template: templateSource,
		target:   opts.Target,
		stdout:   opts.Stdout,
		resolver: opts.Resolver,
		log:      opts.Logger,
	}
	if g.stdout == nil {
		g.stdout = os.Stdout
	}
	if g.log == nil {
		g.log = logging.Component("generator")
	}
	if err := g.Reload(); err != nil {
		return nil, err
	}
	return g, nil
}

// TemplatePath is the template file, or "" for inline templates.
func (g *Generator) TemplatePath() string {
	if IsInline(g.template) {
		return ""
	}
	return g.template
}

// Reload re-parses the template. On error the previous template stays in use.
func (g *Generator) Reload() error {
	t, err := Parse(g.template, g.resolver)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.tmpl = t
	g.mu.Unlock()
	return nil
}

// Render lists the engine state and executes the template against it.
func (g *Generator) Render(ctx context.Context) (string, error) {
	st, err := g.source.State(ctx)
	if err != nil {
		return "", fmt.Errorf("list engine state: %w", err)
	}
	g.mu.Lock()
	t := g.tmpl
	g.mu.Unlock()

	var buf bytes.Buffer
	if err := t.Execute(&buf, NewContext(st)); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// Update renders and writes the target when its content changed. It
// reports whether dependents should be notified, which is always the case
// when printing to stdout.
func (g *Generator) Update(ctx context.Context) (bool, error) {
	start := time.Now()
	content, err := g.Render(ctx)
	metrics.ObserveRenderDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.IncRenderFailed()
		return false, err
	}
	metrics.IncRender()
	metrics.SetLastRender(time.Now())

	if g.target == "" {
		g.log.Info().Msg("printing generated content to stdout")
		if _, err := io.WriteString(g.stdout, content); err != nil {
			return false, fmt.Errorf("write stdout: %w", err)
		}
		return true, nil
	}

	// A missing target compares as empty.
	existing, err := os.ReadFile(g.target)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("read target: %w", err)
	}
	if string(existing) == content {
		metrics.IncRenderUnchanged()
		g.log.Debug().Str("target", g.target).Msg("target unchanged, skipping write")
		return false, nil
	}
	if err := atomicwriter.WriteFile(g.target, []byte(content), targetFileMode); err != nil {
		return false, fmt.Errorf("write target: %w", err)
	}
	metrics.IncTargetWrite()
	g.log.Info().Str("target", g.target).Int("bytes", len(content)).Msg("target file updated")
	return true, nil
}

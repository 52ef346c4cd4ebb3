// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sahilm/fuzzy"
)

const projectsDir = "projects"

// manifestNames are tried in order inside a project directory.
var manifestNames = []string{"package.yml", "package.yaml"}

// ErrNoPantry is returned when none of the configured roots has a projects
// directory.
var ErrNoPantry = errors.New("pantry not found")

type (
	// Pantry finds manifests under one or more roots. Earlier roots shadow
	// later ones for the same project.
	Pantry struct {
		roots []string
	}

	// Entry locates one manifest on disk.
	Entry struct {
		Project string `json:"project"`
		Root    string `json:"root"`
		Path    string `json:"path"`
	}
)

// New returns a pantry over roots. Each root holds a projects/ directory.
func New(roots ...string) *Pantry {
	return &Pantry{roots: slices.Clone(roots)}
}

// Roots returns the configured roots.
func (p *Pantry) Roots() []string {
	return slices.Clone(p.roots)
}

func (p *Pantry) existingRoots() ([]string, error) {
	var out []string
	for _, root := range p.roots {
		if info, err := os.Stat(filepath.Join(root, projectsDir)); err == nil && info.IsDir() {
			out = append(out, root)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: searched %v", ErrNoPantry, p.roots)
	}
	return out, nil
}

// List returns every manifest, sorted by project.
func (p *Pantry) List(ctx context.Context) ([]Entry, error) {
	roots, err := p.existingRoots()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []Entry
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fsys := os.DirFS(filepath.Join(root, projectsDir))
		matches, err := doublestar.Glob(fsys, "**/package.{yml,yaml}", doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", root, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			project := path.Dir(m)
			if seen[project] || project == "." {
				continue
			}
			seen[project] = true
			out = append(out, Entry{
				Project: project,
				Root:    root,
				Path:    filepath.Join(root, projectsDir, filepath.FromSlash(m)),
			})
		}
	}

	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.Project < b.Project:
			return -1
		case a.Project > b.Project:
			return 1
		}
		return 0
	})
	return out, nil
}

// Entry locates the manifest of project.
func (p *Pantry) Entry(project string) (Entry, error) {
	roots, err := p.existingRoots()
	if err != nil {
		return Entry{}, err
	}
	for _, root := range roots {
		dir := filepath.Join(root, projectsDir, filepath.FromSlash(project))
		for _, name := range manifestNames {
			file := filepath.Join(dir, name)
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				return Entry{Project: project, Root: root, Path: file}, nil
			}
		}
	}
	return Entry{}, &NotFoundError{Name: project}
}

// Load reads and validates the manifest of project.
func (p *Pantry) Load(project string) (*Manifest, error) {
	e, err := p.Entry(project)
	if err != nil {
		return nil, err
	}
	return e.Load()
}

// Load reads and validates the manifest at e.Path.
func (e Entry) Load() (*Manifest, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(e.Project, e.Path, data)
}

// Find returns the entries matching name: the project itself when it exists,
// otherwise every project that provides an executable called name.
func (p *Pantry) Find(ctx context.Context, name string) ([]Entry, error) {
	e, err := p.Entry(name)
	if err == nil {
		return []Entry{e}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	all, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		m, err := e.Load()
		if err != nil {
			slog.Debug("skipping manifest", "project", e.Project, "error", err)
			continue
		}
		provides, err := m.Provides()
		if err != nil {
			slog.Debug("skipping manifest", "project", e.Project, "error", err)
			continue
		}
		if slices.Contains(provides, name) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Lookup resolves name to exactly one manifest.
func (p *Pantry) Lookup(ctx context.Context, name string) (*Manifest, error) {
	matches, err := p.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
		return matches[0].Load()
	}
	projects := make([]string, len(matches))
	for i, m := range matches {
		projects[i] = m.Project
	}
	return nil, &AmbiguousError{Name: name, Candidates: projects}
}

// Suggest returns the project names closest to name, best first.
func (p *Pantry) Suggest(ctx context.Context, name string, limit int) ([]string, error) {
	all, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]string, len(all))
	for i, e := range all {
		projects[i] = e.Project
	}

	matches := fuzzy.Find(name, projects)
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out, nil
}

// IsNotExist reports whether err means a project or pantry is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoPantry) || errors.Is(err, fs.ErrNotExist)
}

// Package artifacts keeps each session's documents, code and tasks in its own
// directory tree so concurrent sessions never write to the same path.
package artifacts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"infra_crew/pkg"

	"github.com/pkg/errors"
)

const (
	DefaultRoot = "output/software_company"

	DocumentsDir = "documents"
	ScriptsDir   = "scripts"
	TasksDir     = "project_management"
)

// Segment turns s into a single safe path component, or fallback when nothing is left
func Segment(s, fallback string) string {
	return pkg.CleanSegment(s, fallback)
}

// Workspace resolves <Root>/<session>/<project>/<kind>
type Workspace struct {
	Root string
	now  func() time.Time
}

func NewWorkspace(root string) *Workspace {
	if root == "" {
		root = DefaultRoot
	}
	return &Workspace{Root: root, now: time.Now}
}

// ProjectDir is the session-isolated project root
func (w *Workspace) ProjectDir(sly pkg.SlyData) string {
	return filepath.Join(w.Root,
		pkg.IsolatedSegment(sly.SessionID(), pkg.DefaultSessionID),
		pkg.IsolatedSegment(sly.ProjectName(), pkg.DefaultProjectName))
}

// Dir returns the kind subdirectory, creating it
func (w *Workspace) Dir(sly pkg.SlyData, kind string) (string, error) {
	dir := filepath.Join(w.ProjectDir(sly), kind)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s directory", kind)
	}
	return dir, nil
}

// list returns the regular files in the kind directory matching suffix, sorted
func (w *Workspace) list(sly pkg.SlyData, kind, suffix string) ([]string, error) {
	dir := filepath.Join(w.ProjectDir(sly), kind)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}
	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

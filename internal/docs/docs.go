// Package docs renders infrastructure design documents and project plans.
package docs

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDetails = "Cloud infrastructure setup"

	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	excerptLimit    = 500
)

// ErrProjectNameRequired is returned when a document is requested without a project
var ErrProjectNameRequired = errors.New("project_name parameter is required")

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type designData struct {
	Project string
	Details string
	Created string
}

type planData struct {
	Project       string
	Created       string
	DesignExcerpt string
	Phase1Start   string
	Phase1End     string
	Phase2Start   string
	Phase2End     string
	Phase3Start   string
	Phase3End     string
}

// DesignDocument renders the fourteen-section design document
func DesignDocument(project, details string, now time.Time) (string, error) {
	if details == "" {
		details = DefaultDetails
	}
	return render("design.md.tmpl", designData{
		Project: project,
		Details: strings.ToLower(details),
		Created: now.Format(timestampLayout),
	})
}

// ProjectPlan renders the phased implementation plan. design may be empty.
func ProjectPlan(project, design string, now time.Time) (string, error) {
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format(dateLayout)
	}
	return render("plan.md.tmpl", planData{
		Project:       project,
		Created:       now.Format(timestampLayout),
		DesignExcerpt: excerpt(design),
		Phase1Start:   day(0),
		Phase1End:     day(3),
		Phase2Start:   day(4),
		Phase2End:     day(7),
		Phase3Start:   day(8),
		Phase3End:     day(10),
	})
}

func excerpt(design string) string {
	runes := []rune(design)
	if len(runes) > excerptLimit {
		return string(runes[:excerptLimit]) + "..."
	}
	return design
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "render %s", name)
	}
	return buf.String(), nil
}

// Writer places documents under <Root>/<project>/docs
type Writer struct {
	Root string
	Now  func() time.Time
}

// NewWriter returns a Writer rooted at root using the wall clock
func NewWriter(root string) *Writer {
	return &Writer{Root: root, Now: time.Now}
}

// DocsDir is the directory holding a project's documents
func (w *Writer) DocsDir(project string) string {
	return filepath.Join(w.Root, project, "docs")
}

// DesignPath is where CreateDesign writes
func (w *Writer) DesignPath(project string) string {
	return filepath.Join(w.DocsDir(project), "design.md")
}

// CreateDesign writes design.md and returns its path
func (w *Writer) CreateDesign(project, details string) (string, error) {
	if project == "" {
		return "", ErrProjectNameRequired
	}
	log.Info().Str("project", project).Msg("Creating design document")

	content, err := DesignDocument(project, details, w.now())
	if err != nil {
		return "", err
	}
	path := w.DesignPath(project)
	if err := writeFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// CreatePlan writes project_plan.md, summarising design.md when one exists
func (w *Writer) CreatePlan(project string) (string, error) {
	if project == "" {
		return "", ErrProjectNameRequired
	}
	log.Info().Str("project", project).Msg("Creating project plan")

	design, err := ReadOptional(w.DesignPath(project))
	if err != nil {
		return "", err
	}
	content, err := ProjectPlan(project, design, w.now())
	if err != nil {
		return "", err
	}
	path := filepath.Join(w.DocsDir(project), "project_plan.md")
	if err := writeFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// ReadOptional returns the file contents, or "" when it does not exist
func ReadOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(data), nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create docs directory")
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

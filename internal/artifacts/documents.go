package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"

	"infra_crew/pkg"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DocumentRequest describes a markdown document to store
type DocumentRequest struct {
	DocType  string         `json:"doc_type"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentResult is returned by Create
type DocumentResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	DocType  string `json:"doc_type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// DocumentManager stores documents under documents/
type DocumentManager struct {
	ws *Workspace
}

func NewDocumentManager(ws *Workspace) *DocumentManager {
	return &DocumentManager{ws: ws}
}

// Create writes documents/<slug>.md with a metadata header
func (m *DocumentManager) Create(sly pkg.SlyData, req DocumentRequest) (*DocumentResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("title is required")
	}
	if req.DocType == "" {
		req.DocType = "document"
	}

	dir, err := m.ws.Dir(sly, DocumentsDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, Segment(strings.ToLower(req.Title), "untitled")+".md")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", req.Title)
	fmt.Fprintf(&b, "**Document Type**: %s\n", req.DocType)
	fmt.Fprintf(&b, "**Session**: %s\n", sly.SessionID())
	fmt.Fprintf(&b, "**Project**: %s\n", sly.ProjectName())
	fmt.Fprintf(&b, "**Created**: %s\n", m.ws.now().Format("2006-01-02 15:04:05"))
	for _, k := range sortedKeys(req.Metadata) {
		fmt.Fprintf(&b, "**%s**: %v\n", k, req.Metadata[k])
	}
	b.WriteString("\n---\n\n")
	b.WriteString(req.Content)
	if !strings.HasSuffix(req.Content, "\n") {
		b.WriteString("\n")
	}

	if err := writeFile(path, []byte(b.String())); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sly.SessionID()).Str("path", path).Msg("Document created")

	return &DocumentResult{
		Success:  true,
		FilePath: path,
		DocType:  req.DocType,
		Title:    req.Title,
		Message:  fmt.Sprintf("Document '%s' created at %s", req.Title, path),
	}, nil
}

// List returns the session's document paths
func (m *DocumentManager) List(sly pkg.SlyData) ([]string, error) {
	return m.ws.list(sly, DocumentsDir, ".md")
}

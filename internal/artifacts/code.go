package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"

	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileRequest describes a source file to store
type FileRequest struct {
	Filename string         `json:"filename"`
	Content  string         `json:"content"`
	Language string         `json:"language,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FileResult is returned by CreateFile
type FileResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Language string `json:"language"`
	Size     int    `json:"size"`
	Message  string `json:"message"`
}

type fileMeta struct {
	Filename string         `json:"filename"`
	Language string         `json:"language"`
	Session  string         `json:"session_id"`
	Project  string         `json:"project_name"`
	Created  string         `json:"created_at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CodeRepository stores source files under scripts/. Metadata lands in a
// hidden .<name>.meta.json sidecar so the file itself stays runnable.
type CodeRepository struct {
	ws *Workspace
}

func NewCodeRepository(ws *Workspace) *CodeRepository {
	return &CodeRepository{ws: ws}
}

var languageByExt = map[string]string{
	".py":   "python",
	".go":   "go",
	".sh":   "bash",
	".tf":   "terraform",
	".yml":  "yaml",
	".yaml": "yaml",
	".js":   "javascript",
	".ts":   "typescript",
	".json": "json",
	".ps1":  "powershell",
}

// CreateFile writes scripts/<basename of Filename>
func (r *CodeRepository) CreateFile(sly pkg.SlyData, req FileRequest) (*FileResult, error) {
	name := Segment(filepath.Base(strings.ReplaceAll(req.Filename, "\\", "/")), "")
	if name == "" {
		return nil, errors.New("filename is required")
	}
	language := req.Language
	if language == "" {
		language = languageByExt[strings.ToLower(filepath.Ext(name))]
	}
	if language == "" {
		language = "text"
	}

	dir, err := r.ws.Dir(sly, ScriptsDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	if err := writeFile(path, []byte(req.Content)); err != nil {
		return nil, err
	}

	meta, err := sonic.ConfigStd.MarshalIndent(fileMeta{
		Filename: name,
		Language: language,
		Session:  sly.SessionID(),
		Project:  sly.ProjectName(),
		Created:  r.ws.now().Format("2006-01-02T15:04:05Z07:00"),
		Metadata: req.Metadata,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode file metadata")
	}
	if err := writeFile(filepath.Join(dir, "."+name+".meta.json"), meta); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sly.SessionID()).Str("path", path).Str("language", language).Msg("Code file created")

	return &FileResult{
		Success:  true,
		FilePath: path,
		Language: language,
		Size:     len(req.Content),
		Message:  fmt.Sprintf("File '%s' created at %s", name, path),
	}, nil
}

// ListFiles returns the session's source files, sidecars excluded
func (r *CodeRepository) ListFiles(sly pkg.SlyData) ([]string, error) {
	all, err := r.ws.list(sly, ScriptsDir, "")
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, f := range all {
		if !strings.HasPrefix(filepath.Base(f), ".") {
			files = append(files, f)
		}
	}
	return files, nil
}

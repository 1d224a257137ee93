package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"infra_crew/pkg"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// TaskRequest describes a task to create
type TaskRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	TaskType        string  `json:"task_type"`
	Priority        string  `json:"priority"`
	EstimatedEffort float64 `json:"estimated_effort"`
	AssignedTo      string  `json:"assigned_to"`
	ProjectType     string  `json:"project_type"`
}

// Task is the stored task record
type Task struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	TaskType        string    `json:"task_type"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	EstimatedEffort float64   `json:"estimated_effort"`
	AssignedTo      string    `json:"assigned_to"`
	ProjectType     string    `json:"project_type"`
	SessionID       string    `json:"session_id"`
	ProjectName     string    `json:"project_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// TaskResult is returned by Create
type TaskResult struct {
	Success       bool     `json:"success"`
	Task          Task     `json:"task"`
	ArtifactPaths []string `json:"artifact_paths"`
	Message       string   `json:"message"`
}

// TaskManager stores tasks under project_management/ as JSON plus a markdown card
type TaskManager struct {
	ws    *Workspace
	newID func() string
}

func NewTaskManager(ws *Workspace) *TaskManager {
	return &TaskManager{ws: ws, newID: func() string { return uuid.NewString()[:8] }}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Create writes task_<id>.json and task_<id>.md
func (m *TaskManager) Create(sly pkg.SlyData, req TaskRequest) (*TaskResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("title is required")
	}

	task := Task{
		ID:              m.newID(),
		Title:           req.Title,
		Description:     req.Description,
		TaskType:        orDefault(req.TaskType, "general"),
		Priority:        orDefault(req.Priority, "medium"),
		Status:          "pending",
		EstimatedEffort: req.EstimatedEffort,
		AssignedTo:      orDefault(req.AssignedTo, "unassigned"),
		ProjectType:     orDefault(req.ProjectType, "general"),
		SessionID:       sly.SessionID(),
		ProjectName:     sly.ProjectName(),
		CreatedAt:       m.ws.now(),
	}

	dir, err := m.ws.Dir(sly, TasksDir)
	if err != nil {
		return nil, err
	}

	data, err := sonic.ConfigStd.MarshalIndent(task, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode task")
	}
	jsonPath := filepath.Join(dir, "task_"+task.ID+".json")
	if err := writeFile(jsonPath, data); err != nil {
		return nil, err
	}
	mdPath := filepath.Join(dir, "task_"+task.ID+".md")
	if err := writeFile(mdPath, []byte(taskCard(task))); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", task.SessionID).Str("task_id", task.ID).Msg("Task created")

	return &TaskResult{
		Success:       true,
		Task:          task,
		ArtifactPaths: []string{jsonPath, mdPath},
		Message:       fmt.Sprintf("Task '%s' created with ID %s", task.Title, task.ID),
	}, nil
}

func taskCard(t Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task: %s\n\n", t.Title)
	fmt.Fprintf(&b, "- **ID**: %s\n", t.ID)
	fmt.Fprintf(&b, "- **Type**: %s\n", t.TaskType)
	fmt.Fprintf(&b, "- **Priority**: %s\n", t.Priority)
	fmt.Fprintf(&b, "- **Status**: %s\n", t.Status)
	fmt.Fprintf(&b, "- **Estimated Effort**: %g hours\n", t.EstimatedEffort)
	fmt.Fprintf(&b, "- **Assigned To**: %s\n", t.AssignedTo)
	fmt.Fprintf(&b, "- **Project Type**: %s\n", t.ProjectType)
	fmt.Fprintf(&b, "- **Created**: %s\n\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("## Description\n\n")
	b.WriteString(orDefault(t.Description, "_No description_"))
	b.WriteString("\n")
	return b.String()
}

// List loads every task of the session, ordered by file name
func (m *TaskManager) List(sly pkg.SlyData) ([]Task, error) {
	paths, err := m.ws.list(sly, TasksDir, ".json")
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", p)
		}
		var t Task
		if err := sonic.Unmarshal(data, &t); err != nil {
			return nil, errors.Wrapf(err, "decode %s", p)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

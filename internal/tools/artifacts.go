package tools

import (
	"context"
	"fmt"

	"infra_crew/internal/artifacts"
	"infra_crew/pkg"
)

func unknownAction(tool, action string) error {
	return fmt.Errorf("unknown %s action %q", tool, action)
}

type DocumentManager struct {
	Manager *artifacts.DocumentManager
}

func (DocumentManager) Name() string { return "DocumentManager" }

func (DocumentManager) Description() string {
	return "Store or list session documents. Args: action (create_document|list_documents), doc_type, title, content, metadata."
}

func (t DocumentManager) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	switch action := stringArg(args, "action", "create_document"); action {
	case "create_document":
		title := stringArg(args, "title", "")
		if title == "" {
			return nil, missing("title")
		}
		res, err := t.Manager.Create(sly, artifacts.DocumentRequest{
			DocType:  stringArg(args, "doc_type", ""),
			Title:    title,
			Content:  stringArg(args, "content", ""),
			Metadata: mapArg(args, "metadata"),
		})
		if err != nil {
			return nil, failure("create document", err)
		}
		return res, nil
	case "list_documents":
		files, err := t.Manager.List(sly)
		if err != nil {
			return nil, failure("list documents", err)
		}
		return map[string]any{"success": true, "documents": files}, nil
	default:
		return nil, failure("manage documents", unknownAction("DocumentManager", action))
	}
}

type CodeRepository struct {
	Repo *artifacts.CodeRepository
}

func (CodeRepository) Name() string { return "CodeRepository" }

func (CodeRepository) Description() string {
	return "Store or list session source files. Args: action (create_file|list_files), filename, content, language, metadata."
}

func (t CodeRepository) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	switch action := stringArg(args, "action", "create_file"); action {
	case "create_file":
		name := stringArg(args, "filename", "")
		if name == "" {
			return nil, missing("filename")
		}
		res, err := t.Repo.CreateFile(sly, artifacts.FileRequest{
			Filename: name,
			Content:  stringArg(args, "content", ""),
			Language: stringArg(args, "language", ""),
			Metadata: mapArg(args, "metadata"),
		})
		if err != nil {
			return nil, failure("create file", err)
		}
		return res, nil
	case "list_files":
		files, err := t.Repo.ListFiles(sly)
		if err != nil {
			return nil, failure("list files", err)
		}
		return map[string]any{"success": true, "files": files}, nil
	default:
		return nil, failure("manage code", unknownAction("CodeRepository", action))
	}
}

type TaskManager struct {
	Manager *artifacts.TaskManager
}

func (TaskManager) Name() string { return "TaskManager" }

func (TaskManager) Description() string {
	return "Create or list session tasks. Args: action (create|list), title, description, task_type, priority, estimated_effort, assigned_to, project_type."
}

func (t TaskManager) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	switch action := stringArg(args, "action", "create"); action {
	case "create":
		title := stringArg(args, "title", "")
		if title == "" {
			return nil, missing("title")
		}
		res, err := t.Manager.Create(sly, artifacts.TaskRequest{
			Title:           title,
			Description:     stringArg(args, "description", ""),
			TaskType:        stringArg(args, "task_type", ""),
			Priority:        stringArg(args, "priority", ""),
			EstimatedEffort: floatArg(args, "estimated_effort"),
			AssignedTo:      stringArg(args, "assigned_to", ""),
			ProjectType:     stringArg(args, "project_type", ""),
		})
		if err != nil {
			return nil, failure("create task", err)
		}
		return res, nil
	case "list":
		tasks, err := t.Manager.List(sly)
		if err != nil {
			return nil, failure("list tasks", err)
		}
		return map[string]any{"success": true, "tasks": tasks}, nil
	default:
		return nil, failure("manage tasks", unknownAction("TaskManager", action))
	}
}

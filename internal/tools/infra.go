package tools

import (
	"context"
	"errors"
	"fmt"

	"infra_crew/internal/docs"
	"infra_crew/internal/iac/ansible"
	"infra_crew/internal/iac/terraform"
	"infra_crew/pkg"
)

// projectArg reads project_name from args, then from the session's explicit project
func projectArg(args map[string]any, sly pkg.SlyData) string {
	return stringArg(args, "project_name", sly.String("project_name"))
}

func projectFailure(op string, err error) error {
	if errors.Is(err, docs.ErrProjectNameRequired) {
		return missing("project_name")
	}
	return failure(op, err)
}

type DesignDocumentCreator struct {
	Writer *docs.Writer
}

func (DesignDocumentCreator) Name() string { return "DesignDocumentCreator" }

func (DesignDocumentCreator) Description() string {
	return "Create a comprehensive infrastructure design document. Args: project_name, project_details."
}

func (t DesignDocumentCreator) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	project := projectArg(args, sly)
	if project == "" {
		return nil, missing("project_name")
	}
	path, err := t.Writer.CreateDesign(project, stringArg(args, "project_details", docs.DefaultDetails))
	if err != nil {
		return nil, projectFailure("create design document", err)
	}
	return fmt.Sprintf("Design document successfully created at %s", path), nil
}

type ProjectPlanCreator struct {
	Writer *docs.Writer
}

func (ProjectPlanCreator) Name() string { return "ProjectPlanCreator" }

func (ProjectPlanCreator) Description() string {
	return "Create a phased implementation plan from the project's design document. Args: project_name."
}

func (t ProjectPlanCreator) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	project := projectArg(args, sly)
	if project == "" {
		return nil, missing("project_name")
	}
	path, err := t.Writer.CreatePlan(project)
	if err != nil {
		return nil, projectFailure("create project plan", err)
	}
	return fmt.Sprintf("Project plan successfully created at %s", path), nil
}

type TerraformBuilder struct {
	Builder *terraform.Builder
}

func (TerraformBuilder) Name() string { return "TerraformBuilder" }

func (TerraformBuilder) Description() string {
	return "Generate Azure Terraform configuration from the project's design document. Args: project_name, output_dir."
}

func (t TerraformBuilder) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	project := projectArg(args, sly)
	if project == "" {
		return nil, missing("project_name")
	}
	msg, err := t.Builder.Build(project, stringArg(args, "output_dir", ""))
	if err != nil {
		return nil, projectFailure("generate Terraform infrastructure", err)
	}
	return msg, nil
}

type AnsibleBuilder struct {
	Builder *ansible.Builder
}

func (AnsibleBuilder) Name() string { return "AnsibleBuilder" }

func (AnsibleBuilder) Description() string {
	return "Generate an Ansible playbook, inventory and vars for the project's cloud provider. Args: project_name, output_dir."
}

// Invoke reports generation failures inside the Result rather than as an error
func (t AnsibleBuilder) Invoke(_ context.Context, args map[string]any, sly pkg.SlyData) (any, error) {
	return t.Builder.Build(projectArg(args, sly), stringArg(args, "output_dir", "")), nil
}

package tools

import (
	"context"

	"infra_crew/internal/artifacts"
	"infra_crew/internal/docs"
	"infra_crew/internal/iac/ansible"
	"infra_crew/internal/iac/terraform"
	"infra_crew/internal/sentiment"
	"infra_crew/internal/storage"
	"infra_crew/internal/workflow"
	"infra_crew/pkg"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/rs/zerolog/log"
)

// Deps are the services the default tools run on. Nil entries skip their tools.
type Deps struct {
	Docs      *docs.Writer
	Terraform *terraform.Builder
	Ansible   *ansible.Builder
	Sentiment *sentiment.Analyzer
	Memory    *storage.TopicMemory
	Workspace *artifacts.Workspace
	Workflow  *workflow.Interface
}

// DefaultRegistry registers every tool whose dependency is present
func DefaultRegistry(d Deps) *Registry {
	r := NewRegistry()
	add := func(t CodedTool) {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	if d.Docs != nil {
		add(DesignDocumentCreator{Writer: d.Docs})
		add(ProjectPlanCreator{Writer: d.Docs})
	}
	if d.Terraform != nil {
		add(TerraformBuilder{Builder: d.Terraform})
	}
	if d.Ansible != nil {
		add(AnsibleBuilder{Builder: d.Ansible})
	}
	if d.Sentiment != nil {
		add(SentimentAnalysis{Analyzer: d.Sentiment})
	}
	if d.Memory != nil {
		add(CommitToMemory{Memory: d.Memory})
		add(RecallMemory{Memory: d.Memory})
	}
	if d.Workspace != nil {
		add(DocumentManager{Manager: artifacts.NewDocumentManager(d.Workspace)})
		add(CodeRepository{Repo: artifacts.NewCodeRepository(d.Workspace)})
		add(TaskManager{Manager: artifacts.NewTaskManager(d.Workspace)})
	}
	if d.Workflow != nil {
		add(WorkflowEngine{API: d.Workflow})
	}
	return r
}

// EinoTools wraps every registered tool as an eino InvokableTool bound to sly.
// Tool failures come back as rendered "Error: ..." text, never as call errors.
func EinoTools(reg *Registry, sly pkg.SlyData) ([]tool.InvokableTool, error) {
	names := reg.Names()
	out := make([]tool.InvokableTool, 0, len(names))
	for _, name := range names {
		coded, _ := reg.Get(name)
		t, err := utils.InferTool(coded.Name(), coded.Description(),
			func(ctx context.Context, args map[string]any) (string, error) {
				result, err := coded.Invoke(ctx, args, sly)
				if err != nil {
					log.Warn().Err(err).Str("tool", coded.Name()).Msg("Tool call failed")
				}
				return Render(result, err), nil
			})
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

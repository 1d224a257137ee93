package assistant

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"infra_crew/internal/aaosa"
	"infra_crew/internal/core"
	"infra_crew/internal/docs"
	"infra_crew/internal/iac/ansible"
	"infra_crew/internal/iac/terraform"
	"infra_crew/internal/storage"
	"infra_crew/internal/tools"
	"infra_crew/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssistant(t *testing.T) (*Assistant, string) {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	delegation, err := aaosa.NewEngine(ctx, aaosa.DefaultRegistry(), nil)
	require.NoError(t, err)

	out := filepath.Join(root, "output")
	reg := tools.DefaultRegistry(tools.Deps{
		Docs:      docs.NewWriter(out),
		Terraform: &terraform.Builder{Root: out},
		Ansible:   &ansible.Builder{Root: out},
		Memory:    storage.NewTopicMemory(filepath.Join(root, "memory")),
		Workflow:  workflow.NewInterface(workflow.NewEngine(delegation, nil)),
	})

	a, err := New(ctx, core.Config{}, nil, reg, nil)
	require.NoError(t, err)
	return a, out
}

func TestChatRunsToolsAndKeepsProject(t *testing.T) {
	a, out := newAssistant(t)
	ctx := context.Background()

	reply, err := a.Chat(ctx, "s1", "Write a design document for project shop with PostgreSQL and SSL")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "```gui\n### DesignDocumentCreator\n\nDesign document successfully created at "))
	assert.Contains(t, reply, "```say\nDone. I ran DesignDocumentCreator.")
	assert.FileExists(t, filepath.Join(out, "shop", "docs", "design.md"))

	// the project carries over to the next turn
	turn, err := a.Turn(ctx, "s1", "now the terraform please")
	require.NoError(t, err)
	assert.Equal(t, []string{"TerraformBuilder"}, turn.ToolsExecuted)
	assert.Equal(t, "shop", turn.Sly.ProjectName())
	assert.Equal(t, []string{"routing", "intent", "tools", "response"}, turn.Metadata["execution_path"])
	_, err = os.Stat(filepath.Join(out, "shop", "terraform", "main.tf"))
	assert.NoError(t, err)

	history, err := a.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestChatWithoutTools(t *testing.T) {
	a, _ := newAssistant(t)
	ctx := context.Background()

	turn, err := a.Turn(ctx, "s2", "hi")
	require.NoError(t, err)
	assert.Empty(t, turn.ToolsExecuted)
	assert.Equal(t, []string{"routing", "intent", "response"}, turn.Metadata["execution_path"])
	assert.Contains(t, turn.Response, "```say\n")

	_, err = a.Chat(ctx, "s2", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestResetAndSessionData(t *testing.T) {
	a, _ := newAssistant(t)
	ctx := context.Background()

	a.SetSessionData("s3", map[string]any{"project_name": "seeded"})
	turn, err := a.Turn(ctx, "s3", "generate the project plan")
	require.NoError(t, err)
	require.Len(t, turn.ToolResults, 1)
	assert.Contains(t, turn.ToolResults[0].Output, filepath.Join("seeded", "docs", "project_plan.md"))

	require.NoError(t, a.Reset(ctx, "s3"))
	history, err := a.History(ctx, "s3")
	require.NoError(t, err)
	assert.Empty(t, history)

	turn, err = a.Turn(ctx, "s3", "recall everything")
	require.NoError(t, err)
	assert.Equal(t, "No memories stored yet", turn.ToolResults[0].Output)
}

package terraform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"infra_crew/internal/requirements"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerateDefaultRequirements(t *testing.T) {
	out := t.TempDir()
	result, err := Generate(out, "Atlas", requirements.DefaultInfra())
	require.NoError(t, err)
	assert.Len(t, result.Files, 5)

	main := readFile(t, filepath.Join(result.Dir, "main.tf"))
	assert.True(t, strings.HasPrefix(main, "# Terraform configuration for Atlas\n"))
	assert.Contains(t, main, `version = "~> 3.0"`)
	assert.Contains(t, main, `resource "azurerm_virtual_network" "main"`)
	assert.NotContains(t, main, "azurerm_network_security_group")
	assert.NotContains(t, main, "flexible_server")

	vars := readFile(t, filepath.Join(result.Dir, "variables.tf"))
	assert.Contains(t, vars, `default     = "atlas"`)
	assert.NotContains(t, vars, "db_admin_password")

	outputs := readFile(t, filepath.Join(result.Dir, "outputs.tf"))
	assert.Contains(t, outputs, "azurerm_subnet.web.id")
	assert.NotContains(t, outputs, "azurerm_key_vault")
	assert.NotContains(t, outputs, "azurerm_log_analytics_workspace")
}

func TestGenerateFullRequirements(t *testing.T) {
	req := requirements.Infra{
		Services:      []string{"nginx"},
		Databases:     []string{"postgresql", "mysql", "mongodb"},
		LoadBalancers: []string{"alb"},
		Monitoring:    true,
		SSL:           true,
		Backup:        true,
		Security:      []string{"security_groups"},
		VPC:           true,
	}
	result, err := Generate(t.TempDir(), "Atlas", req)
	require.NoError(t, err)

	main := readFile(t, filepath.Join(result.Dir, "main.tf"))
	assert.Contains(t, main, "priority                   = 1001")
	assert.Contains(t, main, "priority                   = 1002")
	assert.Contains(t, main, `resource "azurerm_postgresql_flexible_server" "main"`)
	assert.Contains(t, main, `version  = "8.0.21"`)
	assert.Contains(t, main, `resource "azurerm_public_ip" "gateway"`)
	assert.Contains(t, main, `sku                 = "PerGB2018"`)
	assert.Contains(t, main, `account_replication_type = "GRS"`)
	assert.NotContains(t, main, "mongodb")

	vars := readFile(t, filepath.Join(result.Dir, "variables.tf"))
	assert.Contains(t, vars, `variable "db_admin_password"`)
	assert.Contains(t, vars, "sensitive   = true")

	outputs := readFile(t, filepath.Join(result.Dir, "outputs.tf"))
	for _, ref := range []string{
		"azurerm_network_security_group.web.id",
		"azurerm_postgresql_flexible_server.main.fqdn",
		"azurerm_mysql_flexible_server.main.fqdn",
		"azurerm_public_ip.gateway.ip_address",
		"azurerm_log_analytics_workspace.main.id",
		"azurerm_storage_account.backup.name",
	} {
		assert.Contains(t, outputs, ref)
	}
}

func TestHTTPSRuleNeedsSecurityGroups(t *testing.T) {
	req := requirements.DefaultInfra()
	req.SSL = true
	result, err := Generate(t.TempDir(), "atlas", req)
	require.NoError(t, err)

	main := readFile(t, filepath.Join(result.Dir, "main.tf"))
	assert.NotContains(t, main, `"HTTPS"`)
}

func TestBuilderUsesDesignDocument(t *testing.T) {
	root := t.TempDir()
	docsDir := filepath.Join(root, "atlas", "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "design.md"), []byte("Postgres with monitoring"), 0644))

	b := &Builder{Root: root}
	msg, err := b.Build("atlas", "")
	require.NoError(t, err)
	assert.Equal(t, "Terraform infrastructure successfully generated at "+filepath.Join(root, "atlas", "terraform"), msg)

	main := readFile(t, filepath.Join(root, "atlas", "terraform", "main.tf"))
	assert.Contains(t, main, "azurerm_postgresql_flexible_server")
	assert.Contains(t, main, "azurerm_log_analytics_workspace")
}

func TestBuilderRequiresProject(t *testing.T) {
	b := &Builder{Root: t.TempDir()}
	_, err := b.Build("", "")
	assert.Error(t, err)
}

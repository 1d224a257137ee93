// Package ansible generates provider-aware Ansible playbooks, inventories
// and service task files.
package ansible

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"infra_crew/internal/docs"
	"infra_crew/internal/requirements"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const DefaultProject = "sample_project"

//go:embed templates/*.tmpl
var templateFS embed.FS

// Jinja uses {{ }}, so Go templates here use [[ ]]
var templates = template.Must(
	template.New("ansible").
		Delims("[[", "]]").
		Funcs(template.FuncMap{"flow": flowList, "scalar": strconv.Quote}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Requirements joins the cloud scan with the service scan of the same document
type Requirements struct {
	Cloud requirements.Cloud
	Infra requirements.Infra
}

// DefaultRequirements is used when the project has no design document.
// The region is left empty so each provider falls back to its own default.
func DefaultRequirements() Requirements {
	cloud := requirements.DefaultCloud()
	cloud.Region = ""
	return Requirements{Cloud: cloud, Infra: requirements.DefaultInfra()}
}

// ParseRequirements scans doc for both views
func ParseRequirements(doc string) Requirements {
	return Requirements{
		Cloud: requirements.ParseCloud(doc),
		Infra: requirements.ParseInfra(doc),
	}
}

// Result is the tool-facing outcome of a generation
type Result struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message,omitempty"`
	FilesCreated []string `json:"files_created,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type task struct {
	Name string
	File string
}

type provider struct {
	Name          string
	Label         string
	DefaultRegion string
	User          string
	KeyFile       string
	Groups        []group
	tasks         func(Requirements) []task
}

type group struct {
	Name  string
	Hosts []string
}

var azure = provider{
	Name:          requirements.ProviderAzure,
	Label:         "Azure",
	DefaultRegion: "eastus",
	User:          "azureuser",
	KeyFile:       "~/.ssh/id_rsa",
	Groups: []group{
		{"azure_vms", []string{"vm1 ansible_host=10.0.1.10", "vm2 ansible_host=10.0.1.11"}},
		{"azure_databases", []string{"sqldb1 ansible_host=sql-server.database.windows.net"}},
		{"azure_storage", []string{"storage1 ansible_host=storageaccount.blob.core.windows.net"}},
	},
	tasks: func(r Requirements) []task {
		return providerTasks(r, []taskRule{
			{has(r.Cloud.Resources.Compute, "vm"), "Configure Azure Virtual Machine", "azure_vm.yml"},
			{has(r.Cloud.Resources.Storage, "blob_storage"), "Configure Azure Blob Storage", "azure_storage.yml"},
			{has(r.Cloud.Resources.Database, "sql_database"), "Configure Azure SQL Database", "azure_sql.yml"},
			{r.Cloud.Security.Encryption, "Configure Azure Key Vault", "azure_keyvault.yml"},
			{r.Cloud.Monitoring.Enabled, "Configure Azure Monitor", "azure_monitor.yml"},
			{r.Cloud.Backup.Enabled, "Configure Azure Backup", "azure_backup.yml"},
		})
	},
}

var aws = provider{
	Name:          requirements.ProviderAWS,
	Label:         "AWS",
	DefaultRegion: "us-east-1",
	User:          "ec2-user",
	KeyFile:       "~/.ssh/aws-key.pem",
	Groups: []group{
		{"ec2_instances", []string{"web1 ansible_host=10.0.1.10", "web2 ansible_host=10.0.1.11"}},
		{"rds_databases", []string{"db1 ansible_host=mydb.cluster-xyz.us-west-2.rds.amazonaws.com"}},
		{"s3_storage", []string{"s3bucket ansible_host=s3.amazonaws.com"}},
	},
	tasks: func(r Requirements) []task {
		return providerTasks(r, []taskRule{
			{has(r.Cloud.Resources.Compute, "ec2"), "Configure EC2 Instance", "aws_ec2.yml"},
			{has(r.Cloud.Resources.Storage, "s3"), "Configure S3 Bucket", "aws_s3.yml"},
			{has(r.Cloud.Resources.Database, "rds"), "Configure RDS Database", "aws_rds.yml"},
			{r.Cloud.Security.Encryption, "Configure AWS KMS", "aws_kms.yml"},
			{r.Cloud.Monitoring.Enabled, "Configure CloudWatch", "aws_cloudwatch.yml"},
			{r.Cloud.Backup.Enabled, "Configure AWS Backup", "aws_backup.yml"},
		})
	},
}

var gcp = provider{
	Name:          requirements.ProviderGCP,
	Label:         "GCP",
	DefaultRegion: "us-central1",
	User:          "gcp-user",
	KeyFile:       "~/.ssh/gcp-key",
	Groups: []group{
		{"gcp_instances", []string{"instance1 ansible_host=10.0.1.10", "instance2 ansible_host=10.0.1.11"}},
		{"gcp_databases", []string{"cloudsql1 ansible_host=sql-instance.region.gcp.project.com"}},
		{"gcp_storage", []string{"bucket1 ansible_host=storage.googleapis.com"}},
	},
	tasks: func(r Requirements) []task {
		return providerTasks(r, []taskRule{
			// the scraper reports generic vm/ec2 compute; on GCP that is a compute instance
			{len(r.Cloud.Resources.Compute) > 0, "Configure GCP Compute Instance", "gcp_compute.yml"},
			{has(r.Cloud.Resources.Storage, "cloud_storage"), "Configure GCP Cloud Storage", "gcp_storage.yml"},
			{has(r.Cloud.Resources.Database, "cloud_sql"), "Configure GCP Cloud SQL", "gcp_sql.yml"},
			{r.Cloud.Security.Encryption, "Configure GCP KMS", "gcp_kms.yml"},
			{r.Cloud.Monitoring.Enabled, "Configure GCP Monitoring", "gcp_monitoring.yml"},
			{r.Cloud.Backup.Enabled, "Configure GCP Backup", "gcp_backup.yml"},
		})
	},
}

// providerFor maps the detected provider; unknown falls back to Azure
func providerFor(name string) provider {
	switch name {
	case requirements.ProviderAWS:
		return aws
	case requirements.ProviderGCP:
		return gcp
	default:
		return azure
	}
}

type taskRule struct {
	enabled bool
	name    string
	file    string
}

func providerTasks(r Requirements, rules []taskRule) []task {
	var out []task
	for _, rule := range rules {
		if rule.enabled {
			out = append(out, task{Name: rule.name, File: "tasks/" + rule.file})
		}
	}
	return out
}

// serviceTasks are generated from the service scan, not the provider scan
func serviceTasks(r Requirements) []task {
	var out []task
	if r.Infra.HasService("nginx") {
		out = append(out, task{Name: "Configure Nginx", File: "tasks/nginx.yml"})
	}
	if has(r.Infra.Databases, "postgresql") {
		out = append(out, task{Name: "Configure PostgreSQL", File: "tasks/postgresql.yml"})
	}
	if firewallEnabled(r) {
		out = append(out, task{Name: "Configure Firewall", File: "tasks/firewall.yml"})
	}
	return out
}

func firewallEnabled(r Requirements) bool {
	return r.Infra.HasSecurity("security_groups")
}

type playbookData struct {
	Project  string
	Provider provider
	Region   string
	Tasks    []task
}

// varsFile is vars/main.yml; it is marshalled so user-supplied names are always quoted correctly
type varsFile struct {
	ProjectName string   `yaml:"project_name"`
	Environment string   `yaml:"environment"`
	DBPassword  string   `yaml:"db_password"`
	SSLEnabled  bool     `yaml:"ssl_enabled"`
	Services    []string `yaml:"services,flow"`
	Firewall    bool     `yaml:"firewall_enabled"`
	Monitoring  bool     `yaml:"monitoring_enabled"`
	Backup      bool     `yaml:"backup_enabled"`
}

// Generate writes playbook, inventory, task files and vars into <outDir>/ansible
func Generate(outDir, project string, req Requirements) (Result, error) {
	dir := filepath.Join(outDir, "ansible")
	for _, sub := range []string{"tasks", "templates", "vars"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return Result{}, errors.Wrapf(err, "create %s directory", sub)
		}
	}

	p := providerFor(req.Cloud.Provider)
	region := req.Cloud.Region
	if region == "" {
		region = p.DefaultRegion
	}
	providerSpecific := p.tasks(req)

	g := &generator{dir: dir}
	g.render("playbook.yml", "playbook.yml.tmpl", playbookData{
		Project:  project,
		Provider: p,
		Region:   region,
		Tasks:    append(providerSpecific, serviceTasks(req)...),
	})
	g.render("inventory.ini", "inventory.ini.tmpl", p)
	services := req.Infra.Services
	if services == nil {
		services = []string{}
	}
	g.marshal("vars/main.yml", varsFile{
		ProjectName: project,
		Environment: "production",
		DBPassword:  "{{ vault_db_password }}",
		SSLEnabled:  req.Infra.SSL,
		Services:    services,
		Firewall:    firewallEnabled(req),
		Monitoring:  req.Cloud.Monitoring.Enabled || req.Infra.Monitoring,
		Backup:      req.Cloud.Backup.Enabled || req.Infra.Backup,
	})

	for _, t := range providerSpecific {
		g.render(t.File, "provider_task.yml.tmpl", t)
	}
	if req.Infra.HasService("nginx") {
		g.render("tasks/nginx.yml", "nginx.yml.tmpl", req.Infra)
		g.render("templates/nginx.conf.j2", "nginx.conf.j2.tmpl", nil)
	}
	if has(req.Infra.Databases, "postgresql") {
		g.render("tasks/postgresql.yml", "postgresql.yml.tmpl", nil)
	}
	if firewallEnabled(req) {
		g.render("tasks/firewall.yml", "firewall.yml.tmpl", nil)
	}
	if g.err != nil {
		return Result{}, g.err
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Ansible configuration generated for %s", project),
		FilesCreated: []string{
			filepath.Join(dir, "playbook.yml"),
			filepath.Join(dir, "inventory.ini"),
			filepath.Join(dir, "vars", "main.yml"),
		},
	}, nil
}

// generator stops at the first failed write
type generator struct {
	dir string
	err error
}

func (g *generator) render(rel, tmpl string, data any) {
	if g.err != nil {
		return
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		g.err = errors.Wrapf(err, "render %s", rel)
		return
	}
	g.write(rel, buf.Bytes())
}

func (g *generator) marshal(rel string, v any) {
	if g.err != nil {
		return
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		g.err = errors.Wrapf(err, "marshal %s", rel)
		return
	}
	g.write(rel, append([]byte("---\n"), data...))
}

func (g *generator) write(rel string, data []byte) {
	if err := os.WriteFile(filepath.Join(g.dir, rel), data, 0644); err != nil {
		g.err = errors.Wrapf(err, "write %s", rel)
	}
}

// Builder scrapes a project's design document and generates its Ansible configuration
type Builder struct {
	Root string
}

// Build never returns an error; failures are reported in the Result
func (b *Builder) Build(project, outDir string) Result {
	if project == "" {
		project = DefaultProject
	}
	if outDir == "" {
		outDir = filepath.Join(b.Root, project)
	}
	log.Info().Str("project", project).Str("output_dir", outDir).Msg("Generating Ansible configuration")

	result, err := b.build(project, outDir)
	if err != nil {
		log.Error().Err(err).Str("project", project).Msg("Ansible generation failed")
		return Result{
			Success: false,
			Error:   fmt.Sprintf("Failed to generate Ansible configuration: %v", errors.Cause(err)),
		}
	}
	return result
}

func (b *Builder) build(project, outDir string) (Result, error) {
	design, err := docs.ReadOptional(filepath.Join(outDir, "docs", "design.md"))
	if err != nil {
		return Result{}, err
	}
	req := DefaultRequirements()
	if design != "" {
		req = ParseRequirements(design)
	}
	return Generate(outDir, project, req)
}

func flowList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = strconv.Quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func has(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

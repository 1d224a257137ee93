// Package terraform generates Azure Terraform configurations from scraped
// design requirements.
package terraform

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"infra_crew/internal/docs"
	"infra_crew/internal/requirements"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// output file name -> template name
var files = []struct {
	name     string
	template string
}{
	{"main.tf", "main.tf.tmpl"},
	{"variables.tf", "variables.tf.tmpl"},
	{"outputs.tf", "outputs.tf.tmpl"},
	{"terraform.tfvars", "terraform.tfvars.tmpl"},
	{"README.md", "README.md.tmpl"},
}

// Result describes a generated configuration
type Result struct {
	Dir   string
	Files []string
}

type data struct {
	Project        string
	ProjectLower   string
	VPC            bool
	SecurityGroups bool
	SSL            bool
	Databases      []string
	LoadBalancer   bool
	Monitoring     bool
	Backup         bool
}

func newData(project string, req requirements.Infra) data {
	var dbs []string
	seen := map[string]bool{}
	for _, db := range req.Databases {
		// only engines with a flexible-server resource, once each
		if (db == "postgresql" || db == "mysql") && !seen[db] {
			seen[db] = true
			dbs = append(dbs, db)
		}
	}
	return data{
		Project:        project,
		ProjectLower:   strings.ToLower(project),
		VPC:            req.VPC,
		SecurityGroups: req.HasSecurity("security_groups"),
		SSL:            req.SSL,
		Databases:      dbs,
		LoadBalancer:   len(req.LoadBalancers) > 0,
		Monitoring:     req.Monitoring,
		Backup:         req.Backup,
	}
}

// Generate writes the Terraform files into <outDir>/terraform
func Generate(outDir, project string, req requirements.Infra) (Result, error) {
	dir := filepath.Join(outDir, "terraform")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Result{}, errors.Wrap(err, "create terraform directory")
	}

	d := newData(project, req)
	result := Result{Dir: dir}
	for _, f := range files {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, f.template, d); err != nil {
			return Result{}, errors.Wrapf(err, "render %s", f.name)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return Result{}, errors.Wrapf(err, "write %s", f.name)
		}
		result.Files = append(result.Files, path)
	}
	return result, nil
}

// Builder scrapes a project's design document and generates its Terraform
type Builder struct {
	Root string
}

// Build generates Terraform for project. outDir defaults to <Root>/<project>.
func (b *Builder) Build(project, outDir string) (string, error) {
	if project == "" {
		return "", docs.ErrProjectNameRequired
	}
	if outDir == "" {
		outDir = filepath.Join(b.Root, project)
	}
	log.Info().Str("project", project).Str("output_dir", outDir).Msg("Generating Terraform infrastructure")

	design, err := docs.ReadOptional(filepath.Join(outDir, "docs", "design.md"))
	if err != nil {
		return "", err
	}
	req := requirements.DefaultInfra()
	if design != "" {
		req = requirements.ParseInfra(design)
	}

	result, err := Generate(outDir, project, req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Terraform infrastructure successfully generated at %s", result.Dir), nil
}

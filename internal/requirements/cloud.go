package requirements

import (
	"fmt"
	"regexp"
	"strings"
)

// Cloud is the provider-level view used by the Ansible generator
type Cloud struct {
	Provider   string     `json:"cloud_provider"`
	Region     string     `json:"region"`
	Resources  Resources  `json:"resources"`
	Networking Networking `json:"networking"`
	Security   Security   `json:"security"`
	Monitoring Monitoring `json:"monitoring"`
	Backup     Backup     `json:"backup"`
	Scaling    Scaling    `json:"scaling"`
	Compliance []string   `json:"compliance"`
}

type Resources struct {
	Compute    []string `json:"compute"`
	Storage    []string `json:"storage"`
	Database   []string `json:"database"`
	Serverless []string `json:"serverless"`
}

type Networking struct {
	VPCRequired   bool     `json:"vpc_required"`
	LoadBalancers []string `json:"load_balancers"`
	VPN           bool     `json:"vpn"`
	NATGateway    bool     `json:"nat_gateway"`
}

type Security struct {
	Encryption    bool     `json:"encryption"`
	KeyManagement []string `json:"key_management"`
	AccessControl []string `json:"access_control"`
}

type Monitoring struct {
	Enabled bool     `json:"enabled"`
	Logging []string `json:"logging"`
}

type Backup struct {
	Enabled     bool   `json:"enabled"`
	Retention   string `json:"retention"`
	CrossRegion bool   `json:"cross_region"`
}

type Scaling struct {
	AutoScaling      bool `json:"auto_scaling"`
	LoadBalancing    bool `json:"load_balancing"`
	HighAvailability bool `json:"high_availability"`
}

const (
	ProviderAWS     = "aws"
	ProviderAzure   = "azure"
	ProviderGCP     = "gcp"
	ProviderUnknown = "unknown"

	DefaultRegion    = "us-east-1"
	DefaultRetention = "30 days"
)

var (
	awsRegionRe   = regexp.MustCompile(`us-[a-z]+-\d+|eu-[a-z]+-\d+|ap-[a-z]+-\d+`)
	azureRegionRe = regexp.MustCompile(`east us|west us|north europe|west europe|southeast asia`)
	gcpRegionRe   = regexp.MustCompile(`us-central\d+|us-east\d+|us-west\d+|europe-west\d+`)
	retentionRe   = regexp.MustCompile(`(\d+)\s*(day|week|month|year)s?`)
)

// DefaultCloud is used when a project has no design document yet
func DefaultCloud() Cloud {
	return Cloud{
		Provider:   ProviderUnknown,
		Region:     DefaultRegion,
		Resources:  Resources{Compute: []string{}, Storage: []string{}, Database: []string{}, Serverless: []string{}},
		Networking: Networking{LoadBalancers: []string{}},
		Security:   Security{KeyManagement: []string{}, AccessControl: []string{}},
		Monitoring: Monitoring{Logging: []string{}},
		Backup:     Backup{Retention: DefaultRetention},
		Compliance: []string{},
	}
}

// ParseCloud extracts provider, region and resource requirements
func ParseCloud(doc string) Cloud {
	text := strings.ToLower(doc)
	return Cloud{
		Provider:   DetectProvider(text),
		Region:     ExtractRegion(text),
		Resources:  extractResources(text),
		Networking: extractNetworking(text),
		Security:   extractSecurity(text),
		Monitoring: extractMonitoring(text),
		Backup: Backup{
			Enabled:     containsAny(text, "backup", "disaster recovery"),
			Retention:   ExtractRetention(text),
			CrossRegion: containsAny(text, "cross-region", "cross region"),
		},
		Scaling: Scaling{
			AutoScaling:      containsAny(text, "auto scaling", "autoscaling"),
			LoadBalancing:    strings.Contains(text, "load balancing"),
			HighAvailability: containsAny(text, "high availability", "multi-az"),
		},
		Compliance: applyRules(text, []keywordRule{
			{"gdpr", []string{"gdpr"}},
			{"hipaa", []string{"hipaa"}},
			{"sox", []string{"sox"}},
			{"pci", []string{"pci"}},
		}),
	}
}

// DetectProvider checks AWS, then Azure, then GCP
func DetectProvider(doc string) string {
	text := strings.ToLower(doc)
	switch {
	case containsAny(text, "aws", "amazon"):
		return ProviderAWS
	case containsAny(text, "azure", "microsoft"):
		return ProviderAzure
	case containsAny(text, "gcp", "google cloud"):
		return ProviderGCP
	default:
		return ProviderUnknown
	}
}

// ExtractRegion returns the first region mentioned, preferring AWS naming
func ExtractRegion(doc string) string {
	text := strings.ToLower(doc)
	if m := awsRegionRe.FindString(text); m != "" {
		return m
	}
	if m := azureRegionRe.FindString(text); m != "" {
		return strings.ReplaceAll(m, " ", "")
	}
	if m := gcpRegionRe.FindString(text); m != "" {
		return m
	}
	return DefaultRegion
}

// ExtractRetention finds the first "<n> <unit>" period, e.g. "7 days"
func ExtractRetention(doc string) string {
	m := retentionRe.FindStringSubmatch(strings.ToLower(doc))
	if m == nil {
		return DefaultRetention
	}
	return fmt.Sprintf("%s %ss", m[1], m[2])
}

func extractResources(text string) Resources {
	res := Resources{Compute: []string{}, Storage: []string{}, Database: []string{}, Serverless: []string{}}

	if containsAny(text, "ec2", "virtual machine") {
		if strings.Contains(text, "aws") {
			res.Compute = append(res.Compute, "ec2")
		} else {
			res.Compute = append(res.Compute, "vm")
		}
	}
	res.Serverless = applyRules(text, []keywordRule{
		{"lambda", []string{"lambda"}},
		{"cloud_functions", []string{"cloud functions"}},
		{"azure_functions", []string{"azure functions"}},
	})
	res.Storage = applyRules(text, []keywordRule{
		{"s3", []string{"s3"}},
		{"blob_storage", []string{"blob storage"}},
		{"cloud_storage", []string{"cloud storage"}},
	})
	res.Database = applyRules(text, []keywordRule{
		{"rds", []string{"rds"}},
		{"sql_database", []string{"sql database"}},
		{"cloud_sql", []string{"cloud sql"}},
		{"dynamodb", []string{"dynamodb"}},
		{"cosmosdb", []string{"cosmosdb"}},
	})
	return res
}

func extractNetworking(text string) Networking {
	return Networking{
		VPCRequired: containsAny(text, "vpc", "virtual network"),
		VPN:         strings.Contains(text, "vpn"),
		NATGateway:  strings.Contains(text, "nat"),
		LoadBalancers: applyRules(text, []keywordRule{
			{"alb", []string{"application load balancer", "alb"}},
			{"nlb", []string{"network load balancer", "nlb"}},
			{"application_gateway", []string{"application gateway"}},
		}),
	}
}

func extractSecurity(text string) Security {
	return Security{
		Encryption: strings.Contains(text, "encryption"),
		KeyManagement: applyRules(text, []keywordRule{
			{"kms", []string{"kms"}},
			{"key_vault", []string{"key vault"}},
		}),
		AccessControl: applyRules(text, []keywordRule{
			{"iam", []string{"iam"}},
			{"rbac", []string{"rbac"}},
			{"sso", []string{"sso"}},
		}),
	}
}

func extractMonitoring(text string) Monitoring {
	return Monitoring{
		Enabled: containsAny(text, "monitoring", "observability"),
		Logging: applyRules(text, []keywordRule{
			{"cloudwatch", []string{"cloudwatch"}},
			{"azure_monitor", []string{"azure monitor"}},
			{"stackdriver", []string{"stackdriver"}},
		}),
	}
}

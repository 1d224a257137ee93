package requirements

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseInfra(t *testing.T) {
	doc := `## Architecture
We run an NGINX web server in front of a Postgres database.
HTTPS only. A load balancer distributes traffic, firewall rules restrict access.
Daily backup with monitoring dashboards.`

	got := ParseInfra(doc)
	want := Infra{
		Services:      []string{"nginx"},
		Databases:     []string{"postgresql"},
		LoadBalancers: []string{"alb"},
		Monitoring:    true,
		SSL:           true,
		Backup:        true,
		Security:      []string{"security_groups"},
		VPC:           true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseInfra mismatch (-want +got):\n%s", diff)
	}
}

func TestParseInfraEmptyDocument(t *testing.T) {
	got := ParseInfra("")
	assert.Empty(t, got.Services)
	assert.Empty(t, got.Databases)
	assert.True(t, got.VPC)
	assert.False(t, got.SSL)
}

func TestDefaultInfra(t *testing.T) {
	d := DefaultInfra()
	assert.True(t, d.HasService("nginx"))
	assert.False(t, d.HasSecurity("security_groups"))
	assert.True(t, d.VPC)
}

func TestDetectProvider(t *testing.T) {
	cases := map[string]string{
		"Deploy on AWS with EC2":        ProviderAWS,
		"Microsoft Azure landing zone":  ProviderAzure,
		"Google Cloud project":          ProviderGCP,
		"on-prem rack":                  ProviderUnknown,
		"amazon and azure both listed":  ProviderAWS,
		"GCP first then nothing else":   ProviderGCP,
	}
	for doc, want := range cases {
		assert.Equal(t, want, DetectProvider(doc), doc)
	}
}

func TestExtractRegion(t *testing.T) {
	assert.Equal(t, "eu-west-1", ExtractRegion("primary region eu-west-1, dr in us-east-2"))
	assert.Equal(t, "westeurope", ExtractRegion("Deploy to West Europe"))
	assert.Equal(t, "us-central1", ExtractRegion("gke in us-central1"))
	assert.Equal(t, DefaultRegion, ExtractRegion("no region here"))
}

func TestExtractRetention(t *testing.T) {
	assert.Equal(t, "7 days", ExtractRetention("keep backups for 7 days"))
	assert.Equal(t, "2 weeks", ExtractRetention("retain 2 week snapshots"))
	assert.Equal(t, DefaultRetention, ExtractRetention("forever"))
}

func TestParseCloud(t *testing.T) {
	doc := `AWS deployment in us-west-2. EC2 instances behind an ALB inside a VPC with NAT.
Data in RDS and S3, encryption via KMS, IAM roles. CloudWatch monitoring.
Backup retained 14 days, cross-region copies. Multi-AZ for high availability. GDPR scope.`

	got := ParseCloud(doc)
	want := Cloud{
		Provider: ProviderAWS,
		Region:   "us-west-2",
		Resources: Resources{
			Compute:    []string{"ec2"},
			Storage:    []string{"s3"},
			Database:   []string{"rds"},
			Serverless: []string{},
		},
		Networking: Networking{
			VPCRequired:   true,
			LoadBalancers: []string{"alb"},
			NATGateway:    true,
		},
		Security: Security{
			Encryption:    true,
			KeyManagement: []string{"kms"},
			AccessControl: []string{"iam"},
		},
		Monitoring: Monitoring{Enabled: true, Logging: []string{"cloudwatch"}},
		Backup:     Backup{Enabled: true, Retention: "14 days", CrossRegion: true},
		Scaling:    Scaling{HighAvailability: true},
		Compliance: []string{"gdpr"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCloud mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCloudVirtualMachineWithoutAWS(t *testing.T) {
	got := ParseCloud("Azure virtual machine with blob storage")
	assert.Equal(t, ProviderAzure, got.Provider)
	assert.Equal(t, []string{"vm"}, got.Resources.Compute)
	assert.Equal(t, []string{"blob_storage"}, got.Resources.Storage)
}

func TestDefaultCloud(t *testing.T) {
	d := DefaultCloud()
	assert.Equal(t, ProviderUnknown, d.Provider)
	assert.Equal(t, DefaultRegion, d.Region)
	assert.Equal(t, DefaultRetention, d.Backup.Retention)
}

// Package requirements scrapes free-form design documents into the
// structured requirements the infrastructure generators consume.
package requirements

import "strings"

// Infra is the service-level view used by the Terraform generator
type Infra struct {
	Services      []string `json:"services"`
	Databases     []string `json:"databases"`
	LoadBalancers []string `json:"load_balancers"`
	Monitoring    bool     `json:"monitoring"`
	SSL           bool     `json:"ssl"`
	Backup        bool     `json:"backup"`
	Security      []string `json:"security"`
	VPC           bool     `json:"vpc"`
	AutoScaling   bool     `json:"auto_scaling"`
}

// HasService reports whether name is among the requested services
func (i Infra) HasService(name string) bool {
	return contains(i.Services, name)
}

// HasSecurity reports whether the security control was requested
func (i Infra) HasSecurity(name string) bool {
	return contains(i.Security, name)
}

// DefaultInfra is used when a project has no design document yet
func DefaultInfra() Infra {
	return Infra{
		Services:      []string{"nginx"},
		Databases:     []string{},
		LoadBalancers: []string{},
		Security:      []string{},
		VPC:           true,
	}
}

type keywordRule struct {
	value    string
	keywords []string
}

var serviceRules = []keywordRule{
	{"nginx", []string{"nginx", "web server"}},
	{"apache", []string{"apache"}},
	{"docker", []string{"docker", "container"}},
	{"redis", []string{"redis"}},
	{"elasticsearch", []string{"elasticsearch"}},
}

var databaseRules = []keywordRule{
	{"postgresql", []string{"postgresql", "postgres"}},
	{"mysql", []string{"mysql"}},
	{"mongodb", []string{"mongodb"}},
}

var securityRules = []keywordRule{
	{"security_groups", []string{"firewall", "security group"}},
	{"waf", []string{"waf", "web application firewall"}},
}

// ParseInfra extracts service-level requirements with case-insensitive substring checks
func ParseInfra(doc string) Infra {
	text := strings.ToLower(doc)

	req := Infra{
		Services:      applyRules(text, serviceRules),
		Databases:     applyRules(text, databaseRules),
		LoadBalancers: []string{},
		Security:      applyRules(text, securityRules),
		VPC:           true,
	}

	if containsAny(text, "load balancer", "load balancing") {
		req.LoadBalancers = append(req.LoadBalancers, "alb")
	}
	req.Monitoring = containsAny(text, "monitoring", "metrics")
	req.SSL = containsAny(text, "ssl", "tls", "https")
	req.Backup = containsAny(text, "backup", "disaster recovery")
	req.AutoScaling = containsAny(text, "auto scaling", "autoscaling")

	return req
}

func applyRules(text string, rules []keywordRule) []string {
	out := []string{}
	for _, rule := range rules {
		if containsAny(text, rule.keywords...) {
			out = append(out, rule.value)
		}
	}
	return out
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

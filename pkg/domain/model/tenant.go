package model

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Usage categories a repository can be excluded from for a tenant
const (
	CategoryJobs  = "jobs"
	CategoryRoles = "roles"
)

// Tenant is the normalized record of one tenant found during a scrape run
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ScrapeTime time.Time `json:"scrape_time"`
}

// NewTenant creates a Tenant whose ID is derived from its name
func NewTenant(name string, scrapeTime time.Time) *Tenant {
	return &Tenant{
		ID:         TenantID(name),
		Name:       name,
		ScrapeTime: scrapeTime,
	}
}

// TenantID returns the hex encoded SHA-1 digest of the tenant name
func TenantID(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// RepoTenants holds the tenants referencing one repository, per usage category.
// A tenant referencing the repository more than once appears more than once.
type RepoTenants struct {
	Jobs  []*Tenant `json:"jobs"`
	Roles []*Tenant `json:"roles"`
}

// JobNames returns the names of the tenants in Jobs, in order
func (r *RepoTenants) JobNames() []string {
	return tenantNames(r.Jobs)
}

// RoleNames returns the names of the tenants in Roles, in order
func (r *RepoTenants) RoleNames() []string {
	return tenantNames(r.Roles)
}

func tenantNames(tenants []*Tenant) []string {
	names := make([]string, 0, len(tenants))
	for _, t := range tenants {
		names = append(names, t.Name)
	}
	return names
}

// RepoTenantMap maps a repository name to the tenants referencing it
type RepoTenantMap map[string]*RepoTenants

// Entry returns the entry for repo, creating an empty one on first reference
func (m RepoTenantMap) Entry(repo string) *RepoTenants {
	entry, ok := m[repo]
	if !ok {
		entry = &RepoTenants{
			Jobs:  []*Tenant{},
			Roles: []*Tenant{},
		}
		m[repo] = entry
	}
	return entry
}

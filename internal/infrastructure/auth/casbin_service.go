package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"

	"github.com/you/mediahub/domain"
)

// AnonymousSubject is the casbin subject of requests without a valid token
const AnonymousSubject = "role_anonymous"

// PolicyModel is the RBAC model: every role inherits the anonymous grants
const PolicyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies are seeded when the policy table is empty
var DefaultPolicies = [][]string{
	{AnonymousSubject, "/api/login", "POST"},
	{AnonymousSubject, "/api/login/send-otp-token", "POST"},
	{AnonymousSubject, "/api/login/verify-otp-token", "POST"},
	{AnonymousSubject, "/api/login/methods", "GET"},
	{AnonymousSubject, "/api/password/reset", "POST"},
	{AnonymousSubject, "/api/password/change", "POST"},
	{AnonymousSubject, "/api/token/refresh", "POST"},
	{AnonymousSubject, "/api/token/verify", "POST"},
	{"role_admin", "/api/me", "GET"},
	{"role_client", "/api/me", "GET"},
	{"role_editor", "/api/me", "GET"},
}

// Subject maps a role to its casbin subject
func Subject(role domain.Role) string {
	if role == "" {
		return AnonymousSubject
	}
	return "role_" + string(role)
}

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService loads policies from the casbin_rule table
func NewCasbinService(db *gorm.DB) (*CasbinService, error) {
	adp, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return newCasbinService(adp)
}

// NewMemoryCasbinService keeps policies in memory only
func NewMemoryCasbinService() (*CasbinService, error) {
	return newCasbinService(nil)
}

func newCasbinService(adp *gormadapter.Adapter) (*CasbinService, error) {
	m, err := model.NewModelFromString(PolicyModel)
	if err != nil {
		return nil, err
	}

	var e *casbin.Enforcer
	if adp != nil {
		e, err = casbin.NewEnforcer(m, adp)
	} else {
		e, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, err
	}
	if adp != nil {
		if err := e.LoadPolicy(); err != nil {
			return nil, err
		}
	}
	return &CasbinService{E: e}, nil
}

// SeedDefaults installs DefaultPolicies and the role hierarchy when no
// policy exists yet. It reports whether anything was written.
func (s *CasbinService) SeedDefaults() (bool, error) {
	policies, err := s.E.GetPolicy()
	if err != nil {
		return false, err
	}
	if len(policies) > 0 {
		return false, nil
	}

	if _, err := s.E.AddPolicies(DefaultPolicies); err != nil {
		return false, fmt.Errorf("seed policies: %w", err)
	}
	for _, role := range domain.Roles {
		if _, err := s.E.AddGroupingPolicy(Subject(role), AnonymousSubject); err != nil {
			return false, fmt.Errorf("seed role %s: %w", role, err)
		}
	}
	return true, nil
}

// Allowed checks a role against a route and method
func (s *CasbinService) Allowed(role domain.Role, path, method string) (bool, error) {
	return s.E.Enforce(Subject(role), path, method)
}

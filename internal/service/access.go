package service

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

//go:embed policy/access.rego
var accessPolicy string

// AccessRules are the configured lists the access policy is evaluated against
type AccessRules struct {
	UserEmails       []string
	AdminEmails      []string
	OpenRegistration bool
	EmailDomain      string
}

// AccessDecision is the policy outcome for one e-mail
type AccessDecision struct {
	Allow bool `json:"allow"`
	Admin bool `json:"admin"`
}

// AccessPolicy decides whether an identity may use the portal and whether it
// has the admin role
type AccessPolicy struct {
	query rego.PreparedEvalQuery
	rules AccessRules
}

// NewAccessPolicy compiles the embedded policy
func NewAccessPolicy(ctx context.Context, rules AccessRules) (*AccessPolicy, error) {
	query, err := rego.New(
		rego.Query("data.portal.access.decision"),
		rego.Module("access.rego", accessPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile access policy: %w", err)
	}

	return &AccessPolicy{query: query, rules: rules}, nil
}

// Decide evaluates the policy for the given e-mail
func (p *AccessPolicy) Decide(ctx context.Context, email string) (AccessDecision, error) {
	input := map[string]any{
		"email":             strings.ToLower(email),
		"user_emails":       toAnySlice(p.rules.UserEmails),
		"admin_emails":      toAnySlice(p.rules.AdminEmails),
		"open_registration": p.rules.OpenRegistration,
		"email_domain":      p.rules.EmailDomain,
	}

	results, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return AccessDecision{}, fmt.Errorf("failed to evaluate access policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return AccessDecision{}, nil
	}

	value, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return AccessDecision{}, fmt.Errorf("unexpected access policy result %T", results[0].Expressions[0].Value)
	}

	allow, _ := value["allow"].(bool)
	admin, _ := value["admin"].(bool)
	return AccessDecision{Allow: allow, Admin: admin}, nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

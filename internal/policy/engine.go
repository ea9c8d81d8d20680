// Package policy decides access to conversations with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Actions checked against the policy.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
	ActionChat   = "chat"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Input is the document evaluated by the policy.
type Input struct {
	Action   string `json:"action"`
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	OwnerID  string `json:"owner_id"`
}

// Decision is the policy outcome.
type Decision struct {
	Decision string
	Reason   string
}

// Allowed reports whether access is granted.
func (d Decision) Allowed() bool {
	return d.Decision == DecisionAllow
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.conversation_access.result"),
		rego.Module("conversation_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks whether the caller may perform the action on a conversation.
// An undefined result is a denial.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionDeny, Reason: "undefined"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{Decision: DecisionDeny, Reason: "unexpected return type"}, nil
	}
	decision, _ := obj["decision"].(string)
	reason, _ := obj["reason"].(string)
	if decision != DecisionAllow {
		decision = DecisionDeny
	}
	return Decision{Decision: decision, Reason: reason}, nil
}

// DefaultPolicy grants access to the conversation owner only.
const DefaultPolicy = `
package conversation_access

default decision = "deny"

default reason = "not_owner"

decision = "allow" {
	input.user_id != ""
	input.user_id == input.owner_id
}

reason = "owner" {
	decision == "allow"
}

reason = "unauthenticated" {
	input.user_id == ""
}

result = {"decision": decision, "reason": reason}
`

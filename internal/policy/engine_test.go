package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name       string
		input      Input
		wantAllow  bool
		wantReason string
	}{
		{"owner reads", Input{Action: ActionRead, UserID: "u1", UserType: "student", OwnerID: "u1"}, true, "owner"},
		{"owner chats", Input{Action: ActionChat, UserID: "u1", UserType: "parent", OwnerID: "u1"}, true, "owner"},
		{"other user", Input{Action: ActionRead, UserID: "u2", UserType: "student", OwnerID: "u1"}, false, "not_owner"},
		{"admin is not exempt", Input{Action: ActionDelete, UserID: "a1", UserType: "admin", OwnerID: "u1"}, false, "not_owner"},
		{"anonymous", Input{Action: ActionRead, OwnerID: ""}, false, "unauthenticated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, d.Allowed())
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestUndefinedResultDenies(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package conversation_access

result = {"decision": "allow", "reason": "x"} {
	input.action == "never"
}
`)
	require.NoError(t, err)

	d, err := engine.Evaluate(ctx, Input{Action: ActionRead, UserID: "u1", OwnerID: "u1"})
	require.NoError(t, err)
	assert.False(t, d.Allowed())
	assert.Equal(t, "undefined", d.Reason)
}

func TestNewEngineRejectsInvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package conversation_access\n\nresult = {")
	assert.Error(t, err)
}

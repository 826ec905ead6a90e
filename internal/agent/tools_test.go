package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeLookupTool(t *testing.T) {
	tool := NewKnowledgeLookupTool(testStrategy("sales"))
	ctx := context.Background()

	out, err := tool.Execute(ctx, map[string]interface{}{"query": "can I cancel"})
	require.NoError(t, err)
	assert.Contains(t, out, "Q: Can I cancel anytime? A: Yes, with one click.")

	out, err = tool.Execute(ctx, map[string]interface{}{"query": "quantum physics"})
	require.NoError(t, err)
	assert.Equal(t, "No matching knowledge found", out)

	_, err = tool.Execute(ctx, map[string]interface{}{})
	assert.Error(t, err)

	assert.Equal(t, "object", tool.Schema()["type"])
}

func TestBuiltinTools(t *testing.T) {
	o := newTestOrchestrator(t, NewMockOracle())

	tools := o.BuiltinTools("sales")
	require.Len(t, tools, 1)
	assert.Equal(t, "knowledge_lookup", tools[0].Name())

	assert.Nil(t, o.BuiltinTools("missing"))
}

package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
)

func newTestCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store := catalog.NewStore(t.TempDir(), nil)
	require.NoError(t, store.SaveEntityMap(catalog.EntityMapFrom([]catalog.EntityInfo{
		{LogicalName: "account", DisplayName: "Account"},
		{LogicalName: "new_project", DisplayName: "Project"},
	})))
	require.NoError(t, store.SaveFieldFile("account", []catalog.ColumnDescriptor{
		{LogicalName: "emailaddress1", DisplayName: "Email", Type: "String"},
		{LogicalName: "telephone1", DisplayName: "Main Phone", Type: "String"},
		{LogicalName: "primarycontactid", DisplayName: "Primary Contact", Type: catalog.TypeLookup, Targets: []string{"contact"}},
		{
			LogicalName: "statuscode", DisplayName: "Status Reason", Type: catalog.TypeStatus,
			OptionSet: []catalog.Option{{Value: 1, Label: "Active"}, {Value: 2, Label: "Inactive"}},
		},
	}))
	return store
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	var text string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text += tc.Text
		}
	}
	return result, text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"resolve_requirements", resolveRequirementsTool, "resolve_requirements"},
		{"resolve_fields", resolveFieldsTool, "resolve_fields"},
		{"plugin_image_advice", pluginImageAdviceTool, "plugin_image_advice"},
		{"list_entities", listEntitiesTool, "list_entities"},
		{"describe_field", describeFieldTool, "describe_field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(newTestCatalog(t), nil, "")

	require.NotNil(t, srv)
	require.NotNil(t, srv.mcp)
	assert.Equal(t, advisory.PostOperation, srv.stage)
}

func TestHandleResolveRequirements(t *testing.T) {
	srv := NewServer(newTestCatalog(t), nil, "")

	t.Run("complete description", func(t *testing.T) {
		result, text := callTool(t, srv.handleResolveRequirements, map[string]any{
			"text": "I need to update the account email when it changes.",
		})
		require.False(t, result.IsError, text)
		for _, want := range []string{"Entity: account", "Trigger: update", "Fields: emailaddress1", "Ready: true"} {
			assert.Contains(t, text, want)
		}
	})

	t.Run("partial description", func(t *testing.T) {
		_, text := callTool(t, srv.handleResolveRequirements, map[string]any{"text": "send an email"})
		assert.Contains(t, text, "Missing: entity, trigger, logic")
		assert.Contains(t, text, "Fields: *pending*")
	})

	t.Run("missing text", func(t *testing.T) {
		result, _ := callTool(t, srv.handleResolveRequirements, map[string]any{})
		assert.True(t, result.IsError)
	})
}

func TestHandleResolveFields(t *testing.T) {
	var asked bool
	oracle := llm.OracleFunc(func(ctx context.Context, system string, turns []llm.Message) (string, error) {
		asked = true
		return "telephone1", nil
	})
	srv := NewServer(newTestCatalog(t), oracle, "")

	t.Run("several matches", func(t *testing.T) {
		_, text := callTool(t, srv.handleResolveFields, map[string]any{
			"table": "Account",
			"text":  "copy telephone1 into the email",
		})
		assert.Equal(t, "emailaddress1\ntelephone1", text)
		assert.False(t, asked, "oracle should not be asked without disambiguate")
	})

	t.Run("disambiguated", func(t *testing.T) {
		_, text := callTool(t, srv.handleResolveFields, map[string]any{
			"table":        "account",
			"text":         "copy telephone1 into the email",
			"disambiguate": true,
		})
		assert.Equal(t, "telephone1", text)
	})

	t.Run("unknown table", func(t *testing.T) {
		result, text := callTool(t, srv.handleResolveFields, map[string]any{"table": "contact", "text": "email"})
		assert.True(t, result.IsError)
		assert.Contains(t, text, "catalog sync")
	})
}

func TestHandlePluginImageAdvice(t *testing.T) {
	srv := NewServer(newTestCatalog(t), nil, advisory.PreOperation)

	_, text := callTool(t, srv.handlePluginImageAdvice, map[string]any{"trigger": "update"})
	assert.Contains(t, text, "Pre-Operation Stage:")
	assert.Contains(t, text, "Post-Image available: false")

	_, text = callTool(t, srv.handlePluginImageAdvice, map[string]any{"trigger": "create", "stage": "PostOperation"})
	assert.Contains(t, text, "Image Suggestion: Use Post-Image for values after operation.")

	result, _ := callTool(t, srv.handlePluginImageAdvice, map[string]any{"trigger": "create", "stage": "Later"})
	assert.True(t, result.IsError)
}

func TestHandleListEntities(t *testing.T) {
	srv := NewServer(newTestCatalog(t), nil, "")
	_, text := callTool(t, srv.handleListEntities, map[string]any{})
	assert.Equal(t, "account\nnew_project (project)\n", text)

	empty := NewServer(catalog.NewStore(t.TempDir(), nil), nil, "")
	_, text = callTool(t, empty.handleListEntities, map[string]any{})
	assert.Contains(t, text, "empty")
}

func TestHandleDescribeField(t *testing.T) {
	srv := NewServer(newTestCatalog(t), nil, "")

	_, text := callTool(t, srv.handleDescribeField, map[string]any{"table": "account", "field": "primarycontactid"})
	assert.Contains(t, text, "Targets: contact")

	_, text = callTool(t, srv.handleDescribeField, map[string]any{"table": "account", "field": "statuscode"})
	assert.Contains(t, text, "2 = Inactive")

	_, text = callTool(t, srv.handleDescribeField, map[string]any{"table": "account", "field": "statuscode", "option_label": "inactive"})
	assert.Equal(t, "2", text)

	result, _ := callTool(t, srv.handleDescribeField, map[string]any{"table": "account", "field": "statuscode", "option_label": "Archived"})
	assert.True(t, result.IsError, "unknown option label")

	result, _ = callTool(t, srv.handleDescribeField, map[string]any{"table": "account", "field": "fax"})
	assert.True(t, result.IsError, "unknown column")
}

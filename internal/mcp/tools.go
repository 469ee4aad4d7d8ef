package mcp

import "github.com/mark3labs/mcp-go/mcp"

// resolveRequirementsTool defines the resolve_requirements MCP tool.
var resolveRequirementsTool = mcp.NewTool("resolve_requirements",
	mcp.WithDescription("Extract the Dynamics 365 plug-in requirements (table, trigger message, columns, business logic) from a free-text description, using the cached catalog."),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("The requirement as the user described it"),
	),
)

// resolveFieldsTool defines the resolve_fields MCP tool.
var resolveFieldsTool = mcp.NewTool("resolve_fields",
	mcp.WithDescription("Match column names or display names mentioned in text against one table's cached columns."),
	mcp.WithString("table",
		mcp.Required(),
		mcp.Description("Logical name of the table, e.g. account"),
	),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Text mentioning one or more columns"),
	),
	mcp.WithBoolean("disambiguate",
		mcp.Description("Ask the language model to pick one column when several match (default false)"),
	),
)

// pluginImageAdviceTool defines the plugin_image_advice MCP tool.
var pluginImageAdviceTool = mcp.NewTool("plugin_image_advice",
	mcp.WithDescription("Explain which pre/post entity images a plug-in step can use for a message and pipeline stage."),
	mcp.WithString("trigger",
		mcp.Required(),
		mcp.Description("Message the step is registered on"),
		mcp.Enum("create", "update", "delete", "assign"),
	),
	mcp.WithString("stage",
		mcp.Description("Pipeline stage (default PostOperation)"),
		mcp.Enum("PreValidation", "PreOperation", "PostOperation"),
	),
)

// listEntitiesTool defines the list_entities MCP tool.
var listEntitiesTool = mcp.NewTool("list_entities",
	mcp.WithDescription("List the tables known to the cached catalog, with the display names that resolve to them."),
)

// describeFieldTool defines the describe_field MCP tool.
var describeFieldTool = mcp.NewTool("describe_field",
	mcp.WithDescription("Show a cached column's type, lookup targets and choice options. With option_label, resolve that label to its numeric option value."),
	mcp.WithString("table",
		mcp.Required(),
		mcp.Description("Logical name of the table"),
	),
	mcp.WithString("field",
		mcp.Required(),
		mcp.Description("Logical name of the column"),
	),
	mcp.WithString("option_label",
		mcp.Description("Choice label to translate into its numeric value"),
	),
)

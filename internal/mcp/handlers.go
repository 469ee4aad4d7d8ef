package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/advisory"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/llm"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/resolver"
)

const noCatalogHint = "Run `pluginassist catalog sync` to fetch it."

// handleResolveRequirements extracts a requirements record from one description.
func (s *Server) handleResolveRequirements(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	transcript := []llm.Message{{Role: llm.RoleUser, Content: text}}
	rec, err := requirements.Extract(ctx, transcript, s.catalog, s.oracle)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatRecord(rec)), nil
}

// handleResolveFields matches text against one table's columns.
func (s *Server) handleResolveFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: table"), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}

	fields, err := s.catalog.FieldMap(strings.ToLower(table))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load fields: %v", err)), nil
	}
	if fields.Len() == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("No cached columns for %q. %s", table, noCatalogHint)), nil
	}

	found := resolver.ResolveFields(fields, text)
	if len(found) == 0 {
		return mcp.NewToolResultText("No matching columns."), nil
	}
	if request.GetBool("disambiguate", false) {
		found, err = resolver.Disambiguate(ctx, s.oracle, text, found)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	return mcp.NewToolResultText(strings.Join(found, "\n")), nil
}

// handlePluginImageAdvice describes image availability for a message and stage.
func (s *Server) handlePluginImageAdvice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trigger, err := request.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: trigger"), nil
	}

	stage := s.stage
	if raw := request.GetString("stage", ""); raw != "" {
		stage, err = advisory.ParseStage(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	resp := advisory.Lookup(trigger, stage)
	var sb strings.Builder
	sb.WriteString(resp.Guideline)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Pre-Image available: %t\n", resp.Images.PreImage)
	fmt.Fprintf(&sb, "Post-Image available: %t\n", resp.Images.PostImage)
	fmt.Fprintf(&sb, "Image Suggestion: %s\n", resp.Images.Recommended)
	return mcp.NewToolResultText(sb.String()), nil
}

// handleListEntities lists the cached entity map.
func (s *Server) handleListEntities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	em, err := s.catalog.LoadEntityMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load entity map: %v", err)), nil
	}
	if em.Len() == 0 {
		return mcp.NewToolResultText("The entity map is empty. " + noCatalogHint), nil
	}

	names := make(map[string][]string)
	em.Each(func(key, logical string) bool {
		if key != logical {
			names[logical] = append(names[logical], key)
		}
		return true
	})

	var sb strings.Builder
	for _, logical := range em.Logicals() {
		sb.WriteString(logical)
		if aliases := names[logical]; len(aliases) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(aliases, ", "))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleDescribeField shows one cached column, or resolves an option label.
func (s *Server) handleDescribeField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: table"), nil
	}
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: field"), nil
	}

	ff, err := s.catalog.LoadFieldFile(strings.ToLower(table))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load fields: %v", err)), nil
	}
	col, ok := ff.Column(field)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("No cached column %q on %q. %s", field, table, noCatalogHint)), nil
	}

	if label := request.GetString("option_label", ""); label != "" {
		value, ok := ff.OptionValue(field, label)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("%s has no option labelled %q", col.LogicalName, label)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%d", value)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Logical name: %s\n", col.LogicalName)
	fmt.Fprintf(&sb, "Display name: %s\n", col.DisplayName)
	fmt.Fprintf(&sb, "Type: %s\n", col.Type)
	if len(col.Targets) > 0 {
		fmt.Fprintf(&sb, "Targets: %s\n", strings.Join(col.Targets, ", "))
	}
	if len(col.OptionSet) > 0 {
		sb.WriteString("Options:\n")
		for _, opt := range col.OptionSet {
			fmt.Fprintf(&sb, "  %d = %s\n", opt.Value, opt.Label)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatRecord renders a record with what is still missing.
func formatRecord(rec requirements.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Entity: %s\n", rec.Entity)
	fmt.Fprintf(&sb, "Trigger: %s\n", rec.Trigger)
	fmt.Fprintf(&sb, "Fields: %s\n", rec.Fields)
	fmt.Fprintf(&sb, "Logic: %s\n", rec.Logic)
	if missing := rec.Missing(); len(missing) > 0 {
		fmt.Fprintf(&sb, "Missing: %s\n", strings.Join(missing, ", "))
	}
	fmt.Fprintf(&sb, "Ready: %t\n", rec.Ready())
	return sb.String()
}

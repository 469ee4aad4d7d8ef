// Package metadata reads table and column metadata from the Dataverse Web API.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/apperrors"
	"github.com/ziadkadry99/d365-plugin-assistant/internal/catalog"
)

const serviceName = "dataverse"

// Client fetches metadata with a cached client-credentials token.
type Client struct {
	cfg    *ConnectionConfig
	http   *http.Client
	tokens *tokenCache
	logger *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for both token and metadata calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient loads the connection file at configPath and returns a Client.
// No network call is made until the first metadata request.
func NewClient(configPath string, opts ...Option) (*Client, error) {
	cfg, err := LoadConnectionConfig(configPath)
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(cfg, opts...), nil
}

// NewClientFromConfig returns a Client for an already validated config.
func NewClientFromConfig(cfg *ConnectionConfig, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		tokens: newTokenCache(cfg),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type localizedLabel struct {
	UserLocalizedLabel *struct {
		Label string `json:"Label"`
	} `json:"UserLocalizedLabel"`
}

func (l *localizedLabel) text(fallback string) string {
	if l == nil || l.UserLocalizedLabel == nil || l.UserLocalizedLabel.Label == "" {
		return fallback
	}
	return l.UserLocalizedLabel.Label
}

type attributeRecord struct {
	LogicalName   string          `json:"LogicalName"`
	DisplayName   *localizedLabel `json:"DisplayName"`
	AttributeType string          `json:"AttributeType"`
}

type lookupRecord struct {
	Targets []string `json:"Targets"`
}

type optionRecord struct {
	Value int             `json:"Value"`
	Label *localizedLabel `json:"Label"`
}

type optionSetRecord struct {
	OptionSet *struct {
		Options []optionRecord `json:"Options"`
	} `json:"OptionSet"`
	GlobalOptionSet *struct {
		Options []optionRecord `json:"Options"`
	} `json:"GlobalOptionSet"`
}

// GetAttributes returns the columns of table in the order the service lists
// them. Lookup targets and option sets are fetched per column; a failing
// sub-request leaves that part empty and is only logged.
func (c *Client) GetAttributes(ctx context.Context, table string) ([]catalog.ColumnDescriptor, error) {
	token, err := c.tokens.Token(c.tokenContext(ctx))
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%s/EntityDefinitions(LogicalName='%s')", c.cfg.APIURL(), odataLiteral(table))
	var listing struct {
		Value []attributeRecord `json:"value"`
	}
	if err := c.getJSON(ctx, token, base+"/Attributes?$select=LogicalName,DisplayName,AttributeType", &listing); err != nil {
		return nil, fmt.Errorf("listing attributes of %s: %w", table, err)
	}

	seen := make(map[string]bool, len(listing.Value))
	cols := make([]catalog.ColumnDescriptor, 0, len(listing.Value))
	for _, attr := range listing.Value {
		if attr.LogicalName == "" || seen[attr.LogicalName] {
			continue
		}
		seen[attr.LogicalName] = true

		col := catalog.ColumnDescriptor{
			LogicalName: attr.LogicalName,
			DisplayName: attr.DisplayName.text(attr.LogicalName),
			Type:        catalog.AttributeType(attr.AttributeType),
			Targets:     []string{},
			OptionSet:   []catalog.Option{},
		}
		if col.Type == "" {
			col.Type = catalog.TypeUnknown
		}

		attrURL := fmt.Sprintf("%s/Attributes(LogicalName='%s')", base, odataLiteral(attr.LogicalName))
		switch {
		case col.Type.IsLookup():
			col.Targets = c.lookupTargets(ctx, token, table, attrURL, attr.LogicalName)
		case col.Type.IsChoice():
			col.OptionSet = c.optionSet(ctx, token, table, attrURL, attr.LogicalName)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (c *Client) lookupTargets(ctx context.Context, token, table, attrURL, logical string) []string {
	var rec lookupRecord
	if err := c.getJSON(ctx, token, attrURL+"/Microsoft.Dynamics.CRM.LookupAttributeMetadata", &rec); err != nil {
		c.logger.Warn("lookup targets fetch failed",
			zap.String("table", table),
			zap.String("attribute", logical),
			zap.Error(err),
		)
		return []string{}
	}
	if rec.Targets == nil {
		return []string{}
	}
	return rec.Targets
}

func (c *Client) optionSet(ctx context.Context, token, table, attrURL, logical string) []catalog.Option {
	variant := "PicklistAttributeMetadata"
	switch logical {
	case "statecode":
		variant = "StateAttributeMetadata"
	case "statuscode":
		variant = "StatusAttributeMetadata"
	}
	u := attrURL + "/Microsoft.Dynamics.CRM." + variant +
		"?$expand=OptionSet($select=Options),GlobalOptionSet($select=Options)"

	var rec optionSetRecord
	if err := c.getJSON(ctx, token, u, &rec); err != nil {
		c.logger.Warn("option set fetch failed",
			zap.String("table", table),
			zap.String("attribute", logical),
			zap.Error(err),
		)
		return []catalog.Option{}
	}

	var raw []optionRecord
	switch {
	case rec.OptionSet != nil && len(rec.OptionSet.Options) > 0:
		raw = rec.OptionSet.Options
	case rec.GlobalOptionSet != nil && len(rec.GlobalOptionSet.Options) > 0:
		raw = rec.GlobalOptionSet.Options
	}

	opts := make([]catalog.Option, 0, len(raw))
	for _, o := range raw {
		opts = append(opts, catalog.Option{
			Value: o.Value,
			Label: o.Label.text(fmt.Sprint(o.Value)),
		})
	}
	return opts
}

// SolutionEntities lists the tables that are components of the solution with
// the given unique name.
func (c *Client) SolutionEntities(ctx context.Context, uniqueName string) ([]catalog.EntityInfo, error) {
	token, err := c.tokens.Token(c.tokenContext(ctx))
	if err != nil {
		return nil, err
	}
	api := c.cfg.APIURL()

	var solutions struct {
		Value []struct {
			SolutionID string `json:"solutionid"`
		} `json:"value"`
	}
	solURL := api + "/solutions?$filter=" + odataFilter("uniquename eq '"+odataLiteral(uniqueName)+"'") + "&$select=solutionid"
	if err := c.getJSON(ctx, token, solURL, &solutions); err != nil {
		return nil, fmt.Errorf("looking up solution %s: %w", uniqueName, err)
	}
	if len(solutions.Value) == 0 {
		return nil, apperrors.NewUpstreamError(serviceName, solURL, http.StatusNotFound,
			"no solution found for unique name "+uniqueName)
	}
	solutionID := solutions.Value[0].SolutionID

	var components struct {
		Value []struct {
			ObjectID string `json:"objectid"`
		} `json:"value"`
	}
	compURL := api + "/solutioncomponents?$filter=" +
		odataFilter("_solutionid_value eq '"+solutionID+"' and componenttype eq 1") + "&$select=objectid"
	if err := c.getJSON(ctx, token, compURL, &components); err != nil {
		return nil, fmt.Errorf("listing components of solution %s: %w", uniqueName, err)
	}
	c.logger.Debug("solution components listed",
		zap.String("solution", uniqueName),
		zap.Int("entities", len(components.Value)),
	)

	entities := make([]catalog.EntityInfo, 0, len(components.Value))
	for _, comp := range components.Value {
		var def struct {
			LogicalName string          `json:"LogicalName"`
			DisplayName *localizedLabel `json:"DisplayName"`
		}
		defURL := fmt.Sprintf("%s/EntityDefinitions(%s)?$select=LogicalName,DisplayName", api, comp.ObjectID)
		if err := c.getJSON(ctx, token, defURL, &def); err != nil {
			return nil, fmt.Errorf("reading entity definition %s: %w", comp.ObjectID, err)
		}
		entities = append(entities, catalog.EntityInfo{
			MetadataID:  comp.ObjectID,
			LogicalName: def.LogicalName,
			DisplayName: def.DisplayName.text(def.LogicalName),
		})
	}
	return entities, nil
}

// tokenContext makes the token request use the same HTTP client.
func (c *Client) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *Client) getJSON(ctx context.Context, token, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.WrapUpstream(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewUpstreamError(serviceName, u, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return nil
}

// odataLiteral escapes a value for use inside a quoted OData string.
func odataLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// odataFilter escapes a filter expression for the query string.
func odataFilter(expr string) string {
	return strings.ReplaceAll(url.QueryEscape(expr), "+", "%20")
}

package sercop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/sercop-mcp/mcp"
)

// Tool names
const (
	ToolListDatasets     = "list-datasets"
	ToolSearchProcesses  = "search-processes"
	ToolGetProcessByOCID = "get-process-by-ocid"
)

// Texts returned in place of data when the upstream call fails
const (
	FailedDatasets  = "Failed to fetch datasets."
	FailedProcesses = "Failed to fetch contracting processes."
	FailedRecord    = "Failed to fetch process by OCID."
)

// MinYear is the first year with published OCDS data
const MinYear = 2015

// maxQueryInt bounds integer arguments so they convert to int without overflow
const maxQueryInt = math.MaxInt32

const (
	defaultSearchPath = "/search_ocds"
	defaultRecordPath = "/record"
)

// SearchArgs are the arguments of search-processes.
// Zero values mean "not provided".
type SearchArgs struct {
	Year     int
	Search   string
	Page     int
	Buyer    string
	Supplier string
}

// Query builds the /search_ocds query. year and search are always present;
// page, buyer and supplier only when set. A zero page counts as unset.
func (a SearchArgs) Query() Query {
	var q Query
	q.Add("year", strconv.Itoa(a.Year))
	q.Add("search", a.Search)
	if a.Page != 0 {
		q.Add("page", strconv.Itoa(a.Page))
	}
	if a.Buyer != "" {
		q.Add("buyer", a.Buyer)
	}
	if a.Supplier != "" {
		q.Add("supplier", a.Supplier)
	}
	return q
}

// RecordArgs are the arguments of get-process-by-ocid
type RecordArgs struct {
	OCID string `json:"ocid"`
}

// Query builds the /record query
func (a RecordArgs) Query() Query {
	var q Query
	q.Add("ocid", a.OCID)
	return q
}

// Tools binds the SERCOP tools to a client
type Tools struct {
	client       *Client
	searchPath   string
	recordPath   string
	datasetsPath string
	descriptions map[string]string
}

// ToolsOption configures Tools
type ToolsOption func(*Tools)

// WithDatasetsEndpoint sets the API path used by list-datasets
func WithDatasetsEndpoint(path string) ToolsOption {
	return func(t *Tools) {
		t.datasetsPath = path
	}
}

// NewTools resolves endpoint paths and descriptions from catalog, which may be nil
func NewTools(client *Client, catalog *Catalog, opts ...ToolsOption) *Tools {
	t := &Tools{
		client:     client,
		searchPath: defaultSearchPath,
		recordPath: defaultRecordPath,
		descriptions: map[string]string{
			ToolListDatasets:     "List all available datasets from the SERCOP API",
			ToolSearchProcesses:  "Search contracting processes by keyword, year, and optional filters (buyer, supplier, page)",
			ToolGetProcessByOCID: "Get a contracting process by its OCID identifier",
		},
	}

	if catalog != nil {
		for tool, id := range map[string]string{
			ToolListDatasets:     OperationListDatasets,
			ToolSearchProcesses:  OperationSearchProcesses,
			ToolGetProcessByOCID: OperationGetProcessByOCID,
		} {
			op, ok := catalog.Operation(id)
			if !ok {
				continue
			}
			switch tool {
			case ToolListDatasets:
				t.datasetsPath = op.Path
			case ToolSearchProcesses:
				t.searchPath = op.Path
			case ToolGetProcessByOCID:
				t.recordPath = op.Path
			}
			if op.Summary != "" {
				t.descriptions[tool] = op.Summary
			}
		}
	}

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Definitions returns the MCP tool definitions in their listing order
func (t *Tools) Definitions() []mcp.ToolDefinition {
	return []mcp.ToolDefinition{
		{
			Tool: mcp.Tool{
				Name:        ToolListDatasets,
				Description: t.descriptions[ToolListDatasets],
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			Handler: t.listDatasets,
		},
		{
			Tool: mcp.Tool{
				Name:        ToolSearchProcesses,
				Description: t.descriptions[ToolSearchProcesses],
				InputSchema: searchSchema(),
			},
			Handler: t.searchProcesses,
		},
		{
			Tool: mcp.Tool{
				Name:        ToolGetProcessByOCID,
				Description: t.descriptions[ToolGetProcessByOCID],
				InputSchema: recordSchema(),
			},
			Handler: t.getProcessByOCID,
		},
	}
}

func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"year": {
				Type:        "integer",
				Minimum:     float64Ptr(MinYear),
				Maximum:     float64Ptr(maxQueryInt),
				Description: "Year of the contracting process (e.g., 2015 to current year)",
			},
			"search": {
				Type:        "string",
				MinLength:   intPtr(3),
				Description: "Keyword to search (at least 3 characters)",
			},
			"page": {
				Type:        "integer",
				Minimum:     float64Ptr(1),
				Maximum:     float64Ptr(maxQueryInt),
				Description: "Page number (optional, >0)",
			},
			"buyer": {
				Type:        "string",
				MinLength:   intPtr(3),
				Description: "Buyer institution keyword (optional, at least 3 characters)",
			},
			"supplier": {
				Type:        "string",
				MinLength:   intPtr(3),
				Description: "Supplier keyword (optional, at least 3 characters)",
			},
		},
		Required: []string{"year", "search"},
	}
}

func recordSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"ocid": {
				Type:        "string",
				MinLength:   intPtr(1),
				Description: "The OCID identifier of the contracting process",
			},
		},
		Required: []string{"ocid"},
	}
}

func (t *Tools) listDatasets(ctx context.Context, _ json.RawMessage) (*mcp.ToolCallResponse, error) {
	if t.datasetsPath == "" {
		t.client.logger.Error("SERCOP API error",
			"call", mcp.CallID(ctx),
			"tool", ToolListDatasets,
			"error", "dataset listing endpoint is not configured")
		return mcp.NewTextResponse(FailedDatasets), nil
	}
	return t.fetchText(ctx, t.datasetsPath, Query{}, FailedDatasets), nil
}

func (t *Tools) searchProcesses(ctx context.Context, arguments json.RawMessage) (*mcp.ToolCallResponse, error) {
	// Numbers are decoded as float64 because the schema accepts 2024.0 as an integer.
	var wire struct {
		Year     float64 `json:"year"`
		Search   string  `json:"search"`
		Page     float64 `json:"page"`
		Buyer    string  `json:"buyer"`
		Supplier string  `json:"supplier"`
	}
	if err := json.Unmarshal(arguments, &wire); err != nil {
		return nil, fmt.Errorf("error decoding %s arguments: %w", ToolSearchProcesses, err)
	}

	args := SearchArgs{
		Year:     int(wire.Year),
		Search:   wire.Search,
		Page:     int(wire.Page),
		Buyer:    wire.Buyer,
		Supplier: wire.Supplier,
	}
	return t.fetchText(ctx, t.searchPath, args.Query(), FailedProcesses), nil
}

func (t *Tools) getProcessByOCID(ctx context.Context, arguments json.RawMessage) (*mcp.ToolCallResponse, error) {
	var args RecordArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, fmt.Errorf("error decoding %s arguments: %w", ToolGetProcessByOCID, err)
	}
	return t.fetchText(ctx, t.recordPath, args.Query(), FailedRecord), nil
}

// fetchText calls the API and renders the body as indented JSON, or returns
// failure as the only content when the call fails.
func (t *Tools) fetchText(ctx context.Context, endpoint string, query Query, failure string) *mcp.ToolCallResponse {
	data, err := t.client.Fetch(ctx, endpoint, query)
	if err != nil {
		t.logFailure(ctx, endpoint, err)
		return mcp.NewTextResponse(failure)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		t.logFailure(ctx, endpoint, &Error{Kind: KindDecode, Endpoint: endpoint, Err: err})
		return mcp.NewTextResponse(failure)
	}
	return mcp.NewTextResponse(buf.String())
}

func (t *Tools) logFailure(ctx context.Context, endpoint string, err error) {
	attrs := []any{"call", mcp.CallID(ctx), "endpoint", endpoint}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		attrs = append(attrs, "kind", apiErr.Kind.String())
		if apiErr.StatusCode != 0 {
			attrs = append(attrs, "status", apiErr.StatusCode)
		}
	}
	attrs = append(attrs, "error", err)

	t.client.logger.Error("SERCOP API error", attrs...)
}

func intPtr(v int) *int { return &v }

func float64Ptr(v float64) *float64 { return &v }

package sercop

import (
	_ "embed"
	"fmt"

	"github.com/pb33f/libopenapi"
)

// Operation ids of the upstream API description
const (
	OperationSearchProcesses  = "searchProcesses"
	OperationGetProcessByOCID = "getProcessByOCID"
	OperationListDatasets     = "listDatasets"
)

//go:embed openapi.yaml
var apiDescription []byte

// Operation is a GET operation of the upstream API
type Operation struct {
	ID          string
	Path        string
	Summary     string
	Description string
}

// Catalog indexes the read-only operations of an OpenAPI description by operationId
type Catalog struct {
	serverURL  string
	operations map[string]Operation
}

// DefaultCatalog loads the embedded description of the SERCOP API
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(apiDescription)
}

// LoadCatalog parses an OpenAPI 3 document
func LoadCatalog(data []byte) (*Catalog, error) {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing API description: %w", err)
	}

	model, errs := doc.BuildV3Model()
	if errs != nil {
		return nil, fmt.Errorf("error building OpenAPI model: %v", errs)
	}
	if model == nil {
		return nil, fmt.Errorf("API description is not an OpenAPI 3 document")
	}

	c := &Catalog{operations: make(map[string]Operation)}
	if len(model.Model.Servers) > 0 && model.Model.Servers[0] != nil {
		c.serverURL = model.Model.Servers[0].URL
	}

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil {
		return c, nil
	}

	for pair := model.Model.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path := pair.Key()
		op := pair.Value().Get
		if op == nil || op.OperationId == "" {
			continue
		}
		if _, exists := c.operations[op.OperationId]; exists {
			return nil, fmt.Errorf("duplicate operationId %q", op.OperationId)
		}
		c.operations[op.OperationId] = Operation{
			ID:          op.OperationId,
			Path:        path,
			Summary:     op.Summary,
			Description: op.Description,
		}
	}

	return c, nil
}

// ServerURL returns the first server URL of the description
func (c *Catalog) ServerURL() string {
	return c.serverURL
}

// Operation looks up a GET operation by operationId
func (c *Catalog) Operation(id string) (Operation, bool) {
	op, ok := c.operations[id]
	return op, ok
}

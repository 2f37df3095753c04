// Package transform serves view generation as a template macro: the caller
// sends a request id and a parameter bag and receives the generated fragment.
package transform

import (
	"encoding/json"
	"fmt"

	"github.com/pagopa/cdcview/viewgen"
)

// OutputType selects the artifact returned as fragment.
type OutputType string

const (
	OutputStorageColumns                  OutputType = "StorageDescriptor-Columns"
	OutputStorageColumnsNoParsedPartition OutputType = "StorageDescriptor-Columns-noParsedPartition"
	OutputViewText                        OutputType = "ViewOriginalText"
	OutputViewTextUnionAll                OutputType = "ViewOriginalText-unionAll"
)

// OutputTypes lists the supported output types.
var OutputTypes = []OutputType{
	OutputStorageColumns,
	OutputStorageColumnsNoParsedPartition,
	OutputViewText,
	OutputViewTextUnionAll,
}

// StatusSuccess is the only status a response is ever built with; failures
// are returned as errors.
const StatusSuccess = "success"

// Params is the parameter bag of a request.
type Params struct {
	viewgen.Config
	// Enabled turns generation on when it is exactly "true".
	Enabled    string     `json:"Enabled"`
	OutputType OutputType `json:"OutputType"`
}

// IsEnabled reports whether real generation was requested.
func (p Params) IsEnabled() bool {
	return p.Enabled == "true"
}

// Event is a macro invocation.
type Event struct {
	RequestID string `json:"requestId"`
	Params    Params `json:"params"`
}

// Response carries the generated fragment back to the caller.
type Response struct {
	RequestID string   `json:"requestId"`
	Fragment  Fragment `json:"fragment"`
	Status    string   `json:"status"`
}

// Fragment is either a catalog column list or a view text. It encodes as a
// JSON array or a JSON string respectively.
type Fragment struct {
	Columns []viewgen.StorageColumn
	Text    string
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	if f.Columns != nil {
		return json.Marshal(f.Columns)
	}
	return json.Marshal(f.Text)
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	*f = Fragment{}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &f.Columns)
	}
	if err := json.Unmarshal(data, &f.Text); err != nil {
		return fmt.Errorf("fragment must be a column list or a string: %w", err)
	}
	return nil
}

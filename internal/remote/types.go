package remote

import "encoding/json"

// RawRecord is a record as the record service sees it: remote field names
// mapped to JSON values. Numbers decode as json.Number.
type RawRecord map[string]any

// FieldName names one remote field.
type FieldName struct {
	Name string `json:"Name"`
}

// FieldSpec requests one field in a read projection.
type FieldSpec struct {
	Field FieldName `json:"field"`
}

// Condition filters fetched records.
type Condition struct {
	FieldName string `json:"FieldName"`
	Operator  string `json:"Operator"`
	Values    []any  `json:"Values"`
}

// OrderBy sorts fetched records.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// PagingInfo bounds a fetch.
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchParams is the body of a fetch or get-by-id call.
type FetchParams struct {
	Fields     []FieldSpec `json:"fields"`
	Where      []Condition `json:"where,omitempty"`
	OrderBy    []OrderBy   `json:"orderBy,omitempty"`
	PagingInfo *PagingInfo `json:"pagingInfo,omitempty"`
}

// Operators and sort directions understood by the record service.
const (
	OperatorEqualTo = "EqualTo"
	SortAsc         = "ASC"
	SortDesc        = "DESC"
)

// WriteRequest is the body of create and update calls.
type WriteRequest struct {
	Records []RawRecord `json:"records"`
}

// DeleteRequest is the body of a delete call.
type DeleteRequest struct {
	RecordIDs []int64 `json:"RecordIds"`
}

// FieldError is a field-level rejection inside a per-record result.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// RecordResult is the outcome for one record of a batch write.
type RecordResult struct {
	Success bool         `json:"success"`
	Data    RawRecord    `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Response is the envelope of every record service reply. Data holds a list
// for fetches and a single record (or null) for get-by-id.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []RecordResult  `json:"results,omitempty"`
}

// System fields maintained by the record service.
const (
	FieldID               = "Id"
	FieldCreatedDate      = "CreatedDate"
	FieldLastModifiedDate = "LastModifiedDate"
)

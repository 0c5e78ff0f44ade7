package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// GenericRecord is a schema-agnostic map for decoded JSON objects
type GenericRecord map[string]interface{}

// Identifier is an accession used both as API lookup key and artifact stem
type Identifier string

// Nested-collection fields of a FeatureRecord, in extraction order
const (
	FieldXrefs                 = "xrefs"
	FieldPredictions           = "predictions"
	FieldLocations             = "locations"
	FieldClinicalSignificances = "clinicalSignificances"
	FieldPopulationFrequencies = "populationFrequencies"
)

// RawRecordSet is the decoded response body for one identifier.
// Only the keys the pipeline consumes are modelled; the fetched artifact
// on disk keeps the full body.
type RawRecordSet struct {
	Accession string          `json:"accession,omitempty"`
	Features  []FeatureRecord `json:"features"`
}

// FeatureRecord is one variation entry. Keys keeps the order in which the
// fields appeared in the source object so flat tables get a stable column order.
type FeatureRecord struct {
	Keys   []string
	Values GenericRecord
}

// NewFeatureRecord builds a record from alternating key/value pairs.
func NewFeatureRecord(kv ...interface{}) FeatureRecord {
	rec := FeatureRecord{Values: make(GenericRecord)}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		rec.Set(key, kv[i+1])
	}
	return rec
}

// Get returns the value stored under key
func (f FeatureRecord) Get(key string) (interface{}, bool) {
	v, ok := f.Values[key]
	return v, ok
}

// Set stores a value, appending the key if it is new
func (f *FeatureRecord) Set(key string, value interface{}) {
	if f.Values == nil {
		f.Values = make(GenericRecord)
	}
	if _, exists := f.Values[key]; !exists {
		f.Keys = append(f.Keys, key)
	}
	f.Values[key] = value
}

// UnmarshalJSON decodes a JSON object keeping key order. Numbers are kept
// as json.Number so their original literal survives into the flat table.
func (f *FeatureRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("feature record must be a JSON object, got %v", tok)
	}

	rec := FeatureRecord{Values: make(GenericRecord)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = rec
	return nil
}

// MarshalJSON encodes the record with its original key order
func (f FeatureRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Values[key])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FlatRow is one FeatureRecord after flattening; every cell is a string
type FlatRow map[string]string

// FlatTable is an ordered set of rows sharing one column set
type FlatTable struct {
	Name    string    `json:"name"`
	Columns []string  `json:"columns"`
	Rows    []FlatRow `json:"rows"`
}

// HasColumn reports whether the column is part of the table
func (t *FlatTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column unless it already exists; an existing column
// keeps its position.
func (t *FlatTable) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// RemoveColumn drops the column and its cells
func (t *FlatTable) RemoveColumn(name string) {
	kept := t.Columns[:0]
	for _, c := range t.Columns {
		if c != name {
			kept = append(kept, c)
		}
	}
	t.Columns = kept
	for _, row := range t.Rows {
		delete(row, name)
	}
}

// Records renders the table as CSV records, header first. Missing cells are blank.
func (t *FlatTable) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			rec[i] = row[c]
		}
		out = append(out, rec)
	}
	return out
}

// CategoryPartition is the subset of a table's rows sharing one category value
type CategoryPartition struct {
	Value string    `json:"value"`
	Rows  []FlatRow `json:"rows"`
}

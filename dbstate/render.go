package dbstate

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// JSON renders the diff with sorted keys, which makes it usable in assertion messages and golden files.
func (d DiffResult) JSON() ([]byte, error) {
	return jsonAPI.Marshal(d)
}

// String implements fmt.Stringer.
func (d DiffResult) String() string {
	data, err := d.JSON()
	if err != nil {
		return fmt.Sprintf("%v", map[string]TableDiff(d))
	}

	return string(data)
}

// JSON renders the counts with sorted table names.
func (c CompactDiff) JSON() ([]byte, error) {
	return jsonAPI.Marshal(c)
}

// SnapshotDocument is the serialized form of a Snapshot.
// Rows are stored as lists because JSON object keys can only be strings.
type SnapshotDocument struct {
	Schema      string           `json:"schema"`
	PrimaryKeys PrimaryKeys      `json:"primary_keys"`
	Tables      map[string][]Row `json:"tables"`
}

// NewSnapshotDocument converts a snapshot into its serializable form, rows ordered by primary key.
func NewSnapshotDocument(schema string, snapshot Snapshot, pkeys PrimaryKeys) SnapshotDocument {
	tables := make(map[string][]Row, len(snapshot))
	for tableName, rows := range snapshot {
		list := make([]Row, 0, len(rows))
		for _, key := range rows.SortedKeys() {
			list = append(list, rows[key])
		}

		tables[tableName] = list
	}

	return SnapshotDocument{
		Schema:      schema,
		PrimaryKeys: pkeys,
		Tables:      tables,
	}
}

// Snapshot rebuilds the keyed snapshot from the document.
func (doc SnapshotDocument) Snapshot() (Snapshot, error) {
	snapshot := make(Snapshot, len(doc.Tables))

	for tableName, list := range doc.Tables {
		pkey, ok := doc.PrimaryKeys[tableName]
		if !ok {
			return nil, errors.Join(ErrInvalidSnapshotDocument, fmt.Errorf("no primary key for table %q", tableName))
		}

		rows := make(TableRows, len(list))
		for i, row := range list {
			value, hasKey := row[pkey]
			if !hasKey {
				return nil, errors.Join(ErrInvalidSnapshotDocument, fmt.Errorf("table %q row %d lacks primary key %q", tableName, i, pkey))
			}

			rows[KeyOf(value)] = row
		}

		snapshot[tableName] = rows
	}

	return snapshot, nil
}

// EncodeSnapshotDocument renders the document as indented JSON.
func EncodeSnapshotDocument(doc SnapshotDocument) ([]byte, error) {
	return jsonAPI.MarshalIndent(doc, "", "  ")
}

// DecodeSnapshotDocument parses a document written by EncodeSnapshotDocument.
// Numbers are kept as json.Number so that two decoded documents compare exactly.
func DecodeSnapshotDocument(data []byte) (SnapshotDocument, error) {
	var doc SnapshotDocument
	if err := jsonAPI.Unmarshal(data, &doc); err != nil {
		return SnapshotDocument{}, errors.Join(ErrInvalidSnapshotDocument, err)
	}

	if doc.Tables == nil {
		return SnapshotDocument{}, errors.Join(ErrInvalidSnapshotDocument, errors.New("missing tables"))
	}

	return doc, nil
}

package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"uzdata-harvester/internal/components/telemetry"

	"github.com/spf13/afero"
)

type pathMarker struct {
	PathID string `json:"path_id"`
}

// Normalizer rewrites a downloaded artifact so that its first element is a
// `{"path_id": "<id>"}` marker.
type Normalizer struct {
	fs  afero.Fs
	tel telemetry.API
}

func NewNormalizer(fs afero.Fs, tel telemetry.API) Normalizer {
	return Normalizer{fs: fs, tel: tel}
}

// Normalize prepends the marker for id to the JSON array stored at path.
//
// The records themselves are kept byte for byte (only re-indented). If the
// file is not a JSON array a *StructureError is returned and the file is not
// touched, if it already starts with the marker for id ErrAlreadyNormalized
// is returned.
func (n Normalizer) Normalize(path, id string) error {
	data, err := afero.ReadFile(n.fs, path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	records, err := decodeArray(path, data)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		existing, ok := markerOf(records[0])
		switch {
		case ok && existing == id:
			return ErrAlreadyNormalized
		case ok:
			n.tel.ReportWarning(report_item_foreign_id, fmt.Errorf("%s already carries path_id %q, adding %q", path, existing, id))
		}
	}

	out, err := encodeArtifact(id, records)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	perm := os.FileMode(0644)
	if info, err := n.fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	err = afero.WriteFile(n.fs, path, out, perm)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func decodeArray(path string, data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return nil, &StructureError{Path: path, Found: "empty file"}
	}
	if trimmed[0] != '[' {
		return nil, &StructureError{Path: path, Found: jsonKind(trimmed)}
	}

	var records []json.RawMessage
	err := json.Unmarshal(trimmed, &records)
	if err != nil {
		return nil, &StructureError{Path: path, Found: "invalid json", Err: err}
	}
	return records, nil
}

func jsonKind(data []byte) string {
	if !json.Valid(data) {
		return "invalid json"
	}
	switch data[0] {
	case '{':
		return "object"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// markerOf returns the path_id of a record that is exactly a marker.
func markerOf(record json.RawMessage) (string, bool) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(record, &fields)
	if err != nil || len(fields) != 1 {
		return "", false
	}
	raw, ok := fields["path_id"]
	if !ok {
		return "", false
	}
	var id string
	err = json.Unmarshal(raw, &id)
	if err != nil {
		return "", false
	}
	return id, true
}

func encodeArtifact(id string, records []json.RawMessage) ([]byte, error) {
	elements := make([]any, 0, len(records)+1)
	elements = append(elements, pathMarker{PathID: id})
	for _, record := range records {
		elements = append(elements, record)
	}

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	err := encoder.Encode(elements)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsStructureError reports if err is (or wraps) a *StructureError.
func IsStructureError(err error) bool {
	var structureErr *StructureError
	return errors.As(err, &structureErr)
}

// Marker returns the path_id of an artifact that starts with a marker.
func Marker(data []byte) (string, bool) {
	records, err := decodeArray("", data)
	if err != nil || len(records) == 0 {
		return "", false
	}
	return markerOf(records[0])
}

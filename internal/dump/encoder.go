package dump

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// wireRecord is one fixture record ready for rendering, with its fields in
// their final output order.
type wireRecord struct {
	Model  string
	PK     json.RawMessage
	Fields []wireField
}

type wireField struct {
	Name  string
	Value json.RawMessage
}

// encodeRecords renders records as a fixture document. The output is
// byte-for-byte deterministic: two-space indentation, model before pk
// before fields, and a trailing newline.
func encodeRecords(records []wireRecord) ([]byte, error) {
	if len(records) == 0 {
		return []byte("[]\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, rec := range records {
		if i > 0 {
			buf.WriteString(",\n")
		}
		if err := writeRecord(&buf, rec); err != nil {
			return nil, err
		}
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

func writeRecord(buf *bytes.Buffer, rec wireRecord) error {
	model, err := marshalValue(rec.Model)
	if err != nil {
		return err
	}

	buf.WriteString("  {\n")
	fmt.Fprintf(buf, "    \"model\": %s,\n", model)
	fmt.Fprintf(buf, "    \"pk\": %s,\n", rec.PK)

	if len(rec.Fields) == 0 {
		buf.WriteString("    \"fields\": {}\n  }")
		return nil
	}

	buf.WriteString("    \"fields\": {\n")
	for i, field := range rec.Fields {
		name, err := marshalValue(field.Name)
		if err != nil {
			return err
		}
		if i > 0 {
			buf.WriteString(",\n")
		}
		fmt.Fprintf(buf, "      %s: %s", name, field.Value)
	}
	buf.WriteString("\n    }\n  }")
	return nil
}

// marshalValue marshals one leaf value without HTML escaping, so fixture
// strings survive a dump-edit-load cycle untouched.
func marshalValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode value %v: %w", v, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// wireValue converts a scanned database value into its fixture
// representation. Most pgx values marshal cleanly as-is; the exceptions
// are uuid bytes and arbitrary-precision numerics, which would otherwise
// serialize as byte arrays and structs.
func wireValue(v any) (any, error) {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String(), nil
	case pgtype.Numeric:
		val, err := t.Value()
		if err != nil {
			return nil, fmt.Errorf("invalid numeric value: %w", err)
		}
		return val, nil
	}
	return v, nil
}

// wireSlice converts a key tuple (or a list of them) for fixture output.
func wireSlice(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		if nested, ok := v.([]any); ok {
			converted, err := wireSlice(nested)
			if err != nil {
				return nil, err
			}
			out[i] = converted
			continue
		}
		converted, err := wireValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

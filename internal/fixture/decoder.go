package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Decoder parses fixture files into entity records, preserving file order.
//
// A fixture file is a JSON array of {"model", "pk", "fields"} objects. The
// decoder streams the array with a token decoder, so chunk files never load
// fully into memory, and records each record's byte offset for error
// attribution.
//
// Field classification is driven by the schema model and the value's
// syntactic shape only; the decoder never validates referential existence.
type Decoder struct {
	schema     *pgseed.Schema
	fsProvider filesystem.FileSystemProvider
}

// NewDecoder creates a decoder reading from the OS filesystem.
// Panics if schema is nil.
func NewDecoder(schema *pgseed.Schema) *Decoder {
	return NewDecoderWithFS(schema, filesystem.NewOSFileSystem())
}

// NewDecoderWithFS creates a decoder with a custom filesystem provider.
// This is primarily useful for testing with in-memory filesystems.
// Panics if schema or fsProvider is nil.
func NewDecoderWithFS(schema *pgseed.Schema, fsProvider filesystem.FileSystemProvider) *Decoder {
	if schema == nil {
		panic("schema cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Decoder{
		schema:     schema,
		fsProvider: fsProvider,
	}
}

// rawRecord is the wire shape of one fixture record.
type rawRecord struct {
	Model  string          `json:"model"`
	PK     json.RawMessage `json:"pk"`
	Fields json.RawMessage `json:"fields"`
}

// fieldValue is one fixture field in file order.
type fieldValue struct {
	name string
	raw  json.RawMessage
}

// DecodeFile parses the fixture file at path. Malformed content fails with
// ErrFixtureParse and aborts the whole file; there are no partial results.
func (d *Decoder) DecodeFile(path string) ([]*pgseed.EntityRecord, error) {
	reader, err := d.fsProvider.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture %s: %w", path, err)
	}
	defer reader.Close()

	return d.decodeStream(path, reader)
}

func (d *Decoder) decodeStream(path string, reader io.Reader) ([]*pgseed.EntityRecord, error) {
	dec := json.NewDecoder(reader)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, pgseed.ErrFixtureParse)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%s: top-level value must be a JSON array: %w", path, pgseed.ErrFixtureParse)
	}

	var records []*pgseed.EntityRecord
	for index := 0; dec.More(); index++ {
		ref := pgseed.RecordRef{File: path, Index: index, Offset: dec.InputOffset()}

		var raw rawRecord
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", ref, err, pgseed.ErrFixtureParse)
		}

		record, err := d.buildRecord(raw, ref)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, pgseed.ErrFixtureParse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%s: trailing content after fixture array: %w", path, pgseed.ErrFixtureParse)
	}

	return records, nil
}

// buildRecord turns one wire record into an EntityRecord, splitting fields
// into resolved values, deferred references, and associations.
func (d *Decoder) buildRecord(raw rawRecord, ref pgseed.RecordRef) (*pgseed.EntityRecord, error) {
	if raw.Model == "" {
		return nil, parseErr(ref, "record has no model tag")
	}
	kind, err := pgseed.ParseKind(raw.Model)
	if err != nil {
		return nil, parseErr(ref, "%v", err)
	}
	info, known := d.schema.Resolve(kind)
	if !known {
		return nil, parseErr(ref, "unknown kind %q", raw.Model)
	}

	// The canonical kind, not the tag as written: two spellings that bind
	// to the same table must land in the same insert batch.
	record := &pgseed.EntityRecord{
		Kind:     info.Kind,
		Resolved: make(map[string]any),
		Ref:      ref,
	}

	if err := applyPK(raw.PK, info, record, ref); err != nil {
		return nil, err
	}

	if len(raw.Fields) == 0 {
		return nil, parseErr(ref, "record has no fields object")
	}
	fields, err := orderedFields(raw.Fields)
	if err != nil {
		return nil, parseErr(ref, "%v", err)
	}
	for _, field := range fields {
		if err := d.classifyField(info, field, record, ref); err != nil {
			return nil, err
		}
	}

	return record, nil
}

// applyPK sets the record's explicit primary key. Absent and null both mean
// the store assigns the key.
func applyPK(raw json.RawMessage, info *pgseed.KindInfo, record *pgseed.EntityRecord, ref pgseed.RecordRef) error {
	if len(raw) == 0 || firstByte(raw) == 'n' {
		return nil
	}
	switch firstByte(raw) {
	case '[', '{':
		return parseErr(ref, "pk must be a scalar or null")
	}
	if info.PrimaryKey == "" {
		return parseErr(ref, "kind %s has no primary key column", info.Kind)
	}

	value, err := decodeValue(raw)
	if err != nil {
		return parseErr(ref, "invalid pk: %v", err)
	}
	record.PK = value
	record.Resolved[info.PrimaryKey] = value
	return nil
}

// classifyField routes one fixture field by its binding and value shape.
//
// Foreign-key fields: a scalar is the raw key, settable immediately; an
// array is a natural-key reference and goes to the deferred set; null stays
// resolved. Association fields always go to the association list. Every
// other known column takes its value as-is.
func (d *Decoder) classifyField(info *pgseed.KindInfo, field fieldValue, record *pgseed.EntityRecord, ref pgseed.RecordRef) error {
	binding, bound := info.BindField(field.name)
	if !bound {
		return parseErr(ref, "field %q matches no column or association of %s", field.name, info.Kind)
	}

	switch {
	case binding.Association != nil:
		targets, err := decodeTargets(field.raw)
		if err != nil {
			return parseErr(ref, "association %q: %v", field.name, err)
		}
		record.Associations = append(record.Associations, pgseed.Association{
			Field:   binding.Association.Field,
			Targets: targets,
		})

	case binding.ForeignKey != nil:
		fk := binding.ForeignKey
		switch firstByte(field.raw) {
		case 'n':
			record.Resolved[fk.Column] = nil
		case '[':
			values, err := decodeNaturalKey(field.raw)
			if err != nil {
				return parseErr(ref, "reference %q: %v", field.name, err)
			}
			record.Deferred = append(record.Deferred, pgseed.DeferredField{
				Column:   fk.Column,
				Nullable: fk.Nullable,
				Target:   fk.Target,
				Key:      pgseed.ByNatural(values),
			})
		case '{':
			return parseErr(ref, "reference %q must be a key scalar, a natural-key array, or null", field.name)
		default:
			value, err := decodeValue(field.raw)
			if err != nil {
				return parseErr(ref, "reference %q: %v", field.name, err)
			}
			record.Resolved[fk.Column] = value
		}

	default:
		value, err := decodeValue(field.raw)
		if err != nil {
			return parseErr(ref, "field %q: %v", field.name, err)
		}
		record.Resolved[binding.Column.Name] = value
	}

	return nil
}

// orderedFields parses the fields object preserving key order.
func orderedFields(raw json.RawMessage) ([]fieldValue, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("fields must be a JSON object")
	}

	var fields []fieldValue
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in fields object", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, fieldValue{name: key, raw: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// decodeTargets parses an association value: an array of target keys, each a
// primary-key scalar or a natural-key array. An empty array is valid and
// clears the association on load.
func decodeTargets(raw json.RawMessage) ([]pgseed.ReferenceKey, error) {
	if firstByte(raw) != '[' {
		return nil, errors.New("value must be an array of target keys")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	targets := []pgseed.ReferenceKey{}
	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, err
		}
		switch firstByte(element) {
		case '[':
			values, err := decodeNaturalKey(element)
			if err != nil {
				return nil, err
			}
			targets = append(targets, pgseed.ByNatural(values))
		case '{', 'n':
			return nil, errors.New("target key must be a scalar or a natural-key array")
		default:
			value, err := decodeValue(element)
			if err != nil {
				return nil, err
			}
			targets = append(targets, pgseed.ByPK(value))
		}
	}
	return targets, nil
}

// decodeNaturalKey parses a natural-key tuple: a non-empty array of scalars
// in the target kind's unique-spec column order. Natural keys are shallow;
// nested reference shapes are malformed.
func decodeNaturalKey(raw json.RawMessage) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var values []any
	for dec.More() {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, err
		}
		switch firstByte(element) {
		case '[', '{':
			return nil, errors.New("natural key values must be scalars")
		}
		value, err := decodeValue(element)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, errors.New("natural key must not be empty")
	}
	return values, nil
}

// decodeValue parses one JSON value, keeping integer fidelity: integral
// numbers become int64, others float64, so primary keys survive the trip
// into the database without float rounding.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return normalizeNumbers(value), nil
}

func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case []any:
		for i := range v {
			v[i] = normalizeNumbers(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = normalizeNumbers(v[k])
		}
		return v
	default:
		return value
	}
}

// firstByte returns the first non-whitespace byte of a raw JSON value, which
// identifies its shape.
func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

func parseErr(ref pgseed.RecordRef, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", ref, fmt.Sprintf(format, args...), pgseed.ErrFixtureParse)
}

// Verify Decoder implements the interface at compile time
var _ pgseed.RecordDecoder = (*Decoder)(nil)

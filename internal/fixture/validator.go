package fixture

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pgseed/pgseed/internal/files/filesystem"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

// Validator checks fixture files structurally, without a schema: the record
// envelope, the model tag, the pk shape, and the fields object. It is the
// offline half of checking; field bindings need a live schema and stay with
// the Decoder.
type Validator struct {
	fsProvider filesystem.FileSystemProvider
}

// NewValidator creates a validator reading from the OS filesystem.
func NewValidator() *Validator {
	return NewValidatorWithFS(filesystem.NewOSFileSystem())
}

// NewValidatorWithFS creates a validator with a custom filesystem provider.
// Panics if fsProvider is nil.
func NewValidatorWithFS(fsProvider filesystem.FileSystemProvider) *Validator {
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	return &Validator{fsProvider: fsProvider}
}

// ValidateFile parses the fixture file at path and returns its record
// count. Malformed content fails with ErrFixtureParse, carrying the same
// record references the decoder would report.
func (v *Validator) ValidateFile(path string) (int, error) {
	reader, err := v.fsProvider.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fixture %s: %w", path, err)
	}
	defer reader.Close()

	return validateStream(path, reader)
}

func validateStream(path string, reader io.Reader) (int, error) {
	dec := json.NewDecoder(reader)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return 0, fmt.Errorf("%s: %v: %w", path, err, pgseed.ErrFixtureParse)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, fmt.Errorf("%s: top-level value must be a JSON array: %w", path, pgseed.ErrFixtureParse)
	}

	count := 0
	for index := 0; dec.More(); index++ {
		ref := pgseed.RecordRef{File: path, Index: index, Offset: dec.InputOffset()}

		var raw rawRecord
		if err := dec.Decode(&raw); err != nil {
			return count, fmt.Errorf("%s: %v: %w", ref, err, pgseed.ErrFixtureParse)
		}
		if err := validateRecord(raw, ref); err != nil {
			return count, err
		}
		count++
	}

	if _, err := dec.Token(); err != nil {
		return count, fmt.Errorf("%s: %v: %w", path, err, pgseed.ErrFixtureParse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return count, fmt.Errorf("%s: trailing content after fixture array: %w", path, pgseed.ErrFixtureParse)
	}

	return count, nil
}

// validateRecord applies every check that holds for any schema.
func validateRecord(raw rawRecord, ref pgseed.RecordRef) error {
	if raw.Model == "" {
		return parseErr(ref, "record has no model tag")
	}
	if _, err := pgseed.ParseKind(raw.Model); err != nil {
		return parseErr(ref, "%v", err)
	}

	if len(raw.PK) > 0 {
		switch firstByte(raw.PK) {
		case '[', '{':
			return parseErr(ref, "pk must be a scalar or null")
		}
	}

	if len(raw.Fields) == 0 {
		return parseErr(ref, "record has no fields object")
	}
	if _, err := orderedFields(raw.Fields); err != nil {
		return parseErr(ref, "%v", err)
	}
	return nil
}

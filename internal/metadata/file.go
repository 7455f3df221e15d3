package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/tidwall/gjson"
)

// ErrSensorTypeNotFound is returned when a provider has no document for a sensor type.
var ErrSensorTypeNotFound = errors.New("sensor type not found")

type FileProvider struct {
	types []string
	docs  map[string][]byte
}

var _ internal.MetadataProvider = (*FileProvider)(nil)

// SensorTypes returns the sensor types in the order they appear in the file.
func (p *FileProvider) SensorTypes(ctx context.Context) ([]string, error) {
	return append([]string(nil), p.types...), nil
}

// Schema returns the schema document for a sensor type.
func (p *FileProvider) Schema(ctx context.Context, sensorType string) (*internal.SchemaDocument, error) {
	buf, ok := p.docs[sensorType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSensorTypeNotFound, sensorType)
	}
	return internal.NewSchemaDocument(sensorType, buf)
}

// Save the sensor types and their schema documents to a file.
func (p *FileProvider) Save(ctx context.Context, filename string) error {
	return save(filename, p.types, p.docs)
}

// ParseDocuments reads a JSON object of sensor type to schema document keeping the declared order.
func ParseDocuments(buf []byte) ([]string, map[string][]byte, error) {
	if !gjson.ValidBytes(buf) {
		return nil, nil, errors.New("invalid json")
	}
	result := gjson.ParseBytes(buf)
	if !result.IsObject() {
		return nil, nil, errors.New("expected an object of sensor type to schema document")
	}
	var types []string
	docs := make(map[string][]byte)
	result.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, ok := docs[name]; !ok {
			types = append(types, name)
		}
		docs[name] = []byte(value.Raw)
		return true
	})
	return types, docs, nil
}

// NewFileProvider creates a new metadata provider from a file written by Save.
func NewFileProvider(schemaFile string) (*FileProvider, error) {
	if !util.Exists(schemaFile) {
		return nil, fmt.Errorf("schema file does not exist: %s", schemaFile)
	}
	buf, err := os.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("error opening schema file: %w", err)
	}
	types, docs, err := ParseDocuments(buf)
	if err != nil {
		return nil, fmt.Errorf("error decoding schema file: %w", err)
	}
	return &FileProvider{types: types, docs: docs}, nil
}

func save(filename string, types []string, docs map[string][]byte) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range types {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(docs[name])
	}
	buf.WriteByte('}')
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("error encoding schema file: %w", err)
	}
	out.WriteByte('\n')
	if err := os.WriteFile(filename, out.Bytes(), 0644); err != nil {
		return fmt.Errorf("error writing schema file: %w", err)
	}
	return nil
}

package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// SchemaType is the value of the type keyword of a schema node.
type SchemaType string

const (
	SchemaTypeAbsent  SchemaType = ""
	SchemaTypeInteger SchemaType = "integer"
	SchemaTypeNumber  SchemaType = "number"
	SchemaTypeString  SchemaType = "string"
	SchemaTypeBoolean SchemaType = "boolean"
	SchemaTypeObject  SchemaType = "object"
	SchemaTypeArray   SchemaType = "array"
	SchemaTypeNull    SchemaType = "null"
)

// IsScalar returns true if the type maps to a single column.
func (t SchemaType) IsScalar() bool {
	switch t {
	case SchemaTypeInteger, SchemaTypeNumber, SchemaTypeString, SchemaTypeBoolean:
		return true
	}
	return false
}

// IsRecognized returns true if the type is one the converter knows how to handle.
func (t SchemaType) IsRecognized() bool {
	return t.IsScalar() || t == SchemaTypeObject || t == SchemaTypeArray
}

// SchemaProperty is a named property of a schema node.
type SchemaProperty struct {
	Name string
	Node *SchemaNode
}

// SchemaNode is the subset of JSON Schema understood by the converter. Properties keep
// the order they were declared in.
type SchemaNode struct {
	Type       SchemaType
	Format     string
	Properties []*SchemaProperty
	Items      *SchemaNode
	Required   []string

	// HasProperties is true when the node declared a properties object (even an empty one).
	HasProperties bool
	// HasItems is true when the node declared an items object.
	HasItems bool
}

// Property returns the property with the given name or nil if not found.
func (n *SchemaNode) Property(name string) *SchemaNode {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node
		}
	}
	return nil
}

// IsRequired returns true if name is in the node's required list.
func (n *SchemaNode) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// MarshalJSON writes the node with properties in declared order.
func (n *SchemaNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, first *bool, key string) error {
	if !*first {
		buf.WriteByte(',')
	}
	*first = false
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

func (n *SchemaNode) write(buf *bytes.Buffer) error {
	first := true
	buf.WriteByte('{')
	if n.Type != SchemaTypeAbsent {
		if err := writeKey(buf, &first, "type"); err != nil {
			return err
		}
		v, _ := json.Marshal(string(n.Type))
		buf.Write(v)
	}
	if n.Format != "" {
		if err := writeKey(buf, &first, "format"); err != nil {
			return err
		}
		v, _ := json.Marshal(n.Format)
		buf.Write(v)
	}
	if n.HasProperties || len(n.Properties) > 0 {
		if err := writeKey(buf, &first, "properties"); err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, p := range n.Properties {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(p.Name)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := p.Node.write(buf); err != nil {
				return fmt.Errorf("error encoding property %s: %w", p.Name, err)
			}
		}
		buf.WriteByte('}')
	}
	if n.Items != nil {
		if err := writeKey(buf, &first, "items"); err != nil {
			return err
		}
		if err := n.Items.write(buf); err != nil {
			return err
		}
	}
	if len(n.Required) > 0 {
		if err := writeKey(buf, &first, "required"); err != nil {
			return err
		}
		v, err := json.Marshal(n.Required)
		if err != nil {
			return err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// ParseSchemaNode builds a node tree from a parsed JSON value. Values that are not objects
// produce an empty node. A type keyword that is not a string is kept verbatim so it reads
// as unrecognized.
func ParseSchemaNode(val gjson.Result) *SchemaNode {
	node := &SchemaNode{}
	if !val.IsObject() {
		return node
	}
	if t := val.Get("type"); t.Exists() {
		if t.Type == gjson.String {
			node.Type = SchemaType(t.Str)
		} else {
			node.Type = SchemaType(t.Raw)
		}
	}
	node.Format = val.Get("format").String()
	if props := val.Get("properties"); props.IsObject() {
		node.HasProperties = true
		props.ForEach(func(key, value gjson.Result) bool {
			node.Properties = append(node.Properties, &SchemaProperty{
				Name: key.String(),
				Node: ParseSchemaNode(value),
			})
			return true
		})
	}
	if items := val.Get("items"); items.IsObject() {
		node.HasItems = true
		node.Items = ParseSchemaNode(items)
	}
	if required := val.Get("required"); required.IsArray() {
		for _, r := range required.Array() {
			node.Required = append(node.Required, r.String())
		}
	}
	return node
}

// SchemaDocument is a raw schema document as handed over by a metadata provider.
type SchemaDocument struct {
	SensorType string
	Raw        []byte
}

// NewSchemaDocument returns a document after checking that buf is valid JSON.
func NewSchemaDocument(sensorType string, buf []byte) (*SchemaDocument, error) {
	if !gjson.ValidBytes(buf) {
		return nil, fmt.Errorf("invalid json in schema document for sensor type: %s", sensorType)
	}
	return &SchemaDocument{SensorType: sensorType, Raw: buf}, nil
}

// Result returns the parsed document.
func (d *SchemaDocument) Result() gjson.Result {
	return gjson.ParseBytes(d.Raw)
}

// MetadataProvider is the interface for the source of sensor types and their schema documents.
type MetadataProvider interface {

	// SensorTypes returns the names of all known sensor types.
	SensorTypes(ctx context.Context) ([]string, error)

	// Schema returns the schema document for a sensor type.
	Schema(ctx context.Context, sensorType string) (*SchemaDocument, error)

	// Save the sensor types and their schema documents to a file.
	Save(ctx context.Context, filename string) error
}

package metadata

import (
	"strings"
	"time"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/tidwall/gjson"
)

// SchemaDialect is the $schema written into inferred documents.
const SchemaDialect = "http://json-schema.org/draft-07/schema#"

// Infer builds a schema node that describes sample. Objects list their properties in
// first-seen order and require the keys present in every sample merged into them. Array
// items are merged into a single schema. Numbers without a fraction or exponent are
// integers and strings that parse as RFC 3339 get the date-time format.
func Infer(sample gjson.Result) *internal.SchemaNode {
	switch {
	case sample.IsObject():
		node := &internal.SchemaNode{Type: internal.SchemaTypeObject, HasProperties: true}
		sample.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if node.Property(name) != nil {
				return true
			}
			node.Properties = append(node.Properties, &internal.SchemaProperty{Name: name, Node: Infer(value)})
			node.Required = append(node.Required, name)
			return true
		})
		return node
	case sample.IsArray():
		node := &internal.SchemaNode{Type: internal.SchemaTypeArray, HasItems: true}
		var items *internal.SchemaNode
		sample.ForEach(func(_, value gjson.Result) bool {
			items = merge(items, Infer(value))
			return true
		})
		if items == nil {
			items = &internal.SchemaNode{}
		}
		node.Items = items
		return node
	}
	switch sample.Type {
	case gjson.True, gjson.False:
		return &internal.SchemaNode{Type: internal.SchemaTypeBoolean}
	case gjson.Number:
		if strings.ContainsAny(sample.Raw, ".eE") {
			return &internal.SchemaNode{Type: internal.SchemaTypeNumber}
		}
		return &internal.SchemaNode{Type: internal.SchemaTypeInteger}
	case gjson.String:
		node := &internal.SchemaNode{Type: internal.SchemaTypeString}
		if _, err := time.Parse(time.RFC3339, sample.Str); err == nil {
			node.Format = "date-time"
		}
		return node
	}
	return &internal.SchemaNode{Type: internal.SchemaTypeNull}
}

// merge combines two inferred nodes into one that describes both.
func merge(a, b *internal.SchemaNode) *internal.SchemaNode {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Type == internal.SchemaTypeAbsent || a.Type == internal.SchemaTypeNull:
		return b
	case b.Type == internal.SchemaTypeAbsent || b.Type == internal.SchemaTypeNull:
		return a
	}
	if a.Type != b.Type {
		if isNumeric(a.Type) && isNumeric(b.Type) {
			return &internal.SchemaNode{Type: internal.SchemaTypeNumber}
		}
		// incompatible samples can only be stored as text
		return &internal.SchemaNode{Type: internal.SchemaTypeString}
	}
	switch a.Type {
	case internal.SchemaTypeObject:
		node := &internal.SchemaNode{Type: internal.SchemaTypeObject, HasProperties: true}
		for _, p := range a.Properties {
			node.Properties = append(node.Properties, &internal.SchemaProperty{Name: p.Name, Node: merge(p.Node, b.Property(p.Name))})
		}
		for _, p := range b.Properties {
			if a.Property(p.Name) == nil {
				node.Properties = append(node.Properties, &internal.SchemaProperty{Name: p.Name, Node: p.Node})
			}
		}
		for _, name := range a.Required {
			if b.IsRequired(name) {
				node.Required = append(node.Required, name)
			}
		}
		return node
	case internal.SchemaTypeArray:
		return &internal.SchemaNode{Type: internal.SchemaTypeArray, HasItems: true, Items: merge(a.Items, b.Items)}
	case internal.SchemaTypeString:
		node := &internal.SchemaNode{Type: internal.SchemaTypeString}
		if a.Format == b.Format {
			node.Format = a.Format
		}
		return node
	}
	return a
}

func isNumeric(t internal.SchemaType) bool {
	return t == internal.SchemaTypeInteger || t == internal.SchemaTypeNumber
}

// Document encodes node as a standalone schema document.
func Document(node *internal.SchemaNode) ([]byte, error) {
	buf, err := node.MarshalJSON()
	if err != nil {
		return nil, err
	}
	doc := []byte(`{"$schema":"` + SchemaDialect + `"`)
	if len(buf) > 2 {
		doc = append(doc, ',')
	}
	return append(doc, buf[1:]...), nil
}

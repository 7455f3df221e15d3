package converter

import (
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/tidwall/gjson"
)

type expectedProperty struct {
	name   string
	typ    string
	format string
}

// every sensor item must carry these, in this order
var envelopeProperties = []expectedProperty{
	{"id", "integer", ""},
	{"value", "number", ""},
	{"timestamp", "string", "date-time"},
}

// ValidateEnvelope checks that doc has the sensor array envelope:
//
//	{"properties": {"sensors": {"type": "array", "items": {"properties": {
//		"id": {"type": "integer"},
//		"value": {"type": "number"},
//		"timestamp": {"type": "string", "format": "date-time"}}}}}}
//
// It returns false and the first rule that failed. Additional fields are allowed anywhere.
func ValidateEnvelope(doc gjson.Result, sensorType string) (bool, string) {
	if !doc.IsObject() {
		return false, "schema is not an object"
	}
	properties := doc.Get("properties")
	if !properties.Exists() {
		return false, "schema missing 'properties'"
	}
	sensors := properties.Get("sensors")
	if !sensors.IsObject() || sensors.Get("type").String() != "array" || !sensors.Get("items").Exists() {
		return false, "invalid 'sensors' array structure"
	}
	items := sensors.Get("items")
	if !items.IsObject() || !items.Get("properties").Exists() {
		return false, "invalid 'items' structure"
	}
	itemProperties := items.Get("properties")
	for _, expected := range envelopeProperties {
		prop := itemProperties.Get(expected.name)
		if !prop.Exists() {
			return false, "missing required property: " + expected.name
		}
		if prop.Get("type").String() != expected.typ {
			return false, "invalid type for " + expected.name
		}
		if expected.format != "" && prop.Get("format").String() != expected.format {
			return false, "invalid format for " + expected.name
		}
	}
	return true, ""
}

// CheckEnvelope is ValidateEnvelope returning an *EnvelopeError.
func CheckEnvelope(doc gjson.Result, sensorType string) error {
	if ok, reason := ValidateEnvelope(doc, sensorType); !ok {
		return &EnvelopeError{SensorType: sensorType, Reason: reason}
	}
	return nil
}

// itemSchema returns the schema of a single sensor reading as an object node with the
// properties and required list of the envelope items.
func itemSchema(doc gjson.Result) *internal.SchemaNode {
	items := internal.ParseSchemaNode(doc.Get("properties.sensors.items"))
	return &internal.SchemaNode{
		Type:          internal.SchemaTypeObject,
		Properties:    items.Properties,
		Required:      items.Required,
		HasProperties: true,
	}
}

package converter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type fakeProvider struct {
	docs map[string]string
}

var _ internal.MetadataProvider = (*fakeProvider)(nil)

func (p *fakeProvider) SensorTypes(ctx context.Context) ([]string, error) {
	var res []string
	for k := range p.docs {
		res = append(res, k)
	}
	return res, nil
}

func (p *fakeProvider) Schema(ctx context.Context, sensorType string) (*internal.SchemaDocument, error) {
	doc, ok := p.docs[sensorType]
	if !ok {
		return nil, fmt.Errorf("sensor type not found: %s", sensorType)
	}
	return internal.NewSchemaDocument(sensorType, []byte(doc))
}

func (p *fakeProvider) Save(ctx context.Context, filename string) error {
	return nil
}

// sensorDoc wraps extra item properties into a valid envelope.
func sensorDoc(extra string) string {
	props := `"id": {"type": "integer"}, "value": {"type": "number"}, "timestamp": {"type": "string", "format": "date-time"}`
	if extra != "" {
		props += ", " + extra
	}
	return `{"type": "object", "properties": {"sensors": {"type": "array", "items": {"type": "object", "properties": {` + props + `}, "required": ["id", "value"]}}}}`
}

func walk(t *testing.T, base string, schema string) (*walker, error) {
	w := newWalker(logger.NewTestLogger(), "test", NewRegistry())
	if err := w.buildEntity(base, base, internal.ParseSchemaNode(gjson.Parse(schema))); err != nil {
		return w, err
	}
	return w, w.buildRelationships()
}

func TestArrayDecomposition(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"readings": {"type": "array", "items": {"properties": {"a": {"type": "integer"}, "b": {"type": "string"}}}}}}`)
	require.NoError(t, err)
	entities := w.registry.Entities()
	assert.Equal(t, []string{"Sensor", "SensorreadingsItem"}, entities.Names())

	sensor := entities["Sensor"]
	assert.Equal(t, "sensors", sensor.Table)
	assert.Empty(t, sensor.Columns)
	assert.Equal(t, []string{"id"}, sensor.ColumnNames())
	require.Len(t, sensor.Relationships, 1)
	assert.Equal(t, model.Relationship{Name: "readingsitem", TargetEntity: "SensorreadingsItem", Cardinality: model.OneToMany, CascadeDelete: true}, sensor.Relationships[0])

	item := entities["SensorreadingsItem"]
	assert.Equal(t, "sensorreadings_items", item.Table)
	assert.Equal(t, []string{"id", "a", "b", "sensor_id"}, item.ColumnNames())
	assert.Equal(t, model.Integer, item.FindColumn("a").Type)
	assert.Equal(t, model.String, item.FindColumn("b").Type)
	fk := item.FindColumn("sensor_id")
	require.NotNil(t, fk)
	assert.Equal(t, model.Integer, fk.Type)
	assert.True(t, fk.Nullable)
	require.Len(t, item.ForeignKeys, 1)
	assert.Equal(t, model.ForeignKey{Column: "sensor_id", TargetEntity: "Sensor", TargetTable: "sensors", TargetColumn: "id", OnDelete: "CASCADE"}, item.ForeignKeys[0])
	assert.Empty(t, item.Relationships)
	assert.Empty(t, w.warnings)
}

func TestObjectDecomposition(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"readings": {"type": "object", "properties": {"a": {"type": "integer"}, "b": {"type": "string"}}}}}`)
	require.NoError(t, err)
	entities := w.registry.Entities()
	assert.Equal(t, []string{"Sensor", "Sensorreadings"}, entities.Names())
	sensor := entities["Sensor"]
	require.Len(t, sensor.Relationships, 1)
	assert.Equal(t, "readings", sensor.Relationships[0].Name)
	assert.Equal(t, model.OneToOne, sensor.Relationships[0].Cardinality)
	assert.True(t, sensor.Relationships[0].CascadeDelete)
	child := entities["Sensorreadings"]
	assert.Equal(t, []string{"id", "a", "b", "sensor_id"}, child.ColumnNames())
	assert.NotNil(t, child.FindForeignKey("sensor_id"))
}

func TestNestedDecomposition(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {
		"location": {"type": "object", "properties": {
			"lat": {"type": "number"},
			"tags": {"type": "array", "items": {"type": "string"}}
		}}
	}}`)
	require.NoError(t, err)
	entities := w.registry.Entities()
	assert.Equal(t, []string{"Sensor", "Sensorlocation", "SensorlocationtagsItem"}, entities.Names())
	assert.Equal(t, []string{"SensorlocationtagsItem", "Sensorlocation", "Sensor"}, w.registry.Order())
	tags := entities["SensorlocationtagsItem"]
	assert.Equal(t, []string{"id", "sensorlocation_id"}, tags.ColumnNames())
	assert.Equal(t, "sensorlocation_id", tags.ForeignKeys[0].Column)
	location := entities["Sensorlocation"]
	assert.Equal(t, "tagsitem", location.Relationships[0].Name)
	assert.Equal(t, model.OneToMany, location.Relationships[0].Cardinality)
	assert.Equal(t, []string{"id", "lat", "sensor_id"}, location.ColumnNames())
}

func TestBuildEntityIdempotent(t *testing.T) {
	node := internal.ParseSchemaNode(gjson.Parse(`{"properties": {"a": {"type": "integer"}, "readings": {"type": "array", "items": {"properties": {"b": {"type": "string"}}}}}}`))
	w := newWalker(logger.NewTestLogger(), "test", NewRegistry())
	require.NoError(t, w.buildEntity("Sensor", "Sensor", node))
	size := w.registry.Len()
	before, err := w.registry.Entities().JSON()
	require.NoError(t, err)
	require.NoError(t, w.buildEntity("Sensor", "Sensor", node))
	after, err := w.registry.Entities().JSON()
	require.NoError(t, err)
	assert.Equal(t, size, w.registry.Len())
	assert.Equal(t, string(before), string(after))
	assert.Empty(t, w.warnings)
}

func TestBuildRelationshipsIdempotent(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"readings": {"type": "array", "items": {"properties": {"a": {"type": "integer"}}}}}}`)
	require.NoError(t, err)
	before, err := w.registry.Entities().JSON()
	require.NoError(t, err)
	require.NoError(t, w.buildRelationships())
	after, err := w.registry.Entities().JSON()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Empty(t, w.warnings)
}

// The nullable flag comes from the required list of the property's own node and
// not from the required list of the parent, which is where JSON schema puts it.
func TestNullableReadsPropertyOwnRequiredList(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {
		"a": {"type": "integer", "required": ["a"]},
		"b": {"type": "string"}
	}, "required": ["b"]}`)
	require.NoError(t, err)
	sensor := w.registry.Get("Sensor")
	assert.False(t, sensor.FindColumn("a").Nullable)
	assert.True(t, sensor.FindColumn("b").Nullable)
}

func TestScalarTypesAndDrops(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {
		"i": {"type": "integer"},
		"n": {"type": "number"},
		"s": {"type": "string", "format": "date-time"},
		"b": {"type": "boolean"},
		"untyped": {},
		"nothing": {"type": "null"},
		"multi": {"type": ["string", "null"]},
		"id": {"type": "string"}
	}}`)
	require.NoError(t, err)
	sensor := w.registry.Get("Sensor")
	assert.Equal(t, []string{"id", "i", "n", "s", "b"}, sensor.ColumnNames())
	assert.Equal(t, model.Float, sensor.FindColumn("n").Type)
	assert.Equal(t, model.Boolean, sensor.FindColumn("b").Type)
	assert.Equal(t, "date-time", sensor.FindColumn("s").Format)
	require.Len(t, w.warnings, 3)
	assert.Equal(t, WarningUnsupportedType, w.warnings[0].Kind)
	assert.Equal(t, "nothing", w.warnings[0].Property)
	assert.Equal(t, WarningUnsupportedType, w.warnings[1].Kind)
	assert.Equal(t, "multi", w.warnings[1].Property)
	assert.Equal(t, WarningShadowedPrimaryKey, w.warnings[2].Kind)
}

func TestSanitizedNames(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {
		"no2-level": {"type": "number"},
		"no2 level": {"type": "number"},
		"sub-part": {"type": "object", "properties": {"x": {"type": "integer"}}}
	}}`)
	require.NoError(t, err)
	sensor := w.registry.Get("Sensor")
	assert.Equal(t, []string{"id", "no2_level"}, sensor.ColumnNames())
	assert.NotNil(t, w.registry.Get("Sensorsub_part"))
	assert.Equal(t, "sub_part", sensor.Relationships[0].Name)
	require.Len(t, w.warnings, 1)
	assert.Equal(t, WarningNameCollision, w.warnings[0].Kind)
}

func TestEntityNameCollisionFirstWins(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {
		"a-b": {"type": "object", "properties": {"first": {"type": "integer"}}},
		"a b": {"type": "object", "properties": {"second": {"type": "integer"}}}
	}}`)
	require.NoError(t, err)
	child := w.registry.Get("Sensora_b")
	require.NotNil(t, child)
	assert.NotNil(t, child.FindColumn("first"))
	assert.Nil(t, child.FindColumn("second"))
	require.Len(t, w.warnings, 1)
	assert.Equal(t, WarningNameCollision, w.warnings[0].Kind)
	assert.Equal(t, "Sensora_b", w.warnings[0].Entity)
}

func TestExistingForeignKeyColumnReused(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"readings": {"type": "array", "items": {"properties": {"sensor_id": {"type": "integer"}}}}}}`)
	require.NoError(t, err)
	item := w.registry.Get("SensorreadingsItem")
	assert.Equal(t, []string{"id", "sensor_id"}, item.ColumnNames())
	assert.NotNil(t, item.FindForeignKey("sensor_id"))
	require.Len(t, w.warnings, 1)
	assert.Equal(t, WarningExistingForeignKeyColumn, w.warnings[0].Kind)
}

func TestExistingForeignKeyColumnRetyped(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"readings": {"type": "array", "items": {"properties": {"sensor_id": {"type": "string", "format": "date-time"}}}}}}`)
	require.NoError(t, err)
	item := w.registry.Get("SensorreadingsItem")
	assert.Equal(t, []string{"id", "sensor_id"}, item.ColumnNames())
	column := item.FindColumn("sensor_id")
	require.NotNil(t, column)
	assert.Equal(t, model.Integer, column.Type)
	assert.Empty(t, column.Format)
	assert.NotNil(t, item.FindForeignKey("sensor_id"))
	require.Len(t, w.warnings, 1)
	assert.Equal(t, WarningExistingForeignKeyColumn, w.warnings[0].Kind)
	assert.Contains(t, w.warnings[0].Message, "was changed to")
}

func TestEmptyChildPropertyName(t *testing.T) {
	for _, schema := range []string{
		`{"properties": {"a": {"type": "integer"}, "": {"type": "object", "properties": {"b": {"type": "integer"}}}}}`,
		`{"properties": {"a": {"type": "integer"}, "": {"type": "array", "items": {"properties": {"b": {"type": "integer"}}}}}}`,
	} {
		w, err := walk(t, "Sensor", schema)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedNode))
		var malformed *MalformedNodeError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, "Sensor", malformed.Entity)
		assert.Nil(t, w.registry.Get("Sensor"))
	}
}

func TestScalarArrayItems(t *testing.T) {
	w, err := walk(t, "Sensor", `{"properties": {"values": {"type": "array", "items": {"type": "number"}}}}`)
	require.NoError(t, err)
	item := w.registry.Get("SensorvaluesItem")
	require.NotNil(t, item)
	assert.Equal(t, []string{"id", "sensor_id"}, item.ColumnNames())
}

func TestMalformedNodes(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		entity   string
		property string
	}{
		{"array without items", `{"properties": {"readings": {"type": "array"}}}`, "Sensor", "readings"},
		{"object without properties", `{"properties": {"location": {"type": "object"}}}`, "Sensorlocation", ""},
		{"items object without properties", `{"properties": {"readings": {"type": "array", "items": {"type": "object"}}}}`, "SensorreadingsItem", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := walk(t, "Sensor", tt.schema)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedNode))
			var malformed *MalformedNodeError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.entity, malformed.Entity)
			assert.Equal(t, tt.property, malformed.Property)
		})
	}
}

func newTestConverter(docs map[string]string) *Converter {
	return New(Config{
		Logger:   logger.NewTestLogger(),
		Provider: &fakeProvider{docs: docs},
		Parallel: 2,
	})
}

func TestConvertDocument(t *testing.T) {
	c := newTestConverter(nil)
	doc, err := internal.NewSchemaDocument("Air Quality", []byte(sensorDoc(`"location": {"type": "object", "properties": {"lat": {"type": "number"}, "lon": {"type": "number"}}}`)))
	require.NoError(t, err)
	entities, warnings, err := c.ConvertDocument("Air Quality", doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"AirQualitySensor", "AirQualitySensorlocation"}, entities.Names())
	sensor := entities["AirQualitySensor"]
	assert.Equal(t, "air_quality_sensors", sensor.Table)
	assert.Equal(t, []string{"id", "value", "timestamp"}, sensor.ColumnNames())
	assert.Equal(t, "date-time", sensor.FindColumn("timestamp").Format)
	location := entities["AirQualitySensorlocation"]
	assert.Equal(t, "air_quality_sensorlocations", location.Table)
	assert.Equal(t, "airqualitysensor_id", location.ForeignKeys[0].Column)
	assert.Equal(t, "air_quality_sensors", location.ForeignKeys[0].TargetTable)
}

func TestConvertDocumentRejectsEnvelope(t *testing.T) {
	c := newTestConverter(nil)
	doc, err := internal.NewSchemaDocument("Air Quality", []byte(`{"properties": {}}`))
	require.NoError(t, err)
	entities, _, err := c.ConvertDocument("Air Quality", doc)
	assert.Nil(t, entities)
	assert.True(t, errors.Is(err, ErrEnvelope))
}

func TestConvertBatchIsolation(t *testing.T) {
	c := newTestConverter(map[string]string{
		"Air Quality":  sensorDoc(""),
		"Broken":       `{"properties": {"sensors": {"type": "array", "items": {"properties": {"id": {"type": "integer"}, "value": {"type": "number"}}}}}}`,
		"Traffic Flow": sensorDoc(`"lanes": {"type": "array", "items": {"properties": {"count": {"type": "integer"}}}}`),
	})
	result := c.Convert(context.Background(), []string{"Air Quality", "Broken", "Traffic Flow"})
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, []string{"AirQualitySensor", "TrafficFlowSensor", "TrafficFlowSensorlanesItem"}, result.Entities.Names())
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "Broken", result.Rejected[0].SensorType)
	assert.Contains(t, result.Rejected[0].Reason, "missing required property: timestamp")
	assert.True(t, result.IsRejected("Broken"))
	assert.False(t, result.IsRejected("Air Quality"))
}

func TestConvertRejectsFetchAndMalformed(t *testing.T) {
	c := newTestConverter(map[string]string{
		"Air Quality": sensorDoc(`"readings": {"type": "array"}`),
		"Noise":       sensorDoc(""),
	})
	result := c.Convert(context.Background(), []string{"Missing", "Air Quality", "Noise"})
	assert.Equal(t, []string{"NoiseSensor"}, result.Entities.Names())
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, "Missing", result.Rejected[0].SensorType)
	assert.Contains(t, result.Rejected[0].Reason, "sensor type not found")
	assert.Equal(t, "Air Quality", result.Rejected[1].SensorType)
	assert.Contains(t, result.Rejected[1].Reason, "array without 'items'")
}

func TestConvertCrossTypeCollision(t *testing.T) {
	c := newTestConverter(map[string]string{
		"Air Quality": sensorDoc(`"first": {"type": "integer"}`),
		"AirQuality":  sensorDoc(`"second": {"type": "integer"}`),
	})
	result := c.Convert(context.Background(), []string{"Air Quality", "AirQuality"})
	assert.Empty(t, result.Rejected)
	require.Len(t, result.Entities, 1)
	assert.NotNil(t, result.Entities["AirQualitySensor"].FindColumn("first"))
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningNameCollision, result.Warnings[0].Kind)
	assert.Equal(t, "AirQuality", result.Warnings[0].SensorType)
}

func TestConvertCancelledContext(t *testing.T) {
	c := newTestConverter(map[string]string{"Noise": sensorDoc("")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := c.Convert(ctx, []string{"Noise"})
	assert.Empty(t, result.Entities)
	require.Len(t, result.Rejected, 1)
	assert.Contains(t, result.Rejected[0].Reason, "context canceled")
}

func TestConvertDeterministic(t *testing.T) {
	docs := map[string]string{
		"Air Quality":  sensorDoc(`"location": {"type": "object", "properties": {"lat": {"type": "number"}}}, "tags": {"type": "array", "items": {"type": "string"}}`),
		"Traffic Flow": sensorDoc(`"lanes": {"type": "array", "items": {"properties": {"count": {"type": "integer"}}}}`),
	}
	types := []string{"Air Quality", "Traffic Flow"}
	first := newTestConverter(docs).Convert(context.Background(), types)
	second := newTestConverter(docs).Convert(context.Background(), types)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	buf1, err := first.Entities.JSON()
	require.NoError(t, err)
	buf2, err := second.Entities.JSON()
	require.NoError(t, err)
	assert.Equal(t, string(buf1), string(buf2))
	fp1, err := Fingerprint(first.Entities)
	require.NoError(t, err)
	fp2, err := Fingerprint(second.Entities)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.False(t, strings.Contains(string(buf1), `"sensorType"`))
}

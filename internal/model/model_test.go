package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityHasSyntheticPrimaryKey(t *testing.T) {
	e := NewEntity("Sensor", "sensors")
	assert.Equal(t, "id", e.PrimaryKey.Name)
	assert.Equal(t, Integer, e.PrimaryKey.Type)
	assert.False(t, e.PrimaryKey.Nullable)
	assert.Empty(t, e.Columns)
	assert.Equal(t, []string{"id"}, e.ColumnNames())
}

func TestAddColumnKeyedByName(t *testing.T) {
	e := NewEntity("Sensor", "sensors")
	assert.True(t, e.AddColumn(Column{Name: "value", Type: Float, Nullable: true}))
	assert.False(t, e.AddColumn(Column{Name: "value", Type: String}))
	assert.False(t, e.AddColumn(Column{Name: "id", Type: Integer}))
	require.Len(t, e.Columns, 1)
	assert.Equal(t, Float, e.Columns[0].Type)
	assert.Equal(t, []string{"id", "value"}, e.ColumnNames())
}

func TestAddForeignKeyAndRelationshipKeyedByName(t *testing.T) {
	e := NewEntity("Sensor", "sensors")
	assert.True(t, e.AddForeignKey(ForeignKey{Column: "parent_id", TargetEntity: "Parent"}))
	assert.False(t, e.AddForeignKey(ForeignKey{Column: "parent_id", TargetEntity: "Other"}))
	assert.True(t, e.AddRelationship(Relationship{Name: "location", TargetEntity: "SensorLocation"}))
	assert.False(t, e.AddRelationship(Relationship{Name: "location", TargetEntity: "Other"}))
	assert.Equal(t, "Parent", e.FindForeignKey("parent_id").TargetEntity)
	assert.Equal(t, "SensorLocation", e.FindRelationship("location").TargetEntity)
	assert.Nil(t, e.FindRelationship("missing"))
}

func TestPendingRelationshipCardinality(t *testing.T) {
	assert.Equal(t, OneToMany, PendingRelationship{IsArray: true}.Cardinality())
	assert.Equal(t, OneToOne, PendingRelationship{IsArray: false}.Cardinality())
}

func TestEntityMapSortedParentsFirst(t *testing.T) {
	parent := NewEntity("Sensor", "sensors")
	child := NewEntity("SensorreadingsItem", "sensorreadings_items")
	child.AddForeignKey(ForeignKey{Column: "sensor_id", TargetEntity: "Sensor"})
	grandchild := NewEntity("SensorreadingsItemAItem", "x")
	grandchild.AddForeignKey(ForeignKey{Column: "sensorreadingsitem_id", TargetEntity: "SensorreadingsItem"})
	other := NewEntity("Another", "anothers")
	m := EntityMap{
		grandchild.Name: grandchild,
		child.Name:      child,
		parent.Name:     parent,
		other.Name:      other,
	}
	var names []string
	for _, e := range m.Sorted() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"Another", "Sensor", "SensorreadingsItem", "SensorreadingsItemAItem"}, names)
	assert.Equal(t, []string{"Another", "Sensor", "SensorreadingsItem", "SensorreadingsItemAItem"}, m.Names())
}

func TestEntityMapMergeFirstWriterWins(t *testing.T) {
	first := NewEntity("Sensor", "sensors")
	first.AddColumn(Column{Name: "a", Type: Integer})
	second := NewEntity("Sensor", "sensors")
	m := EntityMap{"Sensor": first}
	collisions := m.Merge(EntityMap{"Sensor": second, "Other": NewEntity("Other", "others")})
	assert.Equal(t, []string{"Sensor"}, collisions)
	assert.Same(t, first, m["Sensor"])
	assert.Len(t, m, 2)
}

func TestEntityMapJSONDeterministic(t *testing.T) {
	build := func() EntityMap {
		a := NewEntity("A", "as")
		a.AddColumn(Column{Name: "x", Type: String, Nullable: true})
		b := NewEntity("B", "bs")
		return EntityMap{"B": b, "A": a}
	}
	buf1, err := build().JSON()
	require.NoError(t, err)
	buf2, err := build().JSON()
	require.NoError(t, err)
	assert.Equal(t, string(buf1), string(buf2))
	assert.Contains(t, string(buf1), `"primaryKey"`)
}

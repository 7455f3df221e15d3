package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PrimaryKeyName is the name of the synthetic primary key every entity gets.
const PrimaryKeyName = "id"

// SemanticType is the database independent type of a column.
type SemanticType string

const (
	Integer SemanticType = "Integer"
	Float   SemanticType = "Float"
	String  SemanticType = "String"
	Boolean SemanticType = "Boolean"
)

// Cardinality is the multiplicity of a relationship.
type Cardinality string

const (
	OneToMany Cardinality = "OneToMany"
	OneToOne  Cardinality = "OneToOne"
)

type Column struct {
	Name     string       `json:"name"`
	Type     SemanticType `json:"type"`
	Nullable bool         `json:"nullable"`
	// Format is the JSON schema format hint (such as date-time) if one was declared.
	Format string `json:"format,omitempty"`
}

func (c Column) String() string {
	return fmt.Sprintf("Column[name=%s,type=%s,nullable=%v]", c.Name, c.Type, c.Nullable)
}

type ForeignKey struct {
	Column       string `json:"column"`
	TargetEntity string `json:"targetEntity"`
	TargetTable  string `json:"targetTable"`
	TargetColumn string `json:"targetColumn"`
	OnDelete     string `json:"onDelete"`
}

type Relationship struct {
	Name          string      `json:"name"`
	TargetEntity  string      `json:"targetEntity"`
	Cardinality   Cardinality `json:"cardinality"`
	CascadeDelete bool        `json:"cascadeDelete"`
}

// PendingRelationship is a parent/child link found while walking a schema that is turned
// into a foreign key and a relationship once every entity of the walk exists.
type PendingRelationship struct {
	Parent  string
	Child   string
	IsArray bool
}

// Cardinality returns the cardinality of the relationship this will become.
func (p PendingRelationship) Cardinality() Cardinality {
	if p.IsArray {
		return OneToMany
	}
	return OneToOne
}

type EntityDefinition struct {
	Name          string         `json:"name"`
	Table         string         `json:"table"`
	PrimaryKey    Column         `json:"primaryKey"`
	Columns       []Column       `json:"columns"`
	ForeignKeys   []ForeignKey   `json:"foreignKeys,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
}

// NewEntity returns an entity with the synthetic primary key and no columns.
func NewEntity(name string, table string) *EntityDefinition {
	return &EntityDefinition{
		Name:       name,
		Table:      table,
		PrimaryKey: Column{Name: PrimaryKeyName, Type: Integer, Nullable: false},
		Columns:    make([]Column, 0),
	}
}

func (e *EntityDefinition) String() string {
	return fmt.Sprintf("Entity[name=%s,table=%s,columns=%s]", e.Name, e.Table, e.Columns)
}

// FindColumn returns the column with the given name or nil if not found.
func (e *EntityDefinition) FindColumn(name string) *Column {
	for i := range e.Columns {
		if e.Columns[i].Name == name {
			return &e.Columns[i]
		}
	}
	return nil
}

// FindForeignKey returns the foreign key stored in column or nil if not found.
func (e *EntityDefinition) FindForeignKey(column string) *ForeignKey {
	for i := range e.ForeignKeys {
		if e.ForeignKeys[i].Column == column {
			return &e.ForeignKeys[i]
		}
	}
	return nil
}

// FindRelationship returns the relationship with the given name or nil if not found.
func (e *EntityDefinition) FindRelationship(name string) *Relationship {
	for i := range e.Relationships {
		if e.Relationships[i].Name == name {
			return &e.Relationships[i]
		}
	}
	return nil
}

// ColumnNames returns the names of all columns including the primary key first.
func (e *EntityDefinition) ColumnNames() []string {
	names := make([]string, 0, len(e.Columns)+1)
	names = append(names, e.PrimaryKey.Name)
	for _, c := range e.Columns {
		names = append(names, c.Name)
	}
	return names
}

// AddColumn appends a column unless one with the same name exists. Returns true if added.
func (e *EntityDefinition) AddColumn(column Column) bool {
	if column.Name == e.PrimaryKey.Name || e.FindColumn(column.Name) != nil {
		return false
	}
	e.Columns = append(e.Columns, column)
	return true
}

// AddForeignKey appends a foreign key unless the column already has one. Returns true if added.
func (e *EntityDefinition) AddForeignKey(fk ForeignKey) bool {
	if e.FindForeignKey(fk.Column) != nil {
		return false
	}
	e.ForeignKeys = append(e.ForeignKeys, fk)
	return true
}

// AddRelationship appends a relationship unless one with the same name exists. Returns true if added.
func (e *EntityDefinition) AddRelationship(rel Relationship) bool {
	if e.FindRelationship(rel.Name) != nil {
		return false
	}
	e.Relationships = append(e.Relationships, rel)
	return true
}

// EntityMap is a map of entity names to entity definitions.
type EntityMap map[string]*EntityDefinition

// Names returns the entity names sorted.
func (m EntityMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the entities so that every entity comes after the entities its foreign
// keys reference. Ties are broken by name so the order is stable.
func (m EntityMap) Sorted() []*EntityDefinition {
	names := m.Names()
	indegree := make(map[string]int, len(m))
	children := make(map[string][]string, len(m))
	for _, name := range names {
		indegree[name] += 0
		for _, fk := range m[name].ForeignKeys {
			if _, ok := m[fk.TargetEntity]; !ok || fk.TargetEntity == name {
				continue
			}
			indegree[name]++
			children[fk.TargetEntity] = append(children[fk.TargetEntity], name)
		}
	}
	var ready []string
	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	res := make([]*EntityDefinition, 0, len(m))
	seen := make(map[string]bool, len(m))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		res = append(res, m[name])
		seen[name] = true
		var next []string
		for _, child := range children[name] {
			indegree[child]--
			if indegree[child] == 0 {
				next = append(next, child)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sort.Strings(ready)
		}
	}
	// cycles can't come out of a schema tree but keep everything if a caller built one
	for _, name := range names {
		if !seen[name] {
			res = append(res, m[name])
		}
	}
	return res
}

// Merge copies the entities of other into m, keeping existing entries. Returns the names
// that were already present.
func (m EntityMap) Merge(other EntityMap) []string {
	var collisions []string
	for _, name := range other.Names() {
		if _, ok := m[name]; ok {
			collisions = append(collisions, name)
			continue
		}
		m[name] = other[name]
	}
	return collisions
}

// JSON returns the encoded map. Map keys are written sorted so equal maps encode to the same bytes.
func (m EntityMap) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

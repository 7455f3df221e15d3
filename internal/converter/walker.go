package converter

import (
	"fmt"

	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/eds-sensors/internal/naming"
	"github.com/shopmonkeyus/go-common/logger"
)

var semanticTypes = map[internal.SchemaType]model.SemanticType{
	internal.SchemaTypeInteger: model.Integer,
	internal.SchemaTypeNumber:  model.Float,
	internal.SchemaTypeString:  model.String,
	internal.SchemaTypeBoolean: model.Boolean,
}

// walker turns a schema tree into entities in a registry.
type walker struct {
	sensorType string
	logger     logger.Logger
	registry   *Registry
	paths      map[string]string
	warnings   []Warning
}

func newWalker(log logger.Logger, sensorType string, registry *Registry) *walker {
	return &walker{
		sensorType: sensorType,
		logger:     log,
		registry:   registry,
		paths:      make(map[string]string),
	}
}

func (w *walker) warn(entity string, property string, kind WarningKind, format string, args ...any) {
	warning := Warning{
		SensorType: w.sensorType,
		Entity:     entity,
		Property:   property,
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
	}
	w.logger.Warn("%s", warning)
	w.warnings = append(w.warnings, warning)
}

// buildEntity registers an entity for node and, depth first, one for every
// object or array property below it. Children are registered before their
// parent. The relationship between them is recorded as pending.
func (w *walker) buildEntity(name string, path string, node *internal.SchemaNode) error {
	if w.registry.Exists(name) {
		if prev := w.paths[name]; prev != path {
			w.warn(name, "", WarningNameCollision, "schema at %s maps to the entity already built from %s, keeping the first", path, prev)
		}
		return nil
	}
	if node.Type == internal.SchemaTypeObject && !node.HasProperties {
		return &MalformedNodeError{Entity: name, Reason: "object without 'properties'"}
	}

	entity := model.NewEntity(name, naming.TableName(name))

	for _, prop := range node.Properties {
		propName := naming.Sanitize(prop.Name)
		propPath := path + "." + prop.Name
		pnode := prop.Node
		switch {
		case pnode.Type.IsScalar():
			if propName == model.PrimaryKeyName {
				if pnode.Type == internal.SchemaTypeInteger {
					w.logger.Trace("property %s of %s is the primary key", prop.Name, name)
				} else {
					w.warn(name, prop.Name, WarningShadowedPrimaryKey, "property of type %s is named like the primary key and was dropped", string(pnode.Type))
				}
				continue
			}
			column := model.Column{
				Name:     propName,
				Type:     semanticTypes[pnode.Type],
				Nullable: !pnode.IsRequired(prop.Name), // looks at the property's own required list, not the parent's
				Format:   pnode.Format,
			}
			if !entity.AddColumn(column) {
				w.warn(name, prop.Name, WarningNameCollision, "column %s already exists, keeping the first", propName)
			}
		case (pnode.Type == internal.SchemaTypeArray || pnode.Type == internal.SchemaTypeObject) && propName == "":
			return &MalformedNodeError{Entity: name, Property: prop.Name, Reason: "empty property name"}
		case pnode.Type == internal.SchemaTypeArray:
			if !pnode.HasItems {
				return &MalformedNodeError{Entity: name, Property: prop.Name, Reason: "array without 'items'"}
			}
			child := name + propName + "Item"
			if err := w.buildEntity(child, propPath+"[]", pnode.Items); err != nil {
				return err
			}
			w.registry.AddPending(model.PendingRelationship{Parent: name, Child: child, IsArray: true})
		case pnode.Type == internal.SchemaTypeObject:
			child := name + propName
			if err := w.buildEntity(child, propPath, pnode); err != nil {
				return err
			}
			w.registry.AddPending(model.PendingRelationship{Parent: name, Child: child, IsArray: false})
		case pnode.Type == internal.SchemaTypeAbsent:
			w.logger.Trace("skipping property %s of %s without a type", prop.Name, name)
		default:
			w.warn(name, prop.Name, WarningUnsupportedType, "type %q is not supported, property dropped", string(pnode.Type))
		}
	}

	if !w.registry.Register(name, entity) {
		w.warn(name, "", WarningNameCollision, "schema at %s maps to an entity registered during its own walk, keeping the first", path)
		return nil
	}
	w.paths[name] = path
	w.logger.Trace("registered entity %s (table: %s) with %d columns", name, entity.Table, len(entity.Columns))
	return nil
}

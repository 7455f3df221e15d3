package converter

import (
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/eds-sensors/internal/naming"
)

// buildRelationships applies the pending relationships of the registry: the child
// gets a foreign key column to its parent and the parent a relationship to the child.
// Pending relationships with an end that was never registered are skipped. Applying
// the same relationships twice changes nothing.
func (w *walker) buildRelationships() error {
	for _, pending := range w.registry.Pending() {
		parent := w.registry.Get(pending.Parent)
		child := w.registry.Get(pending.Child)
		if parent == nil || child == nil {
			w.logger.Debug("skipping relationship %s -> %s, entity not registered", pending.Parent, pending.Child)
			continue
		}
		fkColumn := naming.ForeignKeyColumn(pending.Parent)
		if existing := child.FindColumn(fkColumn); existing != nil && child.FindForeignKey(fkColumn) == nil {
			if existing.Type != model.Integer {
				w.warn(child.Name, fkColumn, WarningExistingForeignKeyColumn, "column of type %s already exists and was changed to %s for the foreign key to %s", existing.Type, model.Integer, parent.Name)
				existing.Type = model.Integer
				existing.Format = ""
			} else {
				w.warn(child.Name, fkColumn, WarningExistingForeignKeyColumn, "column already exists and is used as the foreign key to %s", parent.Name)
			}
		} else if existing == nil {
			child.AddColumn(model.Column{Name: fkColumn, Type: model.Integer, Nullable: true})
		}
		child.AddForeignKey(model.ForeignKey{
			Column:       fkColumn,
			TargetEntity: parent.Name,
			TargetTable:  parent.Table,
			TargetColumn: parent.PrimaryKey.Name,
			OnDelete:     "CASCADE",
		})
		relName, err := naming.RelationshipName(pending.Parent, pending.Child)
		if err != nil {
			return err
		}
		parent.AddRelationship(model.Relationship{
			Name:          relName,
			TargetEntity:  child.Name,
			Cardinality:   pending.Cardinality(),
			CascadeDelete: true,
		})
	}
	return nil
}

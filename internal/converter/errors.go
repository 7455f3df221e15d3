package converter

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrEnvelope matches any error caused by a document that doesn't have the sensor array envelope.
var ErrEnvelope = errors.New("invalid sensor schema envelope")

// ErrMalformedNode matches any error caused by a node that claims a type without the sub schema it needs.
var ErrMalformedNode = errors.New("malformed schema node")

// EnvelopeError is returned when the top level document fails envelope validation.
type EnvelopeError struct {
	SensorType string
	Reason     string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s", e.SensorType, e.Reason)
}

func (e *EnvelopeError) Is(target error) bool {
	return target == ErrEnvelope
}

// MalformedNodeError is returned when a walk reaches a node that can't be decomposed.
type MalformedNodeError struct {
	Entity   string
	Property string
	Reason   string
}

func (e *MalformedNodeError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("malformed schema node for entity %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("malformed schema node for entity %s, property %s: %s", e.Entity, e.Property, e.Reason)
}

func (e *MalformedNodeError) Is(target error) bool {
	return target == ErrMalformedNode
}

// WarningKind classifies a condition that was tolerated during a conversion.
type WarningKind string

const (
	// WarningNameCollision is a second schema mapping to an entity name already registered. The first one wins.
	WarningNameCollision WarningKind = "name_collision"
	// WarningUnsupportedType is a property whose type is not understood. It is dropped.
	WarningUnsupportedType WarningKind = "unsupported_type"
	// WarningShadowedPrimaryKey is a property named like the synthetic primary key. It is dropped.
	WarningShadowedPrimaryKey WarningKind = "shadowed_primary_key"
	// WarningExistingForeignKeyColumn is a child that already has a column named like its foreign key.
	WarningExistingForeignKeyColumn WarningKind = "existing_foreign_key_column"
)

// Warning is a tolerated condition that did not change the outcome of a conversion.
type Warning struct {
	SensorType string      `json:"sensorType,omitempty"`
	Entity     string      `json:"entity"`
	Property   string      `json:"property,omitempty"`
	Kind       WarningKind `json:"kind"`
	Message    string      `json:"message"`
}

func (w Warning) String() string {
	if w.Property != "" {
		return fmt.Sprintf("%s: %s.%s: %s", w.Kind, w.Entity, w.Property, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Entity, w.Message)
}

// Rejection is a sensor type that could not be converted.
type Rejection struct {
	SensorType string `json:"sensorType"`
	Reason     string `json:"reason"`
}

package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/model"
	"github.com/shopmonkeyus/eds-sensors/internal/naming"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"golang.org/x/sync/errgroup"
)

const defaultParallel = 4

type Config struct {
	Logger   logger.Logger
	Provider internal.MetadataProvider
	// Parallel is the number of schema documents fetched at the same time.
	Parallel int
}

// Converter turns sensor schema documents into relational entity definitions.
type Converter struct {
	logger   logger.Logger
	provider internal.MetadataProvider
	parallel int
}

// Result is the outcome of converting a batch of sensor types.
type Result struct {
	SessionID string          `json:"sessionId"`
	Entities  model.EntityMap `json:"entities"`
	Rejected  []Rejection     `json:"rejected"`
	Warnings  []Warning       `json:"warnings"`
}

// IsRejected returns true if the sensor type was rejected.
func (r *Result) IsRejected(sensorType string) bool {
	for _, rej := range r.Rejected {
		if rej.SensorType == sensorType {
			return true
		}
	}
	return false
}

// New returns a converter.
func New(config Config) *Converter {
	parallel := config.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}
	return &Converter{
		logger:   config.Logger.WithPrefix("[converter]"),
		provider: config.Provider,
		parallel: parallel,
	}
}

type fetched struct {
	doc *internal.SchemaDocument
	err error
}

func (c *Converter) fetch(ctx context.Context, log logger.Logger, sensorTypes []string) []fetched {
	res := make([]fetched, len(sensorTypes))
	var g errgroup.Group
	g.SetLimit(c.parallel)
	for i, sensorType := range sensorTypes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				res[i].err = err
				return nil
			}
			started := time.Now()
			doc, err := c.provider.Schema(ctx, sensorType)
			internal.FetchDuration.Observe(time.Since(started).Seconds())
			if err != nil {
				log.Debug("error fetching schema for %s: %s", sensorType, err)
				res[i].err = fmt.Errorf("error fetching schema: %w", err)
				return nil
			}
			res[i].doc = doc
			return nil
		})
	}
	g.Wait()
	return res
}

// Convert converts the schema of every sensor type. A sensor type that can't be fetched or
// converted is added to the rejected list and the batch continues. Entities are merged in
// the order of sensorTypes and the first sensor type to produce an entity name keeps it.
func (c *Converter) Convert(ctx context.Context, sensorTypes []string) *Result {
	result := &Result{
		SessionID: uuid.NewString(),
		Entities:  make(model.EntityMap),
		Rejected:  make([]Rejection, 0),
		Warnings:  make([]Warning, 0),
	}
	log := c.logger.WithPrefix("[" + result.SessionID + "]")
	log.Debug("converting %d sensor types", len(sensorTypes))

	reject := func(sensorType string, err error) {
		log.Warn("rejected %s: %s", sensorType, err)
		result.Rejected = append(result.Rejected, Rejection{SensorType: sensorType, Reason: err.Error()})
		internal.SensorTypesRejected.Inc()
	}

	docs := c.fetch(ctx, log, sensorTypes)
	for i, sensorType := range sensorTypes {
		if docs[i].err != nil {
			reject(sensorType, docs[i].err)
			continue
		}
		entities, warnings, err := c.convertDocument(log, sensorType, docs[i].doc)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			reject(sensorType, err)
			continue
		}
		for _, name := range result.Entities.Merge(entities) {
			warning := Warning{
				SensorType: sensorType,
				Entity:     name,
				Kind:       WarningNameCollision,
				Message:    "entity was already generated by an earlier sensor type, keeping the first",
			}
			log.Warn("%s", warning)
			result.Warnings = append(result.Warnings, warning)
			internal.ConversionWarnings.WithLabelValues(string(warning.Kind)).Inc()
		}
		internal.SensorTypesConverted.Inc()
	}
	internal.EntitiesGenerated.Add(float64(len(result.Entities)))
	log.Debug("converted %d sensor types into %d entities, %d rejected", len(sensorTypes)-len(result.Rejected), len(result.Entities), len(result.Rejected))
	return result
}

// ConvertDocument converts the schema document of a single sensor type.
func (c *Converter) ConvertDocument(sensorType string, doc *internal.SchemaDocument) (model.EntityMap, []Warning, error) {
	return c.convertDocument(c.logger, sensorType, doc)
}

func (c *Converter) convertDocument(log logger.Logger, sensorType string, doc *internal.SchemaDocument) (entities model.EntityMap, warnings []Warning, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error converting %s: %w", sensorType, util.PanicError(r))
			entities = nil
		}
		internal.ConversionDuration.Observe(time.Since(started).Seconds())
	}()
	if doc == nil {
		return nil, nil, &EnvelopeError{SensorType: sensorType, Reason: "schema document missing"}
	}
	root := doc.Result()
	if err := CheckEnvelope(root, sensorType); err != nil {
		return nil, nil, err
	}
	registry := NewRegistry()
	w := newWalker(log.WithPrefix("["+sensorType+"]"), sensorType, registry)
	name := naming.BaseEntityName(sensorType)
	if err := w.buildEntity(name, name, itemSchema(root)); err != nil {
		return nil, w.warnings, err
	}
	if err := w.buildRelationships(); err != nil {
		return nil, w.warnings, err
	}
	for _, warning := range w.warnings {
		internal.ConversionWarnings.WithLabelValues(string(warning.Kind)).Inc()
	}
	return registry.Entities(), w.warnings, nil
}

// Fingerprint returns a hash of the JSON encoding of entities. Equal entity maps have equal fingerprints.
func Fingerprint(entities model.EntityMap) (string, error) {
	buf, err := entities.JSON()
	if err != nil {
		return "", err
	}
	return util.HashBytes(buf), nil
}

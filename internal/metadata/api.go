package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/eds-sensors/internal"
	"github.com/shopmonkeyus/eds-sensors/internal/tracker"
	"github.com/shopmonkeyus/eds-sensors/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tidwall/gjson"
)

const (
	sensorTypesPath      = "/sensors/types/json/"
	rawSensorDataPath    = "/sensors/data/json/"
	defaultCacheDuration = time.Hour * 24
)

type ProviderConfig struct {
	Logger    logger.Logger
	URL       string
	Timeout   time.Duration
	LastNDays int
	CacheTTL  time.Duration

	// Tracker is optional, when set documents are also cached on disk.
	Tracker *tracker.Tracker
}

type APIProvider struct {
	logger    logger.Logger
	apiURL    string
	lastNDays int
	ttl       time.Duration
	client    *http.Client
	tracker   *tracker.Tracker
	cache     util.Cache[[]byte]
	once      sync.Once
}

var _ internal.MetadataProvider = (*APIProvider)(nil)

func (p *APIProvider) Close() error {
	p.logger.Trace("closing")
	p.once.Do(func() {
		if err := p.cache.Close(); err != nil {
			p.logger.Error("error closing cache: %s", err)
		}
	})
	p.logger.Trace("closed")
	return nil
}

type errorResponse struct {
	Message string `json:"message"`
}

func (p *APIProvider) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := p.apiURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	retry, err := util.NewHTTPGet(ctx, u, util.WithLogger(p.logger), util.WithClient(p.client))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	started := time.Now()
	resp, err := retry.Do()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResponse errorResponse
		json.Unmarshal(buf, &errResponse)
		if errResponse.Message != "" {
			return nil, fmt.Errorf("%d: %s", resp.StatusCode, errResponse.Message)
		}
		return nil, fmt.Errorf("%d: %s", resp.StatusCode, strings.TrimSpace(string(buf)))
	}
	if !gjson.ValidBytes(buf) {
		return nil, errors.New("invalid json response")
	}
	p.logger.Trace("GET %s took %v (attempts: %d)", u, time.Since(started), retry.Attempts())
	return buf, nil
}

// SensorTypes returns the names of all sensor types known to the API.
func (p *APIProvider) SensorTypes(ctx context.Context) ([]string, error) {
	buf, err := p.get(ctx, sensorTypesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("error fetching sensor types: %w", err)
	}
	var types []string
	gjson.GetBytes(buf, "Variables.#.Name").ForEach(func(_, value gjson.Result) bool {
		if name := value.String(); name != "" {
			types = append(types, name)
		}
		return true
	})
	p.logger.Debug("fetched %d sensor types", len(types))
	return types, nil
}

// Schema returns the schema document for a sensor type. The document is inferred from the
// readings of the last days and cached in memory and in the tracker.
func (p *APIProvider) Schema(ctx context.Context, sensorType string) (*internal.SchemaDocument, error) {
	key := tracker.SchemaKey(sensorType)

	// fast path is to check the in memory cache first
	if buf, found := p.cache.Get(key); found {
		return internal.NewSchemaDocument(sensorType, buf)
	}

	if p.tracker != nil {
		found, val, err := p.tracker.GetKey(key)
		if err != nil {
			return nil, fmt.Errorf("error fetching schema from tracker: %w", err)
		}
		if found {
			p.cache.Set(key, []byte(val), p.ttl)
			return internal.NewSchemaDocument(sensorType, []byte(val))
		}
	}

	// we have to now fallback to the API to get a sample of the data
	query := url.Values{}
	query.Set("sensor_type", sensorType)
	if p.lastNDays > 0 {
		query.Set("last_n_days", strconv.Itoa(p.lastNDays))
	}
	sample, err := p.get(ctx, rawSensorDataPath, query)
	if err != nil {
		return nil, fmt.Errorf("error fetching data for sensor type: %s: %w", sensorType, err)
	}
	buf, err := Document(Infer(gjson.ParseBytes(sample)))
	if err != nil {
		return nil, fmt.Errorf("error encoding schema for sensor type: %s: %w", sensorType, err)
	}

	// save it in the cache and tracker
	p.cache.Set(key, buf, p.ttl)
	if p.tracker != nil {
		if err := p.tracker.SetKey(key, string(buf), p.ttl); err != nil {
			return nil, fmt.Errorf("error setting key %s in tracker: %w", key, err)
		}
	}
	p.logger.Trace("inferred schema for sensor type: %s", sensorType)
	return internal.NewSchemaDocument(sensorType, buf)
}

// Save the sensor types and their schema documents to a file.
func (p *APIProvider) Save(ctx context.Context, filename string) error {
	types, err := p.SensorTypes(ctx)
	if err != nil {
		return err
	}
	docs := make(map[string][]byte, len(types))
	for _, sensorType := range types {
		doc, err := p.Schema(ctx, sensorType)
		if err != nil {
			return err
		}
		docs[sensorType] = doc.Raw
	}
	return save(filename, types, docs)
}

// NewAPIProvider creates a new metadata provider backed by the sensor API.
func NewAPIProvider(ctx context.Context, config ProviderConfig) (*APIProvider, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("error parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url: %s", config.URL)
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &APIProvider{
		logger:    config.Logger.WithPrefix("[metadata]"),
		apiURL:    strings.TrimRight(config.URL, "/"),
		lastNDays: config.LastNDays,
		ttl:       ttl,
		client:    &http.Client{Timeout: config.Timeout},
		tracker:   config.Tracker,
		cache:     util.NewCache[[]byte](ctx, time.Hour),
	}, nil
}

package snapseek

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	addrs            []string
	password         string
	inferenceBaseURL string
	inferenceTimeout time.Duration

	assetDir       string
	assetRetention time.Duration

	embeddingIndex    string
	catalogIndex      string
	distanceThreshold float64
	topK              int

	inputDim        int
	confThreshold   float64
	iouThreshold    float64
	maxOutputs      int
	classOfInterest int
	cropDim         int

	logger *zap.Logger
}

// WithRedis sets the Redis Stack addresses holding the embedding and
// catalog indexes.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.addrs = addrs
	}
}

// WithPassword sets the database password.
func WithPassword(password string) Option {
	return func(c *clientConfig) {
		c.password = password
	}
}

// WithInference sets the model server base URL, e.g. "http://localhost:8501".
func WithInference(baseURL string) Option {
	return func(c *clientConfig) {
		c.inferenceBaseURL = baseURL
	}
}

// WithInferenceTimeout bounds one model server round trip.
func WithInferenceTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.inferenceTimeout = d
	}
}

// WithAssetDir sets the local directory for detected images.
func WithAssetDir(dir string) Option {
	return func(c *clientConfig) {
		c.assetDir = dir
	}
}

// WithAssetRetention sets how long detected images stay fetchable.
func WithAssetRetention(d time.Duration) Option {
	return func(c *clientConfig) {
		c.assetRetention = d
	}
}

// WithIndexes overrides the embedding and catalog index names.
func WithIndexes(embedding, catalog string) Option {
	return func(c *clientConfig) {
		c.embeddingIndex = embedding
		c.catalogIndex = catalog
	}
}

// WithDistanceThreshold overrides the largest cosine distance counted as
// a match.
func WithDistanceThreshold(d float64) Option {
	return func(c *clientConfig) {
		c.distanceThreshold = d
	}
}

// WithTopK overrides how many neighbors each embedding is resolved to.
func WithTopK(k int) Option {
	return func(c *clientConfig) {
		c.topK = k
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

func (c *clientConfig) applyDefaults() {
	if c.inferenceTimeout <= 0 {
		c.inferenceTimeout = 30 * time.Second
	}
	if c.assetRetention <= 0 {
		c.assetRetention = 5 * time.Minute
	}
	if c.embeddingIndex == "" {
		c.embeddingIndex = "idx:embeddings"
	}
	if c.catalogIndex == "" {
		c.catalogIndex = "idx:products"
	}
	if c.distanceThreshold <= 0 {
		c.distanceThreshold = 0.65
	}
	if c.topK <= 0 {
		c.topK = 5
	}
	if c.inputDim <= 0 {
		c.inputDim = 640
	}
	if c.confThreshold <= 0 {
		c.confThreshold = 0.25
	}
	if c.iouThreshold <= 0 {
		c.iouThreshold = 0.75
	}
	if c.maxOutputs <= 0 {
		c.maxOutputs = 100
	}
	if c.cropDim <= 0 {
		c.cropDim = 256
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
}

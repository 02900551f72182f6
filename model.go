package kdvector

import (
	"encoding/json"
	"errors"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/kdvector/embedding"
	"github.com/flarexio/kdvector/index"
	"github.com/flarexio/kdvector/persistence"
	"github.com/flarexio/kdvector/textsplit"
)

var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrDimensionMismatch = index.ErrDimensionMismatch
	ErrEmptyDocument     = errors.New("document has no chunks")
	ErrEmptyQuery        = errors.New("query is empty")
	ErrPointNotFound     = errors.New("point not found")
	ErrEmbedderNotSet    = errors.New("embedder not set")
	ErrSnapshotDisabled  = errors.New("snapshot store not set")
)

type ContextKey string

const (
	RequestID ContextKey = "request_id"
)

const DefaultK = 5

type Config struct {
	Dimension    int                `yaml:"dimension"`
	Embedding    embedding.Config   `yaml:"embedding"`
	Splitter     textsplit.Config   `yaml:"splitter"`
	Snapshot     persistence.Config `yaml:"snapshot"`
	SaveInterval Duration           `yaml:"saveInterval"`
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// Chunk is the metadata stored with every uploaded text chunk.
type Chunk struct {
	Text string `json:"text"`
}

type UploadResult struct {
	IDs    []int `json:"ids"`
	Chunks int   `json:"chunks"`
}

type QueryResult struct {
	ID       int             `json:"id"`
	Distance float32         `json:"distance"`
	Metadata json.RawMessage `json:"metadata"`
}

// parseMetadata returns metadata as raw JSON, or JSON null when the stored
// string is not a JSON document.
func parseMetadata(meta string) json.RawMessage {
	if meta == "" || !json.Valid([]byte(meta)) {
		return json.RawMessage("null")
	}

	return json.RawMessage(meta)
}

type Stats struct {
	TotalVectors int      `json:"total_vectors"`
	Dimension    int      `json:"dimension"`
	Depth        int      `json:"depth"`
	Uptime       Duration `json:"uptime"`
}

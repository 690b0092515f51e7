package index

import (
	"time"
)

// Entry is one stored chunk with its embedding.
type Entry struct {
	Position  int       `json:"position"`
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// Meta describes a persisted build. BuildID changes on every rebuild, which is
// how a Handle notices it has been superseded.
type Meta struct {
	BuildID        string    `json:"buildId"`
	Collection     string    `json:"collection"`
	EmbeddingModel string    `json:"embeddingModel,omitempty"`
	Backend        string    `json:"backend"`
	Dimension      int       `json:"dimension"`
	Count          int       `json:"count"`
	BuiltAt        time.Time `json:"builtAt"`
}

// Match is a retrieved entry and its cosine similarity to the query.
type Match struct {
	Entry Entry
	Score float64
}

// State is the lifecycle position of the store's canonical location.
type State int

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

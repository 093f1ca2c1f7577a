package codebook

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// codebookDocument mirrors the external structured codebook format: a
// version tag plus one mapping per target, each codeword a sparse list of
// (round, channel, value) records.
type codebookDocument struct {
	Version  string            `json:"version"`
	Mappings []mappingDocument `json:"mappings"`
}

type mappingDocument struct {
	Codeword []codeValue `json:"codeword"`
	Target   string      `json:"target"`
}

type codeValue struct {
	Round   int     `json:"r"`
	Channel int     `json:"c"`
	Value   float64 `json:"v"`
}

// FromJSON loads a codebook from its external JSON document. The round and
// channel counts are inferred from the largest indices present; values not
// mentioned by a codeword are zero.
func FromJSON(data []byte) (*Codebook, error) {
	var doc codebookDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding codebook document")
	}
	if len(doc.Mappings) == 0 {
		return nil, errors.New("codebook document has no mappings")
	}

	rounds, channels := 0, 0
	for _, m := range doc.Mappings {
		for _, cv := range m.Codeword {
			if cv.Round < 0 || cv.Channel < 0 {
				return nil, errors.Errorf("codeword for %q has negative round or channel index",
					m.Target)
			}
			if cv.Round+1 > rounds {
				rounds = cv.Round + 1
			}
			if cv.Channel+1 > channels {
				channels = cv.Channel + 1
			}
		}
	}
	if rounds == 0 || channels == 0 {
		return nil, errors.New("codebook document has empty codewords")
	}

	entries := make([]Entry, len(doc.Mappings))
	for i, m := range doc.Mappings {
		code := make([]float64, rounds*channels)
		for _, cv := range m.Codeword {
			code[cv.Round*channels+cv.Channel] = cv.Value
		}
		entries[i] = Entry{Target: m.Target, Code: code}
	}
	return New(rounds, channels, entries)
}

package output

import (
	"encoding/json"
	"fmt"

	"github.com/mvlachos/agora/internal/session"
)

// JSONRenderer emits the record plus computed summary statistics,
// shaped for jq and downstream analysis.
type JSONRenderer struct {
	Pretty bool
}

type jsonDocument struct {
	*session.SessionRecord
	DisplayID  string      `json:"display_id"`
	IsComplete bool        `json:"is_complete"`
	RoundCount int         `json:"round_count"`
	Summary    jsonSummary `json:"summary"`
}

type jsonSummary struct {
	TotalResponses  int      `json:"total_responses"`
	TotalErrors     int      `json:"total_errors,omitempty"`
	UniqueProviders []string `json:"unique_providers"`
	TotalTokens     int      `json:"total_tokens,omitempty"`
	TotalDurationMS float64  `json:"total_duration_ms,omitempty"`
	WallTimeSeconds float64  `json:"wall_time_seconds,omitempty"`
}

func (r *JSONRenderer) Render(rec *session.SessionRecord) (string, error) {
	doc := jsonDocument{
		SessionRecord: rec,
		DisplayID:     rec.DisplayID(),
		IsComplete:    rec.IsComplete(),
		RoundCount:    len(rec.Rounds),
		Summary:       summarize(rec),
	}

	var blob []byte
	var err error
	if r.Pretty {
		blob, err = json.MarshalIndent(doc, "", "  ")
	} else {
		blob, err = json.Marshal(doc)
	}
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	return string(blob), nil
}

func summarize(rec *session.SessionRecord) jsonSummary {
	s := jsonSummary{UniqueProviders: []string{}}

	seen := make(map[string]bool)
	for _, round := range rec.Rounds {
		for _, resp := range round.Responses {
			s.TotalResponses++
			if resp.Error {
				s.TotalErrors++
			}
			if resp.Provider != "" && !seen[resp.Provider] {
				seen[resp.Provider] = true
				s.UniqueProviders = append(s.UniqueProviders, resp.Provider)
			}
			s.TotalTokens += resp.TokensIn + resp.TokensOut
			s.TotalDurationMS += resp.DurationMS
		}
	}

	if rec.IsComplete() {
		s.WallTimeSeconds = rec.CompletedAt.Sub(rec.CreatedAt).Seconds()
	}
	return s
}

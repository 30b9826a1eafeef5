package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvlachos/agora/internal/agent"
)

// ResponseRecord is the durable form of one agent response.
type ResponseRecord struct {
	AgentName  string    `json:"agent_name"`
	Provider   string    `json:"provider,omitempty"`
	Model      string    `json:"model,omitempty"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS float64   `json:"duration_ms,omitempty"`
	TokensIn   int       `json:"tokens_in,omitempty"`
	TokensOut  int       `json:"tokens_out,omitempty"`
	Error      bool      `json:"error,omitempty"`
	ErrorType  string    `json:"error_type,omitempty"`
	Phase      string    `json:"phase,omitempty"`
}

// QuestionRound is one question put to the panel plus everything that
// came back, including the moderator's per-round synthesis when one
// ran.
type QuestionRound struct {
	RoundNumber        int              `json:"round_number"`
	Question           string           `json:"question"`
	Responses          []ResponseRecord `json:"responses"`
	ModeratorSynthesis string           `json:"moderator_synthesis,omitempty"`
}

// SessionRecord is the complete durable account of a session.
type SessionRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Tool           string          `json:"tool"`
	Mode           string          `json:"mode"`
	AgentCount     int             `json:"agent_count"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    time.Time       `json:"completed_at,omitzero"`
	Rounds         []QuestionRound `json:"rounds"`
	FinalSynthesis string          `json:"final_synthesis,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
}

// NewSessionRecord starts a record with a fresh short ID.
func NewSessionRecord(name, toolName, mode string) *SessionRecord {
	return &SessionRecord{
		ID:        uuid.NewString()[:8],
		Name:      name,
		Tool:      toolName,
		Mode:      mode,
		CreatedAt: time.Now(),
	}
}

// DisplayID is the human-friendly identifier, date-prefixed so listings
// sort chronologically: 20260828-1a2b3c4d.
func (s *SessionRecord) DisplayID() string {
	return s.CreatedAt.Format("20060102") + "-" + s.ID
}

// IsComplete reports whether the session ran to the end. A record
// without a completion stamp is an interrupted session.
func (s *SessionRecord) IsComplete() bool {
	return !s.CompletedAt.IsZero()
}

// AddRound converts a finished round into its durable form and appends
// it.
func (s *SessionRecord) AddRound(result *RoundResult) *QuestionRound {
	round := QuestionRound{
		RoundNumber:        result.RoundNumber,
		Question:           result.Prompt,
		Responses:          make([]ResponseRecord, 0, len(result.Responses)),
		ModeratorSynthesis: result.Synthesis,
	}
	for _, resp := range result.Responses {
		round.Responses = append(round.Responses, recordResponse(result.Prompt, resp))
	}
	s.Rounds = append(s.Rounds, round)
	return &s.Rounds[len(s.Rounds)-1]
}

// TotalResponses counts responses across all rounds.
func (s *SessionRecord) TotalResponses() int {
	n := 0
	for _, round := range s.Rounds {
		n += len(round.Responses)
	}
	return n
}

func recordResponse(prompt string, resp *agent.Response) ResponseRecord {
	rec := ResponseRecord{
		AgentName:  resp.AgentName,
		Model:      resp.Model,
		Prompt:     prompt,
		Response:   resp.Content,
		Timestamp:  resp.Timestamp,
		DurationMS: resp.LatencyMS,
		TokensIn:   resp.TokensIn,
		TokensOut:  resp.TokensOut,
	}
	if provider, ok := resp.Meta["provider"].(string); ok {
		rec.Provider = provider
	}
	if phase, ok := resp.Meta["phase"].(string); ok {
		rec.Phase = phase
	}
	if resp.IsError() {
		rec.Error = true
		rec.ErrorType = resp.ErrorType()
	}
	return rec
}

// Storage persists session records. The sqlite and file backends both
// satisfy it.
type Storage interface {
	Save(record *SessionRecord) (string, error)
}

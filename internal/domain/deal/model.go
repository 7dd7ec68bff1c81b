package deal

import (
	"slices"
	"time"

	"github.com/rpggio/crmdesk/internal/repository"
)

// Field names used by every backend.
const (
	FieldTitle             = "title"
	FieldValue             = "value"
	FieldStage             = "stage"
	FieldContactID         = "contactId"
	FieldProbability       = "probability"
	FieldExpectedCloseDate = "expectedCloseDate"
)

// Stage is a position in the sales pipeline.
type Stage string

const (
	StageLead       Stage = "lead"
	StageQualified  Stage = "qualified"
	StageProposal   Stage = "proposal"
	StageClosedWon  Stage = "closed-won"
	StageClosedLost Stage = "closed-lost"
)

// Stages lists the pipeline stages in board order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageClosedWon, StageClosedLost}

var stageLabels = map[Stage]string{
	StageLead:       "Lead",
	StageQualified:  "Qualified",
	StageProposal:   "Proposal",
	StageClosedWon:  "Closed Won",
	StageClosedLost: "Closed Lost",
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return slices.Contains(Stages, s)
}

// Label returns the display name of s.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// DefaultProbability is applied when a deal is created without one.
const DefaultProbability = 10

// Deal is a sales opportunity with one contact.
type Deal struct {
	ID                int64     `json:"id" yaml:"-"`
	Title             string    `json:"title" yaml:"title"`
	Value             float64   `json:"value" yaml:"value"`
	Stage             Stage     `json:"stage" yaml:"stage"`
	ContactID         int64     `json:"contact_id" yaml:"contact_id"`
	Probability       int       `json:"probability" yaml:"probability"`
	ExpectedCloseDate time.Time `json:"expected_close_date" yaml:"expected_close_date"`
	CreatedAt         time.Time `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"-"`
}

// Fields returns the stored representation of d.
func (d Deal) Fields() repository.Fields {
	return repository.Fields{
		FieldTitle:             d.Title,
		FieldValue:             d.Value,
		FieldStage:             string(d.Stage),
		FieldContactID:         d.ContactID,
		FieldProbability:       int64(d.Probability),
		FieldExpectedCloseDate: d.ExpectedCloseDate,
	}
}

// FromRecord converts a stored record into a Deal.
func FromRecord(rec repository.Record) Deal {
	return Deal{
		ID:                rec.ID,
		Title:             rec.Fields.String(FieldTitle),
		Value:             rec.Fields.Float(FieldValue),
		Stage:             Stage(rec.Fields.String(FieldStage)),
		ContactID:         rec.Fields.Int(FieldContactID),
		Probability:       int(rec.Fields.Int(FieldProbability)),
		ExpectedCloseDate: rec.Fields.Time(FieldExpectedCloseDate),
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// StageSummary aggregates the deals in one stage.
type StageSummary struct {
	Stage Stage   `json:"stage"`
	Label string  `json:"label"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
	Deals []Deal  `json:"deals"`
}

// BuildPipeline groups deals by stage, one entry per known stage in board
// order. Deals with an unknown stage are left out.
func BuildPipeline(deals []Deal) []StageSummary {
	out := make([]StageSummary, len(Stages))
	index := make(map[Stage]int, len(Stages))
	for i, s := range Stages {
		out[i] = StageSummary{Stage: s, Label: s.Label(), Deals: []Deal{}}
		index[s] = i
	}
	for _, d := range deals {
		i, ok := index[d.Stage]
		if !ok {
			continue
		}
		out[i].Count++
		out[i].Value += d.Value
		out[i].Deals = append(out[i].Deals, d)
	}
	return out
}

// Package seed holds the sample dataset served by the mock backend.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/rpggio/crmdesk/internal/domain/activity"
	"github.com/rpggio/crmdesk/internal/domain/comment"
	"github.com/rpggio/crmdesk/internal/domain/contact"
	"github.com/rpggio/crmdesk/internal/domain/deal"
	"github.com/rpggio/crmdesk/internal/domain/task"
	"github.com/rpggio/crmdesk/internal/repository"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultData []byte

// Dataset is a set of records for every entity kind.
type Dataset struct {
	Contacts   []contact.Contact   `yaml:"contacts"`
	Deals      []deal.Deal         `yaml:"deals"`
	Tasks      []task.Task         `yaml:"tasks"`
	Activities []activity.Activity `yaml:"activities"`
	Comments   []comment.Comment   `yaml:"comments"`
}

// Default returns the embedded sample dataset.
func Default() (*Dataset, error) {
	return Parse(defaultData)
}

// Parse decodes a dataset. Unknown keys are rejected.
func Parse(data []byte) (*Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}
	return &ds, nil
}

// Records returns the stored representation of every record, grouped by kind
// and in file order.
func (d *Dataset) Records() map[repository.Kind][]repository.Fields {
	out := make(map[repository.Kind][]repository.Fields, len(repository.Kinds))
	for _, c := range d.Contacts {
		out[repository.KindContact] = append(out[repository.KindContact], c.Fields())
	}
	for _, dl := range d.Deals {
		out[repository.KindDeal] = append(out[repository.KindDeal], dl.Fields())
	}
	for _, t := range d.Tasks {
		out[repository.KindTask] = append(out[repository.KindTask], t.Fields())
	}
	for _, a := range d.Activities {
		out[repository.KindActivity] = append(out[repository.KindActivity], a.Fields())
	}
	for _, c := range d.Comments {
		out[repository.KindComment] = append(out[repository.KindComment], c.Fields())
	}
	return out
}

package analysis

import (
	"github.com/pkg/errors"

	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/pattern"
)

type Report struct {
	// MainTag is empty if no pattern matched.
	MainTag           string
	IsTagAction       bool
	IsGeometricAction bool
	AddedTags         element.Tags
	RemovedTags       element.Tags
	ModifiedTagsOld   element.Tags
	ModifiedTagsNew   element.Tags
}

// Tags returns all tags the report refers to.
func (r *Report) Tags() element.Tags {
	var tags element.Tags
	tags = append(tags, r.AddedTags...)
	tags = append(tags, r.RemovedTags...)
	tags = append(tags, r.ModifiedTagsOld...)
	tags = append(tags, r.ModifiedTagsNew...)
	return tags
}

func NewReport(a *element.Action, tagsImportance []pattern.Compound) (*Report, error) {
	geometric, err := IsGeometricAction(a)
	if err != nil {
		return nil, errors.Wrapf(err, "analyzing %s", a)
	}
	r := &Report{
		MainTag:           FindMainTag(a, tagsImportance),
		IsTagAction:       IsTagAction(a),
		IsGeometricAction: geometric,
		AddedTags:         AddedTags(a),
		RemovedTags:       RemovedTags(a),
	}
	r.ModifiedTagsOld, r.ModifiedTagsNew = ModifiedTags(a)
	return r, nil
}

// Reports gives access to the report of an action.
type Reports interface {
	Report(a *element.Action) (*Report, error)
}

// Analyzer computes reports and caches them per action. It is not safe for
// concurrent use.
type Analyzer struct {
	tagsImportance []pattern.Compound
	reports        map[*element.Action]*Report
}

func NewAnalyzer(tagsImportance []pattern.Compound) *Analyzer {
	return &Analyzer{
		tagsImportance: tagsImportance,
		reports:        make(map[*element.Action]*Report),
	}
}

// Report returns the cached report of a or computes it on first use.
func (an *Analyzer) Report(a *element.Action) (*Report, error) {
	if r, ok := an.reports[a]; ok {
		return r, nil
	}
	r, err := NewReport(a, an.tagsImportance)
	if err != nil {
		return nil, err
	}
	an.reports[a] = r
	return r, nil
}

// AnalyzeAll computes the reports of all actions.
func (an *Analyzer) AnalyzeAll(actions []*element.Action) error {
	for _, a := range actions {
		if _, err := an.Report(a); err != nil {
			return err
		}
	}
	return nil
}

func (an *Analyzer) Len() int {
	return len(an.reports)
}

// Package exporter renders actions as CSV or adiff documents.
package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/osmada/osmada/adiff"
	"github.com/osmada/osmada/analysis"
	"github.com/osmada/osmada/element"
)

type Exporter interface {
	Export(actions []*element.Action) (string, error)
}

var csvHeader = []string{
	"id", "version", "timestamp", "changeset", "user", "uid", "action_type", "element_type",
}

var analyzedHeader = []string{
	"main_tag", "is_geometric_action", "is_tag_action", "added_tags", "removed_tags", "modified_tags",
}

// CSVExporter writes one row per action, describing the new element (or the
// old one for actions without new element).
type CSVExporter struct{}

func (CSVExporter) Export(actions []*element.Action) (string, error) {
	return writeCSV(csvHeader, actions, func(a *element.Action) ([]string, error) {
		return row(a)
	})
}

// AnalyzedCSVExporter extends the CSVExporter rows with the analysis report
// of each action.
type AnalyzedCSVExporter struct {
	Reports analysis.Reports
}

func (e AnalyzedCSVExporter) Export(actions []*element.Action) (string, error) {
	header := append(append([]string{}, csvHeader...), analyzedHeader...)
	return writeCSV(header, actions, func(a *element.Action) ([]string, error) {
		fields, err := row(a)
		if err != nil {
			return nil, err
		}
		r, err := e.Reports.Report(a)
		if err != nil {
			return nil, err
		}
		return append(fields,
			r.MainTag,
			pyBool(r.IsGeometricAction),
			pyBool(r.IsTagAction),
			pyList(r.AddedTags.Strings()),
			pyList(r.RemovedTags.Strings()),
			"["+pyList(r.ModifiedTagsOld.Strings())+", "+pyList(r.ModifiedTagsNew.Strings())+"]",
		), nil
	})
}

// AdiffExporter writes an augmented diff.
type AdiffExporter struct{}

func (AdiffExporter) Export(actions []*element.Action) (string, error) {
	buf := bytes.Buffer{}
	if err := adiff.Encode(&buf, actions); err != nil {
		return "", errors.Wrap(err, "exporting adiff")
	}
	return buf.String(), nil
}

func writeCSV(header []string, actions []*element.Action, rowFunc func(*element.Action) ([]string, error)) (string, error) {
	buf := bytes.Buffer{}
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", errors.Wrap(err, "writing CSV header")
	}
	for _, a := range actions {
		fields, err := rowFunc(a)
		if err != nil {
			return "", errors.Wrapf(err, "exporting %s", a)
		}
		if err := w.Write(fields); err != nil {
			return "", errors.Wrap(err, "writing CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "writing CSV")
	}
	return buf.String(), nil
}

func row(a *element.Action) ([]string, error) {
	o := a.Element()
	typ, err := element.TypeOf(o)
	if err != nil {
		return nil, err
	}
	e := o.Base()
	return []string{
		optInt(e.ID),
		optInt(int64(e.Metadata.Version)),
		optTime(e.Metadata.Timestamp),
		optInt(e.Metadata.Changeset),
		e.Metadata.UserName,
		optInt(int64(e.Metadata.UserID)),
		string(a.Type),
		string(typ),
	}, nil
}

// optInt renders unknown (zero) values as empty fields.
func optInt(i int64) string {
	if i == 0 {
		return ""
	}
	return strconv.FormatInt(i, 10)
}

func optTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// pyList renders strings as a list literal: ['a=b', 'c=d']
func pyList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, s := range items {
		quoted = append(quoted, pyString(s))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// pyString quotes s like Python's repr: single quotes, or double quotes if s
// contains single but no double quotes.
func pyString(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	b := strings.Builder{}
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == '\\' || r == quote:
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case !unicode.IsPrint(r):
			switch {
			case r < 0x100:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r < 0x10000:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}

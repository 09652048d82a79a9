package adiff

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/osmada/osmada/element"
)

const generator = "osmada"

// Encode writes actions as an adiff document to w.
//
// Remove actions are written back as delete actions with a visible new
// element, create actions carry their element without <new> wrapper.
func Encode(w io.Writer, actions []*element.Action) error {
	doc := xmlOSM{
		Version:   "0.6",
		Generator: generator,
		Note:      "The data included in this document is from www.openstreetmap.org. The data is made available under ODbL.",
	}
	for _, a := range actions {
		xa, err := encodeAction(a)
		if err != nil {
			return err
		}
		doc.Actions = append(doc.Actions, *xa)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "writing XML header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return errors.Wrap(err, "encoding adiff")
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "writing adiff")
	}
	return nil
}

func encodeAction(a *element.Action) (*xmlAction, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	xa := &xmlAction{Type: string(a.Type)}
	if a.Type == element.Remove {
		xa.Type = string(element.Delete)
	}

	if a.Type == element.Create {
		v, err := encodeVersion(a.New, false)
		if err != nil {
			return nil, err
		}
		xa.xmlVersion = *v
		return xa, nil
	}

	var err error
	if xa.Old, err = encodeVersion(a.Old, false); err != nil {
		return nil, err
	}
	visibleNew := a.Type == element.Delete || a.Type == element.Remove
	if xa.New, err = encodeVersion(a.New, visibleNew); err != nil {
		return nil, err
	}
	return xa, nil
}

// encodeVersion wraps o, nil objects result in an empty version.
func encodeVersion(o element.Object, explicitVisible bool) (*xmlVersion, error) {
	v := &xmlVersion{}
	if o == nil {
		return v, nil
	}
	switch e := o.(type) {
	case *element.Node:
		v.Node = &xmlNode{
			xmlAttrs: encodeAttrs(&e.Element, explicitVisible),
			Tags:     encodeTags(e.Tags),
		}
		if e.Coord != nil {
			v.Node.Lat = formatCoord(e.Coord.Lat)
			v.Node.Lon = formatCoord(e.Coord.Long)
		}
	case *element.Way:
		v.Way = &xmlWay{
			xmlAttrs: encodeAttrs(&e.Element, explicitVisible),
			Bounds:   encodeBounds(e.Bounds),
			Nds:      encodeNds(e.Nodes),
			Tags:     encodeTags(e.Tags),
		}
	case *element.Relation:
		xr := &xmlRelation{
			xmlAttrs: encodeAttrs(&e.Element, explicitVisible),
			Bounds:   encodeBounds(e.Bounds),
			Tags:     encodeTags(e.Tags),
		}
		for _, m := range e.Members {
			typ, err := element.TypeOf(m.Object)
			if err != nil {
				return nil, errors.Wrapf(err, "member of relation %d", e.ID)
			}
			xm := xmlMember{Type: string(typ), Ref: m.Object.Base().ID, Role: m.Role}
			switch mo := m.Object.(type) {
			case *element.Node:
				if mo.Coord != nil {
					xm.Lat = formatCoord(mo.Coord.Lat)
					xm.Lon = formatCoord(mo.Coord.Long)
				}
			case *element.Way:
				xm.Nds = encodeNds(mo.Nodes)
			}
			xr.Members = append(xr.Members, xm)
		}
		v.Relation = xr
	default:
		_, err := element.TypeOf(o)
		return nil, errors.Wrapf(err, "encoding %s", o.Base())
	}
	return v, nil
}

func encodeAttrs(e *element.Element, explicitVisible bool) xmlAttrs {
	attrs := xmlAttrs{
		ID:        e.ID,
		Version:   e.Metadata.Version,
		Changeset: e.Metadata.Changeset,
		UID:       e.Metadata.UserID,
		User:      e.Metadata.UserName,
	}
	if !e.Visible {
		attrs.Visible = "false"
	} else if explicitVisible {
		attrs.Visible = "true"
	}
	if !e.Metadata.Timestamp.IsZero() {
		attrs.Timestamp = e.Metadata.Timestamp.UTC().Format(time.RFC3339)
	}
	return attrs
}

func encodeTags(tags element.Tags) []xmlTag {
	if len(tags) == 0 {
		return nil
	}
	xt := make([]xmlTag, 0, len(tags))
	for _, t := range tags {
		xt = append(xt, xmlTag{Key: t.Key, Value: t.Value})
	}
	return xt
}

func encodeNds(nodes []*element.Node) []xmlNd {
	if len(nodes) == 0 {
		return nil
	}
	nds := make([]xmlNd, 0, len(nodes))
	for _, n := range nodes {
		nd := xmlNd{Ref: n.ID}
		if n.Coord != nil {
			nd.Lat = formatCoord(n.Coord.Lat)
			nd.Lon = formatCoord(n.Coord.Long)
		}
		nds = append(nds, nd)
	}
	return nds
}

func encodeBounds(b *element.Bounds) *xmlBounds {
	if b == nil {
		return nil
	}
	return &xmlBounds{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

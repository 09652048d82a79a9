// Package adiff reads and writes OpenStreetMap augmented diffs.
//
// See https://wiki.openstreetmap.org/wiki/Overpass_API/Augmented_Diffs
package adiff

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/osmada/osmada/element"
	"github.com/osmada/osmada/log"
)

// FormatError is returned for input that is not a valid adiff.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...interface{}) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

var memberTypeValues = map[string]element.Type{
	"node":     element.NodeType,
	"way":      element.WayType,
	"relation": element.RelationType,
}

// Decode reads all actions of an adiff document.
func Decode(r io.Reader) ([]*element.Action, error) {
	decoder := xml.NewDecoder(r)

	var actions []*element.Action
	root := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Reason: "decoding next XML token", Err: err}
		}

		tok, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if !root {
			if tok.Name.Local != "osm" {
				return nil, formatErrorf("that does not look like an adiff file, root element is <%s>", tok.Name.Local)
			}
			root = true
			continue
		}

		switch tok.Name.Local {
		case "action":
			xa := xmlAction{}
			if err := decoder.DecodeElement(&xa, &tok); err != nil {
				return nil, &FormatError{Reason: fmt.Sprintf("decoding action #%d", len(actions)+1), Err: err}
			}
			a, err := decodeAction(&xa)
			if err != nil {
				return nil, err
			}
			actions = append(actions, a)
		case "note", "meta", "bounds", "remark":
			if err := decoder.Skip(); err != nil {
				return nil, &FormatError{Reason: "skipping <" + tok.Name.Local + ">", Err: err}
			}
		default:
			log.Printf("[warn] unhandled XML tag %s in adiff", tok.Name.Local)
			if err := decoder.Skip(); err != nil {
				return nil, &FormatError{Reason: "skipping <" + tok.Name.Local + ">", Err: err}
			}
		}
	}
	if !root {
		return nil, formatErrorf("empty document")
	}
	return actions, nil
}

func decodeAction(xa *xmlAction) (*element.Action, error) {
	a := &element.Action{Type: element.ActionType(xa.Type)}
	var err error

	switch a.Type {
	case element.Create:
		version := &xa.xmlVersion
		if version.empty() && xa.New != nil {
			version = xa.New
		}
		if a.New, err = decodeVersion(version); err != nil {
			return nil, err
		}
	case element.Modify, element.Delete:
		if xa.Old == nil {
			return nil, formatErrorf("there must be an <old> tag in %s action", a.Type)
		}
		if xa.New == nil {
			return nil, formatErrorf("there must be a <new> tag in %s action", a.Type)
		}
		if a.Old, err = decodeVersion(xa.Old); err != nil {
			return nil, err
		}
		if a.New, err = decodeVersion(xa.New); err != nil {
			return nil, err
		}
		// adiffs mark removals from a relation as delete, only the new
		// element stays visible. Without explicit visible="true" the
		// element is deleted.
		if a.Type == element.Delete && a.New != nil {
			if xa.New.visible() == "true" {
				a.Type = element.Remove
			} else {
				a.New.Base().Visible = false
			}
		}
	default:
		return nil, formatErrorf("%q is an unknown action type", xa.Type)
	}

	if err := a.Validate(); err != nil {
		return nil, &FormatError{Reason: "invalid action", Err: err}
	}
	return a, nil
}

// decodeVersion returns the element of v, or nil if v is empty.
func decodeVersion(v *xmlVersion) (element.Object, error) {
	switch {
	case v.Node != nil:
		return decodeNode(v.Node)
	case v.Way != nil:
		return decodeWay(v.Way)
	case v.Relation != nil:
		return decodeRelation(v.Relation)
	}
	return nil, nil
}

func decodeElement(e *element.Element, attrs *xmlAttrs, tags []xmlTag) error {
	e.ID = attrs.ID
	e.Visible = attrs.Visible != "false"
	e.Metadata.Version = attrs.Version
	e.Metadata.Changeset = attrs.Changeset
	e.Metadata.UserID = attrs.UID
	e.Metadata.UserName = attrs.User
	if attrs.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, attrs.Timestamp)
		if err != nil {
			return &FormatError{Reason: fmt.Sprintf("invalid timestamp of element %d", attrs.ID), Err: err}
		}
		e.Metadata.Timestamp = ts
	}
	for _, t := range tags {
		e.Tags = append(e.Tags, element.Tag{Key: t.Key, Value: t.Value})
	}
	return nil
}

func decodeCoord(lat, lon string) (*element.Coord, error) {
	if lat == "" || lon == "" {
		return nil, nil
	}
	c := &element.Coord{}
	var err error
	if c.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return nil, &FormatError{Reason: "invalid lat", Err: err}
	}
	if c.Long, err = strconv.ParseFloat(lon, 64); err != nil {
		return nil, &FormatError{Reason: "invalid lon", Err: err}
	}
	return c, nil
}

func decodeBounds(b *xmlBounds) *element.Bounds {
	if b == nil {
		return nil
	}
	return &element.Bounds{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}

func decodeNode(xn *xmlNode) (*element.Node, error) {
	n := &element.Node{}
	if err := decodeElement(&n.Element, &xn.xmlAttrs, xn.Tags); err != nil {
		return nil, err
	}
	var err error
	if n.Coord, err = decodeCoord(xn.Lat, xn.Lon); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNds(nds []xmlNd) ([]*element.Node, error) {
	nodes := make([]*element.Node, 0, len(nds))
	for _, nd := range nds {
		coord, err := decodeCoord(nd.Lat, nd.Lon)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &element.Node{
			Element: element.Element{ID: nd.Ref, Visible: true},
			Coord:   coord,
		})
	}
	return nodes, nil
}

func decodeWay(xw *xmlWay) (*element.Way, error) {
	w := &element.Way{}
	if err := decodeElement(&w.Element, &xw.xmlAttrs, xw.Tags); err != nil {
		return nil, err
	}
	w.Bounds = decodeBounds(xw.Bounds)
	var err error
	if w.Nodes, err = decodeNds(xw.Nds); err != nil {
		return nil, err
	}
	return w, nil
}

func decodeRelation(xr *xmlRelation) (*element.Relation, error) {
	r := &element.Relation{}
	if err := decodeElement(&r.Element, &xr.xmlAttrs, xr.Tags); err != nil {
		return nil, err
	}
	r.Bounds = decodeBounds(xr.Bounds)
	for _, xm := range xr.Members {
		typ, ok := memberTypeValues[xm.Type]
		if !ok {
			return nil, formatErrorf("unknown member type %q in relation %d", xm.Type, xr.ID)
		}
		obj, err := element.New(typ)
		if err != nil {
			return nil, err
		}
		base := obj.Base()
		base.ID = xm.Ref
		base.Visible = true
		switch m := obj.(type) {
		case *element.Node:
			if m.Coord, err = decodeCoord(xm.Lat, xm.Lon); err != nil {
				return nil, err
			}
		case *element.Way:
			if m.Nodes, err = decodeNds(xm.Nds); err != nil {
				return nil, err
			}
		}
		r.Members = append(r.Members, element.Member{Role: xm.Role, Object: obj})
	}
	return r, nil
}

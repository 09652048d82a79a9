package adiff

import "encoding/xml"

type xmlOSM struct {
	XMLName   xml.Name    `xml:"osm"`
	Version   string      `xml:"version,attr,omitempty"`
	Generator string      `xml:"generator,attr,omitempty"`
	Note      string      `xml:"note,omitempty"`
	Actions   []xmlAction `xml:"action"`
}

type xmlAction struct {
	Type string `xml:"type,attr"`
	// element of create actions
	xmlVersion
	Old *xmlVersion `xml:"old"`
	New *xmlVersion `xml:"new"`
}

type xmlVersion struct {
	Node     *xmlNode     `xml:"node"`
	Way      *xmlWay      `xml:"way"`
	Relation *xmlRelation `xml:"relation"`
}

func (v *xmlVersion) empty() bool {
	return v.Node == nil && v.Way == nil && v.Relation == nil
}

// visible returns the raw visible attribute of the element.
func (v *xmlVersion) visible() string {
	switch {
	case v.Node != nil:
		return v.Node.Visible
	case v.Way != nil:
		return v.Way.Visible
	case v.Relation != nil:
		return v.Relation.Visible
	}
	return ""
}

type xmlAttrs struct {
	ID        int64  `xml:"id,attr,omitempty"`
	Visible   string `xml:"visible,attr,omitempty"`
	Version   int32  `xml:"version,attr,omitempty"`
	Timestamp string `xml:"timestamp,attr,omitempty"`
	Changeset int64  `xml:"changeset,attr,omitempty"`
	UID       int32  `xml:"uid,attr,omitempty"`
	User      string `xml:"user,attr,omitempty"`
}

type xmlTag struct {
	Key   string `xml:"k,attr"`
	Value string `xml:"v,attr"`
}

type xmlBounds struct {
	MinLat float64 `xml:"minlat,attr"`
	MinLon float64 `xml:"minlon,attr"`
	MaxLat float64 `xml:"maxlat,attr"`
	MaxLon float64 `xml:"maxlon,attr"`
}

type xmlNode struct {
	xmlAttrs
	Lat  string   `xml:"lat,attr,omitempty"`
	Lon  string   `xml:"lon,attr,omitempty"`
	Tags []xmlTag `xml:"tag"`
}

type xmlNd struct {
	Ref int64  `xml:"ref,attr,omitempty"`
	Lat string `xml:"lat,attr,omitempty"`
	Lon string `xml:"lon,attr,omitempty"`
}

type xmlWay struct {
	xmlAttrs
	Bounds *xmlBounds `xml:"bounds"`
	Nds    []xmlNd    `xml:"nd"`
	Tags   []xmlTag   `xml:"tag"`
}

type xmlMember struct {
	Type string  `xml:"type,attr"`
	Ref  int64   `xml:"ref,attr"`
	Role string  `xml:"role,attr"`
	Lat  string  `xml:"lat,attr,omitempty"`
	Lon  string  `xml:"lon,attr,omitempty"`
	Nds  []xmlNd `xml:"nd"`
}

type xmlRelation struct {
	xmlAttrs
	Bounds  *xmlBounds  `xml:"bounds"`
	Members []xmlMember `xml:"member"`
	Tags    []xmlTag    `xml:"tag"`
}

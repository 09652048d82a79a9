package adiff

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmada/osmada/element"
)

func decodeSample(t *testing.T) []*element.Action {
	t.Helper()
	f, err := os.Open("testdata/sample.osm")
	require.NoError(t, err)
	defer f.Close()

	actions, err := Decode(f)
	require.NoError(t, err)
	return actions
}

func TestDecode(t *testing.T) {
	actions := decodeSample(t)
	require.Len(t, actions, 5)

	types := []element.ActionType{}
	for _, a := range actions {
		types = append(types, a.Type)
	}
	assert.Equal(t, []element.ActionType{
		element.Create, element.Modify, element.Delete, element.Remove, element.Modify,
	}, types)

	// create
	bakery, ok := actions[0].New.(*element.Node)
	require.True(t, ok)
	assert.Nil(t, actions[0].Old)
	assert.Equal(t, int64(5226148901), bakery.ID)
	assert.True(t, bakery.Visible)
	assert.Equal(t, &element.Coord{Lat: 48.8456783, Long: 2.3713011}, bakery.Coord)
	assert.Equal(t, element.Tags{{Key: "shop", Value: "bakery"}, {Key: "name", Value: "Chez Paul"}}, bakery.Tags)
	assert.Equal(t, "johnparis", bakery.Metadata.UserName)
	assert.Equal(t, int32(2553297), bakery.Metadata.UserID)
	assert.Equal(t, int64(53999449), bakery.Metadata.Changeset)
	assert.Equal(t, int32(1), bakery.Metadata.Version)
	assert.Equal(t, time.Date(2017, 11, 22, 11, 53, 29, 0, time.UTC), bakery.Metadata.Timestamp.UTC())

	// modified way
	oldWay := actions[1].Old.(*element.Way)
	newWay := actions[1].New.(*element.Way)
	require.Len(t, newWay.Nodes, 2)
	assert.Equal(t, int64(575464391), newWay.Nodes[0].ID)
	assert.Equal(t, int64(575464392), newWay.Nodes[1].ID)
	assert.Equal(t, 48.8453, newWay.Nodes[1].Coord.Lat)
	assert.Equal(t, &element.Bounds{MinLat: 48.8451, MinLon: 2.3702, MaxLat: 48.8453, MaxLon: 2.3705}, oldWay.Bounds)
	assert.Len(t, oldWay.Tags, 1)
	assert.Len(t, newWay.Tags, 2)

	// delete
	deleted := actions[2].New.(*element.Node)
	assert.False(t, deleted.Visible)
	assert.Nil(t, deleted.Coord)

	// remove
	assert.True(t, actions[3].New.Base().Visible)
	assert.Equal(t, int64(1003), actions[3].Old.Base().ID)

	// relation members
	oldRel := actions[4].Old.(*element.Relation)
	require.Len(t, oldRel.Members, 2)
	assert.Equal(t, "platform", oldRel.Members[0].Role)
	platform, ok := oldRel.Members[0].Object.(*element.Node)
	require.True(t, ok)
	assert.Equal(t, int64(1003), platform.ID)
	assert.Equal(t, 48.8402, platform.Coord.Lat)
	way, ok := oldRel.Members[1].Object.(*element.Way)
	require.True(t, ok)
	assert.Equal(t, int64(61326345), way.ID)
	assert.Len(t, way.Nodes, 2)
	assert.Equal(t, "", oldRel.Members[1].Role)
	assert.True(t, oldRel.Contains(&element.Node{Element: element.Element{ID: 1003}}))
	assert.False(t, actions[4].New.(*element.Relation).Contains(platform))
}

func TestDecodeCreateWrappedInNew(t *testing.T) {
	doc := `<osm><action type="create"><new><node id="1" lat="1" lon="2"/></new></action></osm>`
	actions, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, int64(1), actions[0].New.Base().ID)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		doc    string
		errMsg string
	}{
		{``, "empty document"},
		{`<osmChange></osmChange>`, "root element is <osmChange>"},
		{`<osm><action type="rename"><node id="1"/></action></osm>`, "unknown action type"},
		{`<osm><action type="modify"><new><node id="1"/></new></action></osm>`, "<old>"},
		{`<osm><action type="delete"><old><node id="1"/></old></action></osm>`, "<new>"},
		{`<osm><action type="create"></action></osm>`, "invalid action"},
		{`<osm><action type="create"><node id="1" lat="x" lon="2"/></action></osm>`, "invalid lat"},
		{`<osm><action type="create"><node id="1" timestamp="yesterday"/></action></osm>`, "invalid timestamp"},
		{`<osm><action type="create"><relation id="1"><member type="area" ref="2"/></relation></action></osm>`, "unknown member type"},
		{`<osm><action type="create"><node id="1"></action></osm>`, "decoding action"},
	}
	for _, test := range tests {
		t.Run(test.errMsg, func(t *testing.T) {
			_, err := Decode(strings.NewReader(test.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errMsg)

			var formatErr *FormatError
			assert.True(t, errors.As(err, &formatErr))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	actions := decodeSample(t)

	buf := bytes.Buffer{}
	require.NoError(t, Encode(&buf, actions))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `generator="osmada"`)
	assert.Equal(t, 5, strings.Count(out, "<action "))
	// create is written without wrapper
	assert.Equal(t, 4, strings.Count(out, "<old>"))
	// remove is written back as delete with a visible new element
	assert.Equal(t, 2, strings.Count(out, `<action type="delete">`))
	assert.Contains(t, out, `visible="true"`)
	assert.Contains(t, out, `lat="48.8456783" lon="2.3713011"`)

	again, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(actions))
	for i := range actions {
		assert.Equal(t, actions[i], again[i])
	}
}

func TestDecodeDeleteWithoutVisible(t *testing.T) {
	doc := `<osm><action type="delete">
<old><node id="7" lat="1" lon="2" version="1"/></old>
<new><node id="7" version="2" user="jm"/></new>
</action></osm>`
	actions, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, element.Delete, actions[0].Type)
	assert.False(t, actions[0].New.Base().Visible)
	assert.Equal(t, "jm", actions[0].New.Base().Metadata.UserName)
}

func TestEncodeInvalidAction(t *testing.T) {
	err := Encode(&bytes.Buffer{}, []*element.Action{{Type: element.Modify}})
	assert.Error(t, err)

	// a remove without new element can not be told apart from a delete
	err = Encode(&bytes.Buffer{}, []*element.Action{{Type: element.Remove, Old: &element.Node{}}})
	assert.Error(t, err)

	err = Encode(&bytes.Buffer{}, []*element.Action{{Type: element.Create, New: &element.Element{ID: 1}}})
	require.Error(t, err)
	assert.Equal(t, element.ErrUnresolvedType, errors.Cause(err))
}

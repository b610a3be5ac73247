package entity

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

const (
	testSensorName  = "MS05.01.01.01.14.FF.00.01;05.01.01.01.14.FF.00.00"
	testTurnoutName = "MT05.01.01.01.14.FF.00.03;05.01.01.01.14.FF.00.02"
)

func mustSensor(t *testing.T, system, user string) *Sensor {
	t.Helper()
	s, err := NewSensor(system, user)
	require.NoError(t, err)
	return s
}

func mustTurnout(t *testing.T, system, user, sensor string) *Turnout {
	t.Helper()
	tu, err := NewTurnout(system, user, sensor)
	require.NoError(t, err)
	return tu
}

func mustConditional(t *testing.T, sensor string) *LogixConditional {
	t.Helper()
	c, err := NewLogixConditional(sensor)
	require.NoError(t, err)
	return c
}

func allocatorFor(t *testing.T, e Entity, collection *etree.Element) *idalloc.Allocator {
	t.Helper()
	d := e.Kind().Descriptor()
	if d.Derived {
		return idalloc.Fixed()
	}
	ids, err := idalloc.New(collection, e.Kind().Scheme(idalloc.DefaultFloor), nil)
	require.NoError(t, err)
	return ids
}

func serialize(t *testing.T, e *etree.Element) string {
	t.Helper()
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	s, err := doc.WriteToString()
	require.NoError(t, err)
	return s
}

func TestReconcile_Idempotent(t *testing.T) {
	withCoord := mustConditional(t, "perm.ICE.loc.logic.A1")
	withCoord.SetCoordinate("3H layout", layout.Point{X: 120.7, Y: 44.2})

	tests := []struct {
		name   string
		entity Entity
	}{
		{"sensor", mustSensor(t, testSensorName, "logic.A1.body.route_set_ab")},
		{"turnout", mustTurnout(t, testTurnoutName, "W3", "logic.W3.turnout_state")},
		{"system block", NewSystemBlock("A1.body", "logic.A1.body.route_set_ab")},
		{"layout block", NewLayoutBlock("A1", "logic.A1.body_det.simulated_occ", ColorDetector)},
		{"memory", LocationMemory("A1")},
		{"signal head", NewSignalHead("Sig.A1")},
		{"conditional", withCoord},
		{"conditional without coordinate", mustConditional(t, "perm.ICE.loc.logic2.B2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collection := etree.NewElement(tt.entity.Kind().Descriptor().Collection)
			node := document.AppendNew(collection, tt.entity.CollectionTag())

			require.NoError(t, tt.entity.Reconcile(node, allocatorFor(t, tt.entity, collection), nil))
			first := serialize(t, collection)

			ids := allocatorFor(t, tt.entity, collection)
			require.NoError(t, tt.entity.Reconcile(node, ids, nil))
			second := serialize(t, collection)

			assert.Equal(t, first, second)
			assert.Empty(t, ids.Issued(), "second pass must not allocate")

			key, ok := tt.entity.ExtractKey(node)
			assert.True(t, ok)
			assert.Equal(t, tt.entity.Key(), key)
		})
	}
}

func TestReconcile_AllocatesOnlyWhenMissing(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<blocks><block systemName="IB7" userName="B2"/><block userName="A1"/></blocks>`))
	collection := doc.Root()

	ids, err := idalloc.New(collection, KindSystemBlock.Scheme(2), nil)
	require.NoError(t, err)

	existing := NewSystemBlock("B2", "s1")
	require.NoError(t, existing.Reconcile(collection.ChildElements()[0], ids, nil))
	assert.Equal(t, "IB7", existing.SystemName)

	fresh := NewSystemBlock("A1", "s2")
	require.NoError(t, fresh.Reconcile(collection.ChildElements()[1], ids, nil))
	assert.Equal(t, "IB8", fresh.SystemName)
	assert.Equal(t, []string{"IB8"}, ids.Issued())
}

func TestReconcile_OverwritesConflictingUserName(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<signalheads><signalhead systemName="LH4" userName="Sig.A1"><systemName>LH4</systemName><userName>old name</userName></signalhead></signalheads>`))
	node := doc.Root().SelectElement("signalhead")

	log := logging.NewCaptureLogger()
	require.NoError(t, NewSignalHead("Sig.A1").Reconcile(node, idalloc.Fixed(), log))

	assert.Equal(t, "Sig.A1", node.SelectElement("userName").Text())
	assert.Len(t, log.Matching(logging.WarnLevel, "overwriting user name"), 1)

	log2 := logging.NewCaptureLogger()
	require.NoError(t, NewSignalHead("Sig.A1").Reconcile(node, idalloc.Fixed(), log2))
	assert.Empty(t, log2.Matching(logging.WarnLevel, "overwriting user name"))
}

func TestSensor_Fields(t *testing.T) {
	s := mustSensor(t, testSensorName, "logic.A1.body.route_set_ab")
	assert.Equal(t, "0x0501010114FF0001", s.EventOn)
	assert.Equal(t, "0x0501010114FF0000", s.EventOff)

	node := etree.NewElement("sensor")
	require.NoError(t, s.Reconcile(node, nil, nil))
	assert.Equal(t, testSensorName, node.SelectAttrValue("systemName", ""))
	assert.Equal(t, "false", node.SelectAttrValue("inverted", ""))
	assert.Equal(t, "logic.A1.body.route_set_ab", node.SelectElement("userName").Text())
}

func TestNewSensor_BadName(t *testing.T) {
	for _, name := range []string{"IS12", "MS05.01;05.02", "MSzz.01.01.01.14.FF.00.01;05.01.01.01.14.FF.00.00"} {
		_, err := NewSensor(name, "x")
		if err == nil {
			t.Errorf("NewSensor(%q) expected error", name)
			continue
		}
		if !faults.IsFormat(err) {
			t.Errorf("NewSensor(%q) error = %v, want format fault", name, err)
		}
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name the system name", err)
		}
	}
}

func TestEventID(t *testing.T) {
	got, err := EventID("05.01.01.01.14.ff.00.01")
	require.NoError(t, err)
	assert.Equal(t, "0x0501010114ff0001", got)

	_, err = EventID("05.01.01")
	assert.True(t, faults.IsFormat(err))
}

func TestTurnoutSystemName(t *testing.T) {
	assert.Equal(t, "MT05.01;05.00", TurnoutSystemName("MS05.01;05.00"))
	assert.Equal(t, "MTx", TurnoutSystemName("x"))
}

func TestTurnout_AlwaysWritesInverted(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<turnout systemName="`+testTurnoutName+`" userName="W3" inverted="true" automate="Default"/>`))
	node := doc.Root()

	tu := mustTurnout(t, testTurnoutName, "W3", "logic.W3.turnout_state")
	require.NoError(t, tu.Reconcile(node, idalloc.Fixed(), nil))

	assert.Equal(t, "false", node.SelectAttrValue("inverted", ""))
	assert.Equal(t, "Default", node.SelectAttrValue("automate", ""))
	assert.Equal(t, "ONESENSOR", node.SelectAttrValue("feedback", ""))
	assert.Equal(t, "logic.W3.turnout_state", node.SelectAttrValue("sensor1", ""))
	assert.Equal(t, []Ref{{Kind: KindSensor, Key: "logic.W3.turnout_state"}}, tu.References())
}

func TestLayoutBlock_DefaultColor(t *testing.T) {
	assert.Equal(t, ColorDetector, NewLayoutBlock("A1", "s", "").Color)
	assert.Equal(t, ColorBody, NewLayoutBlock("A1.body", "s", ColorBody).Color)
}

func TestNewLogixConditional(t *testing.T) {
	tests := []struct {
		sensor   string
		train    string
		location string
	}{
		{"perm.ICE.loc.logic.A1", "ICE", "A1"},
		{"perm.ICE.loc.logic2.A1", "ICE", "A1"},
		{"perm.BR.152.loc.logic.B.2", "BR.152", "B.2"},
		{"perm.a.loc.logic.b.loc.logic.c", "a.loc.logic.b", "c"},
	}
	for _, tt := range tests {
		c, err := NewLogixConditional(tt.sensor)
		if err != nil {
			t.Errorf("NewLogixConditional(%q) error = %v", tt.sensor, err)
			continue
		}
		if c.Train != tt.train || c.Location != tt.location {
			t.Errorf("NewLogixConditional(%q) = (%q, %q), want (%q, %q)", tt.sensor, c.Train, c.Location, tt.train, tt.location)
		}
		if c.Key() != tt.train+"."+tt.location {
			t.Errorf("Key() = %q", c.Key())
		}
	}

	_, err := NewLogixConditional("perm.ICE.locx.logic")
	assert.True(t, faults.IsFormat(err))
}

func TestLogixConditional_Content(t *testing.T) {
	collection := etree.NewElement("conditionals")
	node := document.AppendNew(collection, "conditional")
	node.CreateAttr("stale", "yes")
	node.CreateElement("conditionalAction")

	c := mustConditional(t, "perm.ICE.loc.logic.A1")
	c.SetCoordinate("3H layout", layout.Point{X: 100.9, Y: 50.5})
	ids, err := idalloc.New(collection, KindLogixConditional.Scheme(2), nil)
	require.NoError(t, err)
	require.NoError(t, c.Reconcile(node, ids, nil))

	assert.Equal(t, "IX:GEN:TRAINLOC:C2", c.SystemName())
	assert.Nil(t, node.SelectAttr("stale"))

	var keys []string
	for _, a := range node.Attr {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"antecedent", "logicType", "systemName", "triggerOnChange", "userName"}, keys)

	state := node.SelectElement("conditionalStateVariable")
	require.NotNil(t, state)
	assert.Equal(t, "perm.ICE.loc.logic.A1", state.SelectAttrValue("systemName", ""))

	actions := node.SelectElements("conditionalAction")
	require.Len(t, actions, 3)
	assert.Equal(t, "train.ICE", actions[0].SelectAttrValue("systemName", ""))
	assert.Equal(t, "A1", actions[0].SelectAttrValue("string", ""))
	assert.Equal(t, "loc.A1", actions[1].SelectAttrValue("systemName", ""))
	assert.Equal(t, "ICE", actions[1].SelectAttrValue("string", ""))
	assert.Equal(t, `PositionLocoMarker("3H layout", "ICE", 100, 50, HORIZONTAL)`, actions[2].SelectAttrValue("string", ""))
	assert.Equal(t, "30", actions[2].SelectAttrValue("type", ""))
}

func TestLogixConditional_MissingCoordinateWarns(t *testing.T) {
	node := etree.NewElement("conditional")
	node.CreateAttr("systemName", "IX:GEN:TRAINLOC:C9")
	log := logging.NewCaptureLogger()

	c := mustConditional(t, "perm.ICE.loc.logic.A1")
	require.NoError(t, c.Reconcile(node, idalloc.Fixed(), log))

	assert.Equal(t, "IX:GEN:TRAINLOC:C9", c.SystemName())
	assert.Len(t, node.SelectElements("conditionalAction"), 2)
	assert.Equal(t, 1, log.CountLevel(logging.WarnLevel))
}

func TestKindDescriptors(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Kinds() {
		d := k.Descriptor()
		if d.Collection == "" || d.Tag == "" {
			t.Errorf("%v: incomplete descriptor %+v", k, d)
		}
		if seen[d.Collection] {
			t.Errorf("collection %q used twice", d.Collection)
		}
		seen[d.Collection] = true
		if !d.Derived && d.Scheme.Prefix == "" {
			t.Errorf("%v allocates but has no prefix", k)
		}
	}
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, 5, KindMemory.Scheme(5).Floor)
}

package entity

import (
	"fmt"
	"regexp"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

var conditionalSensorPattern = regexp.MustCompile(`^perm\.(.+)\.loc\.logic2?\.(.+)$`)

// Conditional action types understood by JMRI.
const (
	actionSetMemory = "12"
	actionJython    = "30"
)

// LogixConditional fires when a train-at-location sensor goes active. It records the
// train in the location memory, the location in the train memory, and moves the train's
// marker on the panel.
type LogixConditional struct {
	userNameKeyed
	SensorName string
	Train      string
	Location   string
	Panel      string
	Coordinate *layout.Point

	systemName string
}

// NewLogixConditional decomposes a perm.<T>.loc.logic[2].<L> sensor name. A name that
// does not decompose is a format fault.
func NewLogixConditional(sensorName string) (*LogixConditional, error) {
	m := conditionalSensorPattern.FindStringSubmatch(sensorName)
	if m == nil {
		return nil, faults.New("derive").
			Kind(KindLogixConditional.String()).
			Key(sensorName).
			Context("cannot decompose").
			Cause(faults.ErrFormat).
			Err()
	}
	return &LogixConditional{
		userNameKeyed: userNameKeyed{UserName: m[1] + "." + m[2]},
		SensorName:    sensorName,
		Train:         m[1],
		Location:      m[2],
	}, nil
}

// SetCoordinate places the train marker at p on the named panel.
func (c *LogixConditional) SetCoordinate(panel string, p layout.Point) {
	c.Panel = panel
	c.Coordinate = &p
}

// SystemName returns the name resolved by the last Reconcile.
func (c *LogixConditional) SystemName() string { return c.systemName }

func (*LogixConditional) Kind() Kind            { return KindLogixConditional }
func (*LogixConditional) CollectionTag() string { return KindLogixConditional.Descriptor().Tag }

// References reports the trigger sensor and both memories written by the actions.
func (c *LogixConditional) References() []Ref {
	return []Ref{
		{Kind: KindSensor, Key: c.SensorName},
		{Kind: KindMemory, Key: TrainMemoryPrefix + c.Train},
		{Kind: KindMemory, Key: LocationMemoryPrefix + c.Location},
	}
}

// MarkerScript returns the jython call that moves the train marker.
func (c *LogixConditional) MarkerScript() (string, bool) {
	if c.Coordinate == nil {
		return "", false
	}
	x, y := c.Coordinate.Ints()
	return fmt.Sprintf("PositionLocoMarker(%q, %q, %d, %d, HORIZONTAL)", c.Panel, c.Train, x, y), true
}

// Reconcile rebuilds the conditional from scratch, keeping only its system name.
func (c *LogixConditional) Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	name, err := systemNameOf(node, ids, log)
	if err != nil {
		return err
	}
	c.systemName = name

	document.Clear(node)
	node.CreateAttr("antecedent", "R1")
	node.CreateAttr("logicType", "1")
	node.CreateAttr("systemName", name)
	node.CreateAttr("triggerOnChange", "no")
	node.CreateAttr("userName", c.UserName)

	document.AppendNew(node, "systemName").SetText(name)
	document.AppendNew(node, "userName").SetText(c.UserName)

	state := document.AppendNew(node, "conditionalStateVariable")
	for _, kv := range [][2]string{
		{"debugString", ""},
		{"negated", "no"},
		{"num1", "0"},
		{"num2", "0"},
		{"operator", "4"},
		{"systemName", c.SensorName},
		{"triggersCalc", "yes"},
		{"type", "1"},
	} {
		state.CreateAttr(kv[0], kv[1])
	}

	c.memoryAction(node, TrainMemoryPrefix+c.Train, c.Location)
	c.memoryAction(node, LocationMemoryPrefix+c.Location, c.Train)

	script, ok := c.MarkerScript()
	if !ok {
		log.Warn("no coordinate for location, marker action omitted",
			logging.Key(c.UserName),
			logging.String("location", c.Location))
		return nil
	}
	action := document.AppendNew(node, "conditionalAction")
	action.CreateAttr("data", "-1")
	action.CreateAttr("delay", "0")
	action.CreateAttr("option", "1")
	action.CreateAttr("string", script)
	action.CreateAttr("systemName", " ")
	action.CreateAttr("type", actionJython)
	return nil
}

func (c *LogixConditional) memoryAction(node *etree.Element, memory, value string) {
	action := document.AppendNew(node, "conditionalAction")
	action.CreateAttr("data", "-1")
	action.CreateAttr("option", "1")
	action.CreateAttr("string", value)
	action.CreateAttr("systemName", memory)
	action.CreateAttr("type", actionSetMemory)
}

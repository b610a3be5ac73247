// Package derive turns the flat sensor namespace of the variable file into the blocks,
// turnouts, signal heads, memories and conditionals the panel needs.
package derive

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/layout"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Derived holds every entity derived from one sensor list, in derivation order.
type Derived struct {
	Sensors      []*entity.Sensor
	Trains       []string
	Locations    []string
	Blocks       []*entity.SystemBlock
	LayoutBlocks []*entity.LayoutBlock
	Turnouts     []*entity.Turnout
	SignalHeads  []*entity.SignalHead
	Memories     []*entity.Memory
	Conditionals []*entity.LogixConditional

	trainSeen    map[string]struct{}
	locationSeen map[string]struct{}
}

func (d *Derived) addTrain(name string) {
	if _, ok := d.trainSeen[name]; ok {
		return
	}
	d.trainSeen[name] = struct{}{}
	d.Trains = append(d.Trains, name)
}

func (d *Derived) addLocation(name string) {
	if _, ok := d.locationSeen[name]; ok {
		return
	}
	d.locationSeen[name] = struct{}{}
	d.Locations = append(d.Locations, name)
}

// Entities returns the derived entities of kind k as a desired list for the reconciler.
func (d *Derived) Entities(k entity.Kind) []entity.Entity {
	switch k {
	case entity.KindSensor:
		return toEntities(d.Sensors)
	case entity.KindTurnout:
		return toEntities(d.Turnouts)
	case entity.KindSystemBlock:
		return toEntities(d.Blocks)
	case entity.KindLayoutBlock:
		return toEntities(d.LayoutBlocks)
	case entity.KindMemory:
		return toEntities(d.Memories)
	case entity.KindSignalHead:
		return toEntities(d.SignalHeads)
	case entity.KindLogixConditional:
		return toEntities(d.Conditionals)
	}
	return nil
}

func toEntities[T entity.Entity](in []T) []entity.Entity {
	out := make([]entity.Entity, len(in))
	for i, e := range in {
		out[i] = e
	}
	return out
}

// Count returns the number of derived entities of kind k.
func (d *Derived) Count(k entity.Kind) int {
	return len(d.Entities(k))
}

// PlaceConditionals attaches location coordinates to the conditionals. It returns the
// conditionals left without one.
func (d *Derived) PlaceConditionals(panel string, coords map[string]layout.Point) []*entity.LogixConditional {
	var missing []*entity.LogixConditional
	for _, c := range d.Conditionals {
		p, ok := coords[c.Location]
		if !ok {
			missing = append(missing, c)
			continue
		}
		c.SetCoordinate(panel, p)
	}
	return missing
}

// ConditionalLocations returns the distinct locations named by the conditionals, in
// first-seen order.
func (d *Derived) ConditionalLocations() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range d.Conditionals {
		if _, ok := seen[c.Location]; ok {
			continue
		}
		seen[c.Location] = struct{}{}
		out = append(out, c.Location)
	}
	return out
}

// Deriver applies the naming rules.
type Deriver struct {
	log         logging.Logger
	byUserName  map[string]*entity.Sensor
	ruleMatches map[string]int
}

// New returns a Deriver logging to log.
func New(log logging.Logger) *Deriver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Deriver{log: log.With(logging.Component("derive"))}
}

// ParseSensors reads the sensors/sensor entries under root. Sensors without a user name
// are skipped with a warning; a malformed system name is a format fault.
func ParseSensors(root *etree.Element, log logging.Logger) ([]*entity.Sensor, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	var out []*entity.Sensor
	for _, e := range root.FindElements("sensors/sensor") {
		system, ok := document.Attr(e, "systemName")
		if !ok {
			return nil, faults.New("parse-sensors").
				Node(e.Tag).
				Key(e.SelectAttrValue("userName", "")).
				Field("systemName").
				Context("missing").
				Cause(faults.ErrFormat).
				Err()
		}
		user, ok := document.Attr(e, "userName")
		if !ok {
			log.Warn("sensor without user name", logging.SystemName(system))
			continue
		}
		s, err := entity.NewSensor(system, user)
		if err != nil {
			return nil, faults.New("parse-sensors").Kind(entity.KindSensor.String()).Key(user).Cause(err).Err()
		}
		out = append(out, s)
	}
	return out, nil
}

// Derive applies every rule to every sensor.
func (d *Deriver) Derive(sensors []*entity.Sensor) (*Derived, error) {
	out := &Derived{
		Sensors:      sensors,
		trainSeen:    make(map[string]struct{}),
		locationSeen: make(map[string]struct{}),
	}
	d.byUserName = make(map[string]*entity.Sensor, len(sensors))
	d.ruleMatches = make(map[string]int, len(rules))
	for _, s := range sensors {
		d.byUserName[s.UserName] = s
		d.byUserName[s.SystemName] = s
	}

	for _, s := range sensors {
		for _, r := range rules {
			m := r.pattern.FindStringSubmatch(s.UserName)
			if m == nil {
				continue
			}
			if err := r.apply(d, s, m, out); err != nil {
				return nil, faults.New("derive").Kind(r.name).Key(s.UserName).Cause(err).Err()
			}
			d.ruleMatches[r.name]++
		}
	}

	for _, loc := range out.Locations {
		out.SignalHeads = append(out.SignalHeads,
			entity.NewSignalHead(entity.ForwardSignalPrefix+loc),
			entity.NewSignalHead(entity.ReverseSignalPrefix+loc))
		out.Memories = append(out.Memories, entity.LocationMemory(loc))
	}
	for _, train := range out.Trains {
		out.Memories = append(out.Memories, entity.TrainMemory(train))
	}

	d.log.Info("derived entities",
		logging.Int("sensors", len(out.Sensors)),
		logging.Int("trains", len(out.Trains)),
		logging.Int("locations", len(out.Locations)),
		logging.Int("blocks", len(out.Blocks)),
		logging.Int("turnouts", len(out.Turnouts)),
		logging.Int("signalheads", len(out.SignalHeads)),
		logging.Int("memories", len(out.Memories)),
		logging.Int("conditionals", len(out.Conditionals)))
	return out, nil
}

// RuleMatches returns how many sensors each rule matched during the last Derive.
func (d *Deriver) RuleMatches() map[string]int {
	out := make(map[string]int, len(d.ruleMatches))
	for k, v := range d.ruleMatches {
		out[k] = v
	}
	return out
}

func (d *Deriver) magnetCommand(turnout string) (*entity.Sensor, bool) {
	s, ok := d.byUserName[fmt.Sprintf(magnetCommandTemplate, turnout)]
	return s, ok
}

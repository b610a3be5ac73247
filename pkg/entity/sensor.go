package entity

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

var (
	sensorNamePattern  = regexp.MustCompile(`^MS([^;]*);([^;]*)`)
	turnoutNamePattern = regexp.MustCompile(`^MT([^;]*);([^;]*)`)
	eventPattern       = regexp.MustCompile(`^` + strings.Repeat(`([0-9a-fA-F]{2})\.`, 7) + `([0-9a-fA-F]{2})`)
)

// EventID converts a dotted-hex event such as 05.01.01.01.14.FF.00.01 to 0x0501010114FF0001.
func EventID(dotted string) (string, error) {
	m := eventPattern.FindStringSubmatch(dotted)
	if m == nil {
		return "", faults.New("parse-event").
			Key(dotted).
			Context("expected 11.22.33.44.55.66.AA.BB").
			Cause(faults.ErrFormat).
			Err()
	}
	return "0x" + strings.Join(m[1:], ""), nil
}

// parseEventPair splits an "<prefix><on>;<off>" system name into its two event ids.
func parseEventPair(kind Kind, pattern *regexp.Regexp, systemName string) (on, off string, err error) {
	m := pattern.FindStringSubmatch(systemName)
	if m == nil {
		return "", "", faults.New("parse-system-name").
			Kind(kind.String()).
			Key(systemName).
			Context("not an on;off event pair").
			Cause(faults.ErrFormat).
			Err()
	}
	if on, err = EventID(m[1]); err != nil {
		return "", "", faults.New("parse-system-name").Kind(kind.String()).Key(systemName).Cause(err).Err()
	}
	if off, err = EventID(m[2]); err != nil {
		return "", "", faults.New("parse-system-name").Kind(kind.String()).Key(systemName).Cause(err).Err()
	}
	return on, off, nil
}

// Sensor is a layout-bus sensor. Its system name encodes the on and off event ids.
type Sensor struct {
	userNameKeyed
	SystemName string
	EventOn    string
	EventOff   string
}

// NewSensor parses systemName and returns the sensor. A malformed name is a format fault.
func NewSensor(systemName, userName string) (*Sensor, error) {
	on, off, err := parseEventPair(KindSensor, sensorNamePattern, systemName)
	if err != nil {
		return nil, err
	}
	return &Sensor{
		userNameKeyed: userNameKeyed{UserName: userName},
		SystemName:    systemName,
		EventOn:       on,
		EventOff:      off,
	}, nil
}

func (*Sensor) Kind() Kind            { return KindSensor }
func (*Sensor) CollectionTag() string { return KindSensor.Descriptor().Tag }

// Reconcile writes the sensor. The system name always comes from the variable file.
func (s *Sensor) Reconcile(node *etree.Element, _ *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	if prev, ok := document.Field(node, "systemName"); ok && prev != s.SystemName {
		log.Info("sensor system name changed", logging.Key(s.UserName), logging.String("previous", prev), logging.SystemName(s.SystemName))
	}
	node.CreateAttr("systemName", s.SystemName)
	node.CreateAttr("inverted", "false")
	node.CreateAttr("userName", s.UserName)
	document.SetChildText(node, "systemName", s.SystemName)
	writeUserNameChild(node, s.UserName, log)
	return nil
}

// Turnout is driven by a layout-bus sensor event pair. Signal aspects are modelled as
// turnouts named Sig.<location> and Sig.R<location>.
type Turnout struct {
	userNameKeyed
	SystemName string
	SensorName string
	EventOn    string
	EventOff   string
}

// NewTurnout parses systemName (MT<on>;<off>) and returns the turnout.
func NewTurnout(systemName, userName, sensorName string) (*Turnout, error) {
	on, off, err := parseEventPair(KindTurnout, turnoutNamePattern, systemName)
	if err != nil {
		return nil, err
	}
	return &Turnout{
		userNameKeyed: userNameKeyed{UserName: userName},
		SystemName:    systemName,
		SensorName:    sensorName,
		EventOn:       on,
		EventOff:      off,
	}, nil
}

// TurnoutSystemName rewrites a sensor system name into the turnout namespace.
func TurnoutSystemName(sensorSystemName string) string {
	if len(sensorSystemName) < 2 {
		return "MT" + sensorSystemName
	}
	return "MT" + sensorSystemName[2:]
}

func (*Turnout) Kind() Kind            { return KindTurnout }
func (*Turnout) CollectionTag() string { return KindTurnout.Descriptor().Tag }

// References reports the feedback sensor.
func (t *Turnout) References() []Ref {
	return []Ref{{Kind: KindSensor, Key: t.SensorName}}
}

// Reconcile writes the turnout with one-sensor feedback.
func (t *Turnout) Reconcile(node *etree.Element, _ *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	node.CreateAttr("systemName", t.SystemName)
	node.CreateAttr("userName", t.UserName)
	node.CreateAttr("inverted", "false")
	node.CreateAttr("feedback", "ONESENSOR")
	node.CreateAttr("sensor1", t.SensorName)
	document.SetDefault(node, "automate", "Off")
	document.SetChildText(node, "systemName", t.SystemName)
	writeUserNameChild(node, t.UserName, log)
	return nil
}

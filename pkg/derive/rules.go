package derive

import (
	"regexp"
	"strings"

	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Name patterns over sensor user names.
var (
	trainPattern         = regexp.MustCompile(`^perm\.(.+)\.do_not_move$`)
	locationPattern      = regexp.MustCompile(`^logic\.(.+)\.signal\.route_set_ab$`)
	reverseSignalPattern = regexp.MustCompile(`^logic\.(.+)\.rsignal\.route_set_ab$`)
	bodyBlockPattern     = regexp.MustCompile(`^logic\.(.+)\.body\.route_set_ab$`)
	detectorBlockPattern = regexp.MustCompile(`^logic\.(.+)\.body_det\.simulated_occ$`)
	turnoutStatePattern  = regexp.MustCompile(`^logic\.(.+)\.turnout_state$`)
	conditionalQualifier = regexp.MustCompile(`^perm\..*loc\.logic`)
)

const (
	fakeTurnoutPrefix     = "fake_turnout"
	magnetCommandTemplate = "logic.magnets.%s.command"
	detectorBlockPrefix   = "Det"
)

// rule turns one matching sensor into derived entities.
type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(d *Deriver, s *entity.Sensor, m []string, out *Derived) error
}

var rules = []rule{
	{name: "trains", pattern: trainPattern, apply: addTrain},
	{name: "locations", pattern: locationPattern, apply: addLocation},
	{name: "turnouts", pattern: turnoutStatePattern, apply: addTurnout},
	{name: "signal turnouts", pattern: locationPattern, apply: addSignalTurnout(entity.ForwardSignalPrefix)},
	{name: "reverse signal turnouts", pattern: reverseSignalPattern, apply: addSignalTurnout(entity.ReverseSignalPrefix)},
	{name: "body blocks", pattern: bodyBlockPattern, apply: addBodyBlock},
	{name: "detector blocks", pattern: detectorBlockPattern, apply: addDetectorBlock},
	{name: "conditionals", pattern: conditionalQualifier, apply: addConditional},
}

func addTrain(_ *Deriver, _ *entity.Sensor, m []string, out *Derived) error {
	out.addTrain(m[1])
	return nil
}

func addLocation(_ *Deriver, _ *entity.Sensor, m []string, out *Derived) error {
	out.addLocation(m[1])
	return nil
}

func addTurnout(d *Deriver, s *entity.Sensor, m []string, out *Derived) error {
	name := m[1]
	if strings.HasPrefix(name, fakeTurnoutPrefix) {
		d.log.Debug("skipping placeholder turnout", logging.Key(name))
		return nil
	}
	system := s.SystemName
	if magnet, ok := d.magnetCommand(name); ok {
		system = magnet.SystemName
	}
	t, err := entity.NewTurnout(entity.TurnoutSystemName(system), name, s.UserName)
	if err != nil {
		return err
	}
	out.Turnouts = append(out.Turnouts, t)
	return nil
}

func addSignalTurnout(prefix string) func(*Deriver, *entity.Sensor, []string, *Derived) error {
	return func(_ *Deriver, s *entity.Sensor, m []string, out *Derived) error {
		t, err := entity.NewTurnout(entity.TurnoutSystemName(s.SystemName), prefix+m[1], s.UserName)
		if err != nil {
			return err
		}
		out.Turnouts = append(out.Turnouts, t)
		return nil
	}
}

func addBodyBlock(_ *Deriver, s *entity.Sensor, m []string, out *Derived) error {
	name := m[1] + ".body"
	out.Blocks = append(out.Blocks, entity.NewSystemBlock(name, s.UserName))
	out.LayoutBlocks = append(out.LayoutBlocks, entity.NewLayoutBlock(name, s.UserName, entity.ColorBody))
	return nil
}

func addDetectorBlock(_ *Deriver, s *entity.Sensor, m []string, out *Derived) error {
	name := DetectorBlockName(m[1])
	out.Blocks = append(out.Blocks, entity.NewSystemBlock(name, s.UserName))
	out.LayoutBlocks = append(out.LayoutBlocks, entity.NewLayoutBlock(name, s.UserName, entity.ColorDetector))
	return nil
}

func addConditional(_ *Deriver, s *entity.Sensor, _ []string, out *Derived) error {
	c, err := entity.NewLogixConditional(s.UserName)
	if err != nil {
		return err
	}
	out.Conditionals = append(out.Conditionals, c)
	return nil
}

// DetectorBlockName returns the block name for a detector. Detectors whose name starts
// with a digit carry no signal and get the Det prefix.
func DetectorBlockName(name string) string {
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		return detectorBlockPrefix + name
	}
	return name
}

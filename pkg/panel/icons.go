// Package panel writes the generated level-9 overlay of a LayoutEditor panel: the
// location table and the signal-head icons.
package panel

import (
	"strconv"

	"github.com/beevik/etree"
)

// GeneratedLevel is the panel level of every element this package writes.
const GeneratedLevel = "9"

// Overlay element tags.
const (
	TagSensorIcon     = "sensoricon"
	TagMemoryIcon     = "memoryicon"
	TagLabel          = "positionablelabel"
	TagLocoIcon       = "locoicon"
	TagSignalHeadIcon = "signalheadicon"
)

// OverlayTags lists every tag the location table and signal placement write.
var OverlayTags = []string{TagSensorIcon, TagLabel, TagLocoIcon, TagMemoryIcon, TagSignalHeadIcon}

const (
	configXML        = "jmri.jmrit.display.configurexml."
	trackIconDir     = "program:resources/icons/smallschematics/tracksegments/"
	searchlightDir   = "program:resources/icons/smallschematics/searchlights/"
	locoMarkerURL    = "program:resources/icons/markers/loco-white.gif"
	memoryDefaultURL = "program:resources/icons/misc/X-red.gif"
)

type attr struct{ key, value string }

func newElement(tag string, attrs ...attr) *etree.Element {
	e := etree.NewElement(tag)
	for _, a := range attrs {
		e.CreateAttr(a.key, a.value)
	}
	return e
}

func itoa(n int) string { return strconv.Itoa(n) }

// iconState appends <tag url=... degrees="0" scale="1.0"><rotation>r</rotation></tag>.
func iconState(parent *etree.Element, tag, url string, rotation int) {
	s := parent.CreateElement(tag)
	s.CreateAttr("url", url)
	s.CreateAttr("degrees", "0")
	s.CreateAttr("scale", "1.0")
	s.CreateElement("rotation").SetText(itoa(rotation))
}

// SensorIcon returns a track-circuit style sensor indicator.
func SensorIcon(x, y int, sensor string) *etree.Element {
	e := newElement(TagSensorIcon,
		attr{"sensor", sensor},
		attr{"x", itoa(x)},
		attr{"y", itoa(y)},
		attr{"level", GeneratedLevel},
		attr{"forcecontroloff", "false"},
		attr{"hidden", "no"},
		attr{"positionable", "true"},
		attr{"showtooltip", "true"},
		attr{"editable", "true"},
		attr{"momentary", "false"},
		attr{"icon", "yes"},
		attr{"class", configXML + "SensorIconXml"},
	)
	e.CreateElement("tooltip").SetText(sensor)
	iconState(e, "active", trackIconDir+"circuit-occupied.gif", 0)
	iconState(e, "inactive", trackIconDir+"circuit-empty.gif", 0)
	iconState(e, "unknown", trackIconDir+"circuit-error.gif", 0)
	iconState(e, "inconsistent", trackIconDir+"circuit-error.gif", 0)
	e.CreateElement("iconmaps")
	return e
}

// MemoryIcon returns a fixed-width memory value display.
func MemoryIcon(x, y int, memory string) *etree.Element {
	e := newElement(TagMemoryIcon,
		attr{"blueBack", "255"},
		attr{"blueBorder", "0"},
		attr{"borderSize", "1"},
		attr{"class", configXML + "MemoryIconXml"},
		attr{"defaulticon", memoryDefaultURL},
		attr{"editable", "false"},
		attr{"fixedWidth", "80"},
		attr{"forcecontroloff", "false"},
		attr{"greenBack", "255"},
		attr{"greenBorder", "0"},
		attr{"hidden", "no"},
		attr{"justification", "left"},
		attr{"level", GeneratedLevel},
		attr{"memory", memory},
		attr{"positionable", "true"},
		attr{"redBack", "255"},
		attr{"redBorder", "0"},
		attr{"selectable", "no"},
		attr{"showtooltip", "false"},
		attr{"size", "12"},
		attr{"style", "0"},
		attr{"x", itoa(x)},
		attr{"y", itoa(y)},
	)
	e.CreateElement("toolTip").SetText(memory)
	return e
}

// TextLabel returns a bold, centered text label.
func TextLabel(x, y int, text string) *etree.Element {
	return newElement(TagLabel,
		attr{"blue", "51"},
		attr{"class", configXML + "PositionableLabelXml"},
		attr{"editable", "false"},
		attr{"forcecontroloff", "false"},
		attr{"green", "51"},
		attr{"hidden", "no"},
		attr{"justification", "centre"},
		attr{"level", GeneratedLevel},
		attr{"positionable", "true"},
		attr{"red", "51"},
		attr{"showtooltip", "false"},
		attr{"size", "12"},
		attr{"style", "1"},
		attr{"text", text},
		attr{"x", itoa(x)},
		attr{"y", itoa(y)},
	)
}

// LocoIcon returns a train marker that scripts can move around the panel.
func LocoIcon(x, y int, text string) *etree.Element {
	e := newElement(TagLocoIcon,
		attr{"x", itoa(x)},
		attr{"y", itoa(y)},
		attr{"level", GeneratedLevel},
		attr{"forcecontroloff", "false"},
		attr{"hidden", "no"},
		attr{"positionable", "true"},
		attr{"showtooltip", "false"},
		attr{"editable", "false"},
		attr{"text", text},
		attr{"size", "12"},
		attr{"style", "0"},
		attr{"red", "51"},
		attr{"green", "51"},
		attr{"blue", "51"},
		attr{"redBack", "238"},
		attr{"greenBack", "238"},
		attr{"blueBack", "238"},
		attr{"justification", "centre"},
		attr{"orientation", "horizontal"},
		attr{"icon", "yes"},
		attr{"dockX", "967"},
		attr{"dockY", "153"},
		attr{"class", configXML + "LocoIconXml"},
	)
	iconState(e, "icon", locoMarkerURL, 0)
	return e
}

// SignalHeadIcon returns a short searchlight icon for head, turned by rotation.
func SignalHeadIcon(x, y int, head string, rotation int) *etree.Element {
	e := newElement(TagSignalHeadIcon,
		attr{"signalhead", head},
		attr{"x", itoa(x)},
		attr{"y", itoa(y)},
		attr{"level", GeneratedLevel},
		attr{"forcecontroloff", "false"},
		attr{"hidden", "no"},
		attr{"positionable", "true"},
		attr{"showtooltip", "false"},
		attr{"editable", "false"},
		attr{"clickmode", "3"},
		attr{"litmode", "false"},
		attr{"class", configXML + "SignalHeadIconXml"},
	)
	e.CreateElement("tooltip").SetText(head)
	icons := e.CreateElement("icons")
	for _, aspect := range []string{"held", "dark", "red", "green"} {
		iconState(icons, aspect, searchlightDir+"left-"+aspect+"-short.gif", rotation)
	}
	e.CreateElement("iconmaps")
	return e
}

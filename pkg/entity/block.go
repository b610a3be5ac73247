package entity

import (
	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Occupied colors for layout blocks.
const (
	ColorBody     = "blue"
	ColorDetector = "red"
)

// SystemBlock is a JMRI block whose occupancy follows one sensor.
type SystemBlock struct {
	userNameKeyed
	SensorName string
	// SystemName is set by Reconcile.
	SystemName string
}

// NewSystemBlock returns a block keyed by userName.
func NewSystemBlock(userName, sensorName string) *SystemBlock {
	return &SystemBlock{userNameKeyed: userNameKeyed{UserName: userName}, SensorName: sensorName}
}

func (*SystemBlock) Kind() Kind            { return KindSystemBlock }
func (*SystemBlock) CollectionTag() string { return KindSystemBlock.Descriptor().Tag }

// References reports the occupancy sensor.
func (b *SystemBlock) References() []Ref {
	return []Ref{{Kind: KindSensor, Key: b.SensorName}}
}

func (b *SystemBlock) Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	node.CreateAttr("userName", b.UserName)
	document.SetDefault(node, "length", "0.0")
	document.SetDefault(node, "curve", "0")

	name, err := systemNameOf(node, ids, log)
	if err != nil {
		return err
	}
	b.SystemName = name
	document.SetField(node, "systemName", name)
	writeUserNameChild(node, b.UserName, log)
	document.SetChildText(node, "permissive", "no")
	document.SetChildText(node, "occupancysensor", b.SensorName)
	return nil
}

// LayoutBlock is the panel-side twin of a SystemBlock and carries its display colors.
type LayoutBlock struct {
	userNameKeyed
	SensorName string
	Color      string
	SystemName string
}

// NewLayoutBlock returns a layout block. An empty color means ColorDetector.
func NewLayoutBlock(userName, sensorName, color string) *LayoutBlock {
	if color == "" {
		color = ColorDetector
	}
	return &LayoutBlock{userNameKeyed: userNameKeyed{UserName: userName}, SensorName: sensorName, Color: color}
}

func (*LayoutBlock) Kind() Kind            { return KindLayoutBlock }
func (*LayoutBlock) CollectionTag() string { return KindLayoutBlock.Descriptor().Tag }

// References reports the occupancy sensor.
func (b *LayoutBlock) References() []Ref {
	return []Ref{{Kind: KindSensor, Key: b.SensorName}}
}

func (b *LayoutBlock) Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	node.CreateAttr("userName", b.UserName)

	name, err := systemNameOf(node, ids, log)
	if err != nil {
		return err
	}
	b.SystemName = name
	node.CreateAttr("systemName", name)
	document.SetDefault(node, "occupiedsense", "2")
	document.SetDefault(node, "trackcolor", "black")
	document.SetDefault(node, "extracolor", "blue")
	node.CreateAttr("occupiedcolor", b.Color)
	node.CreateAttr("occupancysensor", b.SensorName)
	document.SetChildText(node, "systemName", name)
	writeUserNameChild(node, b.UserName, log)
	return nil
}

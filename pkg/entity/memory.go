package entity

import (
	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Memory key prefixes.
const (
	LocationMemoryPrefix = "loc."
	TrainMemoryPrefix    = "train."
)

// Memory is a JMRI memory variable. Memories hold the train at a location and the
// location of a train.
type Memory struct {
	userNameKeyed
	SystemName string
}

// NewMemory returns a memory keyed by userName.
func NewMemory(userName string) *Memory {
	return &Memory{userNameKeyed: userNameKeyed{UserName: userName}}
}

// LocationMemory returns the memory holding the train standing at location.
func LocationMemory(location string) *Memory { return NewMemory(LocationMemoryPrefix + location) }

// TrainMemory returns the memory holding the location of train.
func TrainMemory(train string) *Memory { return NewMemory(TrainMemoryPrefix + train) }

func (*Memory) Kind() Kind            { return KindMemory }
func (*Memory) CollectionTag() string { return KindMemory.Descriptor().Tag }

func (m *Memory) Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	node.CreateAttr("userName", m.UserName)
	name, err := systemNameOf(node, ids, log)
	if err != nil {
		return err
	}
	m.SystemName = name
	node.CreateAttr("systemName", name)
	node.CreateAttr("value", "unknown")
	document.SetChildText(node, "systemName", name)
	writeUserNameChild(node, m.UserName, log)
	return nil
}

// SignalHead is a single-turnout signal head showing green when its turnout is thrown.
type SignalHead struct {
	userNameKeyed
	TurnoutName string
	SystemName  string
}

// Signal head naming.
const (
	ForwardSignalPrefix = "Sig."
	ReverseSignalPrefix = "Sig.R"
)

// NewSignalHead returns a head driven by the turnout of the same name.
func NewSignalHead(name string) *SignalHead {
	return &SignalHead{userNameKeyed: userNameKeyed{UserName: name}, TurnoutName: name}
}

func (*SignalHead) Kind() Kind            { return KindSignalHead }
func (*SignalHead) CollectionTag() string { return KindSignalHead.Descriptor().Tag }

// References reports the aspect turnout.
func (h *SignalHead) References() []Ref {
	return []Ref{{Kind: KindTurnout, Key: h.TurnoutName}}
}

func (h *SignalHead) Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error {
	log = nopIfNil(log)
	node.CreateAttr("class", "jmri.implementation.configurexml.SingleTurnoutSignalHeadXml")
	node.CreateAttr("userName", h.UserName)
	name, err := systemNameOf(node, ids, log)
	if err != nil {
		return err
	}
	h.SystemName = name
	document.SetField(node, "systemName", name)
	writeUserNameChild(node, h.UserName, log)
	setText(document.FindOrInsertWithDefines(node, "appearance", "thrown"), "green")
	setText(document.FindOrInsertWithDefines(node, "appearance", "closed"), "red")
	setText(document.FindOrInsertWithDefines(node, "turnoutname", "aspect"), h.TurnoutName)
	return nil
}

func setText(e *etree.Element, text string) {
	if e.Text() != text {
		e.SetText(text)
	}
}

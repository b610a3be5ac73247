package entity

import "github.com/dd0wney/jmri-panelmerge/pkg/idalloc"

// Kind enumerates the entity kinds the merge engine knows. The set is closed.
type Kind int

const (
	KindSensor Kind = iota
	KindTurnout
	KindSystemBlock
	KindLayoutBlock
	KindMemory
	KindSignalHead
	KindLogixConditional
)

// Descriptor holds the document and numbering facts of one kind.
type Descriptor struct {
	Name       string
	Collection string
	Tag        string
	Scheme     idalloc.Scheme
	// Derived kinds take their system name from the input and never allocate.
	Derived bool
	// Purge removes collection members the derivation no longer wants.
	Purge bool
}

var descriptors = [...]Descriptor{
	KindSensor: {
		Name: "sensor", Collection: "sensors", Tag: "sensor",
		Derived: true, Purge: true,
	},
	KindTurnout: {
		Name: "turnout", Collection: "turnouts", Tag: "turnout",
		Derived: true, Purge: true,
	},
	KindSystemBlock: {
		Name: "block", Collection: "blocks", Tag: "block",
		Scheme: idalloc.Scheme{Prefix: "IB", Charset: "IBL"},
	},
	KindLayoutBlock: {
		Name: "layoutblock", Collection: "layoutblocks", Tag: "layoutblock",
		Scheme: idalloc.Scheme{Prefix: "ILB", Charset: "IBL"},
	},
	KindMemory: {
		Name: "memory", Collection: "memories", Tag: "memory",
		Scheme: idalloc.Scheme{Prefix: "IM:LOC:", Charset: "IM:AUTO:LOC"},
	},
	KindSignalHead: {
		Name: "signalhead", Collection: "signalheads", Tag: "signalhead",
		Scheme: idalloc.Scheme{Prefix: "LH", Charset: "LMH"},
		Purge:  true,
	},
	KindLogixConditional: {
		Name: "conditional", Collection: "conditionals", Tag: "conditional",
		Scheme: idalloc.Scheme{Prefix: "IX:GEN:TRAINLOC:C", Charset: "IX:GEN:TRAINLOC:BCC"},
	},
}

// Kinds returns every kind in merge order.
func Kinds() []Kind {
	return []Kind{
		KindSensor,
		KindTurnout,
		KindSystemBlock,
		KindLayoutBlock,
		KindMemory,
		KindSignalHead,
		KindLogixConditional,
	}
}

// Descriptor returns the static facts for k.
func (k Kind) Descriptor() Descriptor {
	if k < 0 || int(k) >= len(descriptors) {
		return Descriptor{Name: "unknown"}
	}
	return descriptors[k]
}

// String returns the kind name used in logs and metrics labels.
func (k Kind) String() string {
	return k.Descriptor().Name
}

// Scheme returns the numbering scheme with the floor applied.
func (k Kind) Scheme(floor int) idalloc.Scheme {
	s := k.Descriptor().Scheme
	s.Floor = floor
	return s
}

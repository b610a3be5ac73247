// Package idalloc hands out numeric system identifiers for one entity kind.
package idalloc

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// DefaultFloor is the identifier handed out for an empty collection.
const DefaultFloor = 2

// Scheme describes how a kind numbers its system identifiers.
type Scheme struct {
	// Prefix is prepended to the number of a fresh identifier, e.g. "IB".
	Prefix string
	// Charset lists every rune that may lead an existing identifier. Leading runes in this
	// set are stripped before the remainder is parsed.
	Charset string
	// Floor is the first identifier for an empty collection. Zero means DefaultFloor.
	Floor int
}

func (s Scheme) floor() int {
	if s.Floor <= 0 {
		return DefaultFloor
	}
	return s.Floor
}

// NextFreeID scans the system names of collection's children and returns one more than
// the largest number found, or floor when nothing at or above floor exists. The system
// name is read from the attribute or, failing that, the child element. Children without
// either are skipped with a diagnostic.
func NextFreeID(collection *etree.Element, charset string, floor int, log logging.Logger) (int, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	max := floor - 1
	if collection == nil {
		return floor, nil
	}
	for _, e := range collection.ChildElements() {
		name, ok := document.Field(e, "systemName")
		if !ok {
			log.Warn("missing system name", logging.Collection(collection.Tag), logging.String("tag", e.Tag))
			log.Debug("node without system name", logging.String("node", document.Dump(e)))
			continue
		}
		rest := strings.TrimLeft(name, charset)
		n, err := strconv.Atoi(rest)
		if err != nil {
			return 0, faults.New("next-free-id").
				Node(e.Tag).
				Key(name).
				Contextf("remainder %q after stripping %q is not a number", rest, charset).
				Cause(faults.ErrFormat).
				Err()
		}
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Allocator issues fresh identifiers for one kind during one merge pass.
type Allocator struct {
	prefix string
	next   int
	issued []string
}

// New scans collection and returns an allocator positioned after its highest identifier.
func New(collection *etree.Element, scheme Scheme, log logging.Logger) (*Allocator, error) {
	next, err := NextFreeID(collection, scheme.Charset, scheme.floor(), log)
	if err != nil {
		return nil, err
	}
	return &Allocator{prefix: scheme.Prefix, next: next}, nil
}

// Fixed returns an allocator for kinds whose identifiers are derived, never generated.
// Calling Next on it is a programming error reported as an integrity fault.
func Fixed() *Allocator {
	return &Allocator{next: -1}
}

// Next returns a fresh identifier and advances the counter.
func (a *Allocator) Next() (string, error) {
	if a.next < 0 {
		return "", faults.New("allocate").Context("kind uses derived identifiers").Cause(faults.ErrIntegrity).Err()
	}
	id := a.prefix + strconv.Itoa(a.next)
	a.next++
	a.issued = append(a.issued, id)
	return id, nil
}

// Peek returns the number the next call to Next will use.
func (a *Allocator) Peek() int {
	return a.next
}

// Issued returns every identifier handed out so far, in order.
func (a *Allocator) Issued() []string {
	out := make([]string, len(a.issued))
	copy(out, a.issued)
	return out
}

// Package entity defines the identity and update rules of every panel object the merge
// engine writes.
//
// Each kind matches existing document nodes by logical key (the user name) and writes its
// full state onto a node with Reconcile. Reconcile is idempotent: applied to a node that
// already holds the entity's state, it changes nothing and allocates nothing.
package entity

import (
	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Entity is implemented by every kind.
type Entity interface {
	Kind() Kind
	// Key returns the logical identity.
	Key() string
	// ExtractKey reads the logical identity back out of a document node.
	ExtractKey(node *etree.Element) (string, bool)
	// CollectionTag is the tag of this kind's nodes inside its collection.
	CollectionTag() string
	// Reconcile writes the entity's state onto node, allocating a system name from ids
	// only when the node has none.
	Reconcile(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) error
}

// Ref is a logical-key reference from one entity to another.
type Ref struct {
	Kind Kind
	Key  string
}

// Referencer is implemented by kinds that point at other entities by key.
type Referencer interface {
	References() []Ref
}

// userNameKeyed is embedded by every kind that matches on userName.
type userNameKeyed struct {
	UserName string
}

func (u userNameKeyed) Key() string { return u.UserName }

func (userNameKeyed) ExtractKey(node *etree.Element) (string, bool) {
	return document.Field(node, "userName")
}

// systemNameOf returns node's system name, attribute or child, drawing a fresh one when
// neither is set.
func systemNameOf(node *etree.Element, ids *idalloc.Allocator, log logging.Logger) (string, error) {
	if name, ok := document.Field(node, "systemName"); ok {
		return name, nil
	}
	name, err := ids.Next()
	if err != nil {
		return "", err
	}
	log.Debug("allocated system name", logging.SystemName(name), logging.String("tag", node.Tag))
	return name, nil
}

// writeUserNameChild sets the userName child, warning when it replaces a different name.
func writeUserNameChild(node *etree.Element, userName string, log logging.Logger) {
	prev := document.SetChildText(node, "userName", userName)
	if prev != "" && prev != userName {
		log.Warn("overwriting user name",
			logging.String("tag", node.Tag),
			logging.String("previous", prev),
			logging.Key(userName))
	}
}

func nopIfNil(log logging.Logger) logging.Logger {
	if log == nil {
		return logging.NewNopLogger()
	}
	return log
}

package pipeline

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
)

const (
	tagLogixs           = "logixs"
	tagLogix            = "logix"
	tagLogixConditional = "logixConditional"
)

// RebuildLogixOrder replaces the logixConditional children of the logix named
// logixSystemName with one entry per conditional system name, in order.
func RebuildLogixOrder(root *etree.Element, logixSystemName string, conditionals []string) error {
	var logix *etree.Element
	if logixs := document.Child(root, tagLogixs); logixs != nil {
		logix = document.FindByAttr(logixs, tagLogix, "systemName", logixSystemName)
	}
	if logix == nil {
		return faults.New("logix-order").
			Node(tagLogix).
			Key(logixSystemName).
			Context("cannot find logix node").
			Cause(faults.ErrLookup).
			Err()
	}

	for _, c := range document.Children(logix, tagLogixConditional) {
		document.Remove(logix, c)
	}
	seen := make(map[string]bool, len(conditionals))
	order := 0
	for _, name := range conditionals {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		e := document.AppendNew(logix, tagLogixConditional)
		e.CreateAttr("order", strconv.Itoa(order))
		e.CreateAttr("systemName", name)
		order++
	}
	return nil
}

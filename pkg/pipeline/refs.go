package pipeline

import (
	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/derive"
	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
)

// DanglingRef is a derived entity pointing at a key no collection holds.
type DanglingRef struct {
	From     entity.Kind
	FromKey  string
	Target   entity.Kind
	Referred string
}

// CheckReferences reports references from derived entities to keys that exist neither
// in the derived lists nor in the merged collections.
func CheckReferences(root *etree.Element, d *derive.Derived) []DanglingRef {
	known := make(map[entity.Kind]map[string]bool)
	for _, k := range entity.Kinds() {
		keys := make(map[string]bool)
		desired := d.Entities(k)
		for _, e := range desired {
			keys[e.Key()] = true
		}
		if len(desired) > 0 {
			if coll := document.Child(root, k.Descriptor().Collection); coll != nil {
				sample := desired[0]
				for _, n := range document.Children(coll, sample.CollectionTag()) {
					if key, ok := sample.ExtractKey(n); ok {
						keys[key] = true
					}
				}
			}
		}
		known[k] = keys
	}

	var out []DanglingRef
	for _, k := range entity.Kinds() {
		for _, e := range d.Entities(k) {
			r, ok := e.(entity.Referencer)
			if !ok {
				continue
			}
			for _, ref := range r.References() {
				if ref.Key == "" || known[ref.Kind][ref.Key] {
					continue
				}
				out = append(out, DanglingRef{From: k, FromKey: e.Key(), Target: ref.Kind, Referred: ref.Key})
			}
		}
	}
	return out
}

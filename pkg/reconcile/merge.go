// Package reconcile merges a desired list of entities into one collection element of a
// panel document.
package reconcile

import (
	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/document"
	"github.com/dd0wney/jmri-panelmerge/pkg/entity"
	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
	"github.com/dd0wney/jmri-panelmerge/pkg/idalloc"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
)

// Options control one merge.
type Options struct {
	// Purge removes existing entries whose key is not desired.
	Purge bool
	// Floor is the lowest identifier handed to a new entry. Zero means idalloc.DefaultFloor.
	Floor int
	Log   logging.Logger
}

// Result reports what a merge did, by logical key.
type Result struct {
	Kind entity.Kind
	// Inserted keys had no node and got a new one.
	Inserted []string
	// Updated keys matched a node whose content changed.
	Updated []string
	// Unchanged keys matched a node that already held the desired state.
	Unchanged []string
	// Undesired keys exist in the document but not in the desired list.
	Undesired []string
	// Purged is the subset of Undesired that was removed.
	Purged []string
	// Duplicates lists later occurrences of an existing key. They are removed.
	Duplicates []string
	// Skipped counts existing nodes without a readable key, by tag.
	Skipped int
	// DesiredDuplicates lists keys that appeared more than once in the desired list.
	DesiredDuplicates []string
	// Allocated lists system names drawn during this merge.
	Allocated []string
}

// Changed reports whether the merge modified the collection.
func (r *Result) Changed() bool {
	return len(r.Inserted)+len(r.Updated)+len(r.Purged)+len(r.Duplicates) > 0
}

type existingEntry struct {
	key  string
	node *etree.Element
}

// MergeEntries reconciles collection against desired.
//
// Existing children of the desired kind's tag are matched by key; the first node for a
// key wins and later ones are removed. Matched nodes are reconciled in place, unmatched
// desired entities are appended, and existing keys that are no longer desired are
// reported (and removed when opts.Purge is set). An empty desired list leaves the
// collection untouched.
func MergeEntries(collection *etree.Element, desired []entity.Entity, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logging.NewNopLogger()
	}
	if len(desired) == 0 {
		return &Result{}, nil
	}

	kind := desired[0].Kind()
	desc := kind.Descriptor()
	res := &Result{Kind: kind}
	log = log.With(logging.Component("reconcile"), logging.Kind(kind.String()))

	if collection == nil {
		return nil, faults.New("merge").Kind(kind.String()).Node(desc.Collection).Cause(faults.ErrMissingCollection).Err()
	}
	for _, d := range desired[1:] {
		if d.Kind() != kind {
			return nil, faults.New("merge").
				Kind(kind.String()).
				Key(d.Key()).
				Contextf("desired list mixes kind %s", d.Kind()).
				Cause(faults.ErrIntegrity).
				Err()
		}
	}

	ids := idalloc.Fixed()
	if !desc.Derived {
		var err error
		ids, err = idalloc.New(collection, kind.Scheme(opts.Floor), log)
		if err != nil {
			return nil, err
		}
	}

	tag := desired[0].CollectionTag()
	existing := make(map[string]*etree.Element)
	var order []existingEntry
	var duplicates []*etree.Element
	for _, node := range collection.SelectElements(tag) {
		key, ok := desired[0].ExtractKey(node)
		if !ok {
			res.Skipped++
			log.Warn("entry without key", logging.String("tag", node.Tag), logging.SystemName(node.SelectAttrValue("systemName", "")))
			continue
		}
		if _, seen := existing[key]; seen {
			res.Duplicates = append(res.Duplicates, key)
			duplicates = append(duplicates, node)
			log.Warn("duplicate key", logging.Key(key), logging.SystemName(node.SelectAttrValue("systemName", "")))
			continue
		}
		existing[key] = node
		order = append(order, existingEntry{key: key, node: node})
	}
	for _, node := range duplicates {
		document.Remove(collection, node)
	}

	wanted := dedupeDesired(desired, res, log)

	for _, d := range wanted {
		key := d.Key()
		if node, ok := existing[key]; ok {
			before := document.Dump(node)
			if err := d.Reconcile(node, ids, log); err != nil {
				return nil, faults.New("reconcile").Kind(kind.String()).Key(key).Cause(err).Err()
			}
			if document.Dump(node) == before {
				res.Unchanged = append(res.Unchanged, key)
			} else {
				res.Updated = append(res.Updated, key)
			}
			continue
		}
		node := document.AppendNew(collection, tag)
		if err := d.Reconcile(node, ids, log); err != nil {
			return nil, faults.New("reconcile").Kind(kind.String()).Key(key).Cause(err).Err()
		}
		existing[key] = node
		res.Inserted = append(res.Inserted, key)
		log.Debug("inserted entry", logging.Key(key))
	}

	want := make(map[string]struct{}, len(wanted))
	for _, d := range wanted {
		want[d.Key()] = struct{}{}
	}
	for _, e := range order {
		if _, ok := want[e.key]; ok {
			continue
		}
		res.Undesired = append(res.Undesired, e.key)
		if opts.Purge {
			document.Remove(collection, e.node)
			res.Purged = append(res.Purged, e.key)
			log.Info("purged entry", logging.Key(e.key))
		} else {
			log.Warn("undesired entry", logging.Key(e.key))
		}
	}

	res.Allocated = ids.Issued()
	log.Info("merged collection",
		logging.Collection(collection.Tag),
		logging.Int("desired", len(wanted)),
		logging.Int("inserted", len(res.Inserted)),
		logging.Int("updated", len(res.Updated)),
		logging.Int("undesired", len(res.Undesired)),
		logging.Int("allocated", len(res.Allocated)))
	return res, nil
}

// dedupeDesired keeps the last entity for each key, in the position of its first
// occurrence.
func dedupeDesired(desired []entity.Entity, res *Result, log logging.Logger) []entity.Entity {
	pos := make(map[string]int, len(desired))
	out := make([]entity.Entity, 0, len(desired))
	for _, d := range desired {
		key := d.Key()
		if i, ok := pos[key]; ok {
			out[i] = d
			res.DesiredDuplicates = append(res.DesiredDuplicates, key)
			log.Warn("desired key listed twice, last wins", logging.Key(key))
			continue
		}
		pos[key] = len(out)
		out = append(out, d)
	}
	return out
}

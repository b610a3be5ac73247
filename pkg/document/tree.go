package document

import (
	"github.com/beevik/etree"
)

// Newline is the tail written after every element this tool appends to a collection.
const Newline = "\n"

// Child returns the first child element with the given tag, or nil.
func Child(e *etree.Element, tag string) *etree.Element {
	return e.SelectElement(tag)
}

// Children returns the child elements with the given tag, in document order.
func Children(e *etree.Element, tag string) []*etree.Element {
	if e == nil {
		return nil
	}
	return e.SelectElements(tag)
}

// FindOrInsert returns the first child with tag, creating it at the end if absent.
func FindOrInsert(e *etree.Element, tag string) *etree.Element {
	if c := e.SelectElement(tag); c != nil {
		return c
	}
	return e.CreateElement(tag)
}

// FindOrInsertWithDefines returns the first child <tag defines="defines">, creating it if absent.
func FindOrInsertWithDefines(e *etree.Element, tag, defines string) *etree.Element {
	for _, c := range e.SelectElements(tag) {
		if c.SelectAttrValue("defines", "") == defines {
			return c
		}
	}
	c := e.CreateElement(tag)
	c.CreateAttr("defines", defines)
	return c
}

// FindByAttr returns the first child <tag attr="value">, or nil.
func FindByAttr(e *etree.Element, tag, attr, value string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.SelectElements(tag) {
		if a := c.SelectAttr(attr); a != nil && a.Value == value {
			return c
		}
	}
	return nil
}

// Attr returns a non-empty attribute value.
func Attr(e *etree.Element, name string) (string, bool) {
	a := e.SelectAttr(name)
	if a == nil || a.Value == "" {
		return "", false
	}
	return a.Value, true
}

// Field reads a value stored both as an attribute and as child text. The attribute wins;
// empty values count as absent.
func Field(e *etree.Element, name string) (string, bool) {
	if v, ok := Attr(e, name); ok {
		return v, true
	}
	if c := e.SelectElement(name); c != nil {
		if t := c.Text(); t != "" {
			return t, true
		}
	}
	return "", false
}

// SetField writes value to both the attribute and the child element called name.
func SetField(e *etree.Element, name, value string) {
	e.CreateAttr(name, value)
	SetChildText(e, name, value)
}

// SetChildText sets the text of the first <name> child, creating it if needed. It returns
// the previous text.
func SetChildText(e *etree.Element, name, value string) string {
	c := FindOrInsert(e, name)
	prev := c.Text()
	if prev != value {
		c.SetText(value)
	}
	return prev
}

// SetDefault sets attr only when it is missing or empty. It reports whether it wrote.
func SetDefault(e *etree.Element, attr, value string) bool {
	if _, ok := Attr(e, attr); ok {
		return false
	}
	e.CreateAttr(attr, value)
	return true
}

// Append adds child as the last element of parent, followed by a newline tail.
func Append(parent, child *etree.Element) *etree.Element {
	parent.AddChild(child)
	child.SetTail(Newline)
	return child
}

// AppendNew creates <tag> at the end of parent with a newline tail.
func AppendNew(parent *etree.Element, tag string) *etree.Element {
	c := parent.CreateElement(tag)
	c.SetTail(Newline)
	return c
}

// Remove detaches child from parent together with its tail text.
func Remove(parent, child *etree.Element) bool {
	if child == nil || child.Parent() != parent {
		return false
	}
	i := child.Index()
	parent.RemoveChildAt(i)
	for i < len(parent.Child) {
		if _, ok := parent.Child[i].(*etree.CharData); !ok {
			break
		}
		parent.RemoveChildAt(i)
	}
	return true
}

// Clear drops every attribute and child token of e, keeping e in place with its tail.
func Clear(e *etree.Element) {
	e.Attr = nil
	for len(e.Child) > 0 {
		e.RemoveChildAt(len(e.Child) - 1)
	}
}

// EnsureChild returns root's first <tag> child, appending one when absent.
func EnsureChild(root *etree.Element, tag string) (*etree.Element, bool) {
	if c := root.SelectElement(tag); c != nil {
		return c, false
	}
	return AppendNew(root, tag), true
}

// CountElements returns the number of elements in the subtree rooted at e, e included.
func CountElements(e *etree.Element) int {
	if e == nil {
		return 0
	}
	n := 1
	for _, c := range e.ChildElements() {
		n += CountElements(c)
	}
	return n
}

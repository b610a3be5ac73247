// Package document wraps the editable XML tree shared by every merge stage.
package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/dd0wney/jmri-panelmerge/pkg/faults"
)

// Load reads an XML document from path.
func Load(path string) (*etree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	doc, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadBytes parses an XML document held in memory.
func LoadBytes(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, faults.New("parse").Node("document").Context(err.Error()).Cause(faults.ErrFormat).Err()
	}
	if doc.Root() == nil {
		return nil, faults.New("parse").Node("document").Context("no root element").Cause(faults.ErrFormat).Err()
	}
	return doc, nil
}

// LoadFragment reads a file holding a bare sequence of elements and returns them under a
// synthetic root element named root.
func LoadFragment(path, root string) (*etree.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variable file %s: %w", path, err)
	}
	el, err := ParseFragment(data, root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return el, nil
}

// ParseFragment wraps data in <root>...</root> and parses it.
func ParseFragment(data []byte, root string) (*etree.Element, error) {
	data = stripDeclaration(data)
	var buf bytes.Buffer
	buf.Grow(len(data) + 2*len(root) + 8)
	fmt.Fprintf(&buf, "<%s>\n", root)
	buf.Write(data)
	fmt.Fprintf(&buf, "\n</%s>", root)

	doc, err := LoadBytes(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return doc.Root(), nil
}

func stripDeclaration(data []byte) []byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return data
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return data
	}
	return trimmed[end+2:]
}

// Bytes serializes the document.
func Bytes(doc *etree.Document) ([]byte, error) {
	return doc.WriteToBytes()
}

// Save writes doc to outPath through a temporary file and a rename. It refuses to write
// over inPath so a failed run never touches the source document.
func Save(doc *etree.Document, outPath, inPath string) error {
	if samePath(outPath, inPath) {
		return faults.UsageError(fmt.Sprintf("output %s must differ from input %s", outPath, inPath))
	}
	data, err := Bytes(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set output mode: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename output into place: %w", err)
	}
	return nil
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// Dump renders a single element for diagnostics.
func Dump(e *etree.Element) string {
	if e == nil {
		return "<nil>"
	}
	doc := etree.NewDocument()
	doc.AddChild(e.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", e.Tag, err)
	}
	return s
}

// Package xmlutil provides utilities for reading and writing Maven XML documents.
package xmlutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"
)

// ConfigFile wraps an etree Document for manipulating XML documents such as pom.xml.
// It provides a simple API for getting and setting element values.
type ConfigFile struct {
	doc    *etree.Document
	path   string
	root   *etree.Element
	indent int
}

// New creates an empty document with an XML declaration and the given root element.
// Nothing is read from path; it is only used by Save.
func New(path, rootElement string) *ConfigFile {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(rootElement)
	return &ConfigFile{doc: doc, path: path, root: root, indent: 2}
}

// Open reads an XML document from disk. If the file doesn't exist,
// it creates a new document with the specified root element name.
func Open(path, rootElement string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(path, rootElement), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parse(path, data)
}

// OpenExisting reads an XML document from disk.
// Returns an error if the file doesn't exist.
func OpenExisting(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, data)
}

func parse(path string, data []byte) (*ConfigFile, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("no root element in %s", path)
	}

	return &ConfigFile{doc: doc, path: path, root: root, indent: 2}, nil
}

// SetIndent changes the number of spaces used per level by Save and String
func (c *ConfigFile) SetIndent(spaces int) {
	c.indent = spaces
}

// SetAttr sets an attribute on the root element
func (c *ConfigFile) SetAttr(key, value string) {
	c.root.CreateAttr(key, value)
}

// GetElement returns the text value of a child element, or empty string if not found.
func (c *ConfigFile) GetElement(name string) string {
	el := c.root.SelectElement(name)
	if el == nil {
		return ""
	}
	return el.Text()
}

// SetElement sets the value of a child element, creating it if it doesn't exist.
func (c *ConfigFile) SetElement(name, value string) {
	el := c.root.SelectElement(name)
	if el == nil {
		el = c.root.CreateElement(name)
	}
	el.SetText(value)
}

// ChildValues returns the texts of all <child> elements below <name>.
func (c *ConfigFile) ChildValues(name, child string) []string {
	el := c.root.SelectElement(name)
	if el == nil {
		return nil
	}
	var values []string
	for _, ch := range el.SelectElements(child) {
		values = append(values, ch.Text())
	}
	return values
}

// SetChildren sets a child element to contain one <child> element per value.
// This is used for Maven lists like:
//
//	<modules>
//	  <module>kafka/log-sink</module>
//	  <module>rabbit/log-sink</module>
//	</modules>
func (c *ConfigFile) SetChildren(name, child string, values []string) {
	// Remove existing element if present
	if existing := c.root.SelectElement(name); existing != nil {
		c.root.RemoveChild(existing)
	}

	el := c.root.CreateElement(name)
	for _, v := range values {
		el.CreateElement(child).SetText(v)
	}
}

// String renders the indented document
func (c *ConfigFile) String() (string, error) {
	c.doc.Indent(c.indent)
	return c.doc.WriteToString()
}

// Save writes the document back to disk with proper indentation.
func (c *ConfigFile) Save() error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	c.doc.Indent(c.indent)
	return c.doc.WriteToFile(c.path)
}

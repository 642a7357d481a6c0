package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Record is persisted form of a block.
type Record struct {
	ID           string              `json:"id" yaml:"id"`
	Type         Type                `json:"type" yaml:"type"`
	Position     int                 `json:"position" yaml:"position"`
	DisplayName  string              `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Content      map[string]any      `json:"content" yaml:"content"`
	CustomStyles map[string]string   `json:"customStyles,omitempty" yaml:"customStyles,omitempty"`
	Children     map[string][]Record `json:"children,omitempty" yaml:"children,omitempty"`
	TabIDs       map[string]string   `json:"tabIds,omitempty" yaml:"tabIds,omitempty"`
}

// ToRecord serializes block and, for Tabs, all of its children.
func ToRecord(b Block) Record {
	r := Record{
		ID:           b.ID(),
		Type:         b.Type(),
		Position:     b.Position(),
		DisplayName:  b.DisplayName(),
		Content:      b.Content(),
		CustomStyles: b.CustomStyles(),
	}
	if len(r.CustomStyles) == 0 {
		r.CustomStyles = nil
	}
	if t, ok := b.(*Tabs); ok {
		r.Children = make(map[string][]Record, len(t.children))
		for name, list := range t.children {
			recs := make([]Record, 0, len(list))
			for _, c := range list {
				recs = append(recs, ToRecord(c))
			}
			r.Children[name] = recs
		}
		r.TabIDs = maps.Clone(t.tabIDs)
	}
	return r
}

// FromRecord recreates block from its persisted form.
func FromRecord(r Record) (Block, error) {
	b, err := New(r.Type)
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, fmt.Errorf("%w: %s block without id", ErrInvalidBlockRecord, r.Type)
	}
	bs := b.(interface{ setID(string) })
	bs.setID(r.ID)
	b.SetPosition(r.Position)
	if r.DisplayName != "" {
		b.SetDisplayName(r.DisplayName)
	}
	for k, v := range r.CustomStyles {
		b.SetCustomStyle(k, v)
	}

	t, isTabs := b.(*Tabs)
	for _, k := range slices.Sorted(maps.Keys(r.Content)) {
		if isTabs && (k == "tabs" || k == "active_tab") {
			continue
		}
		if err := b.Update(k, r.Content[k]); err != nil {
			return nil, fmt.Errorf("block %s: %w", r.ID, err)
		}
	}
	if isTabs {
		if err := t.restore(r); err != nil {
			return nil, fmt.Errorf("block %s: %w", r.ID, err)
		}
	}
	return b, nil
}

func (b *base) setID(id string) { b.id = id }

func (t *Tabs) restore(r Record) error {
	names, err := asStrings(r.Content["tabs"])
	if err != nil {
		return err
	}
	active, err := asInt(r.Content["active_tab"])
	if err != nil {
		return err
	}
	t.content["tabs"] = names
	t.content["active_tab"] = active
	t.children = make(map[string][]Block, len(r.Children))
	t.tabIDs = maps.Clone(r.TabIDs)
	if t.tabIDs == nil {
		t.tabIDs = make(map[string]string)
	}
	for name, recs := range r.Children {
		list := make([]Block, 0, len(recs))
		for _, cr := range recs {
			c, err := FromRecord(cr)
			if err != nil {
				return err
			}
			list = append(list, c)
		}
		t.children[name] = list
	}
	t.Validate()
	return nil
}

// Marshal serializes document as JSON array of block records.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(records(doc), "", "  ")
}

// Unmarshal parses JSON produced by Marshal.
func Unmarshal(data []byte) (Document, error) {
	var recs []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("unable to decode document: %w", err)
	}
	return fromRecords(recs)
}

// MarshalYAML serializes document as YAML sequence of block records.
func MarshalYAML(doc Document) ([]byte, error) {
	return yaml.Marshal(records(doc))
}

// UnmarshalYAML parses YAML produced by MarshalYAML.
func UnmarshalYAML(data []byte) (Document, error) {
	var recs []Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("unable to decode document: %w", err)
	}
	return fromRecords(recs)
}

func records(doc Document) []Record {
	recs := make([]Record, 0, len(doc))
	for _, b := range doc {
		recs = append(recs, ToRecord(b))
	}
	return recs
}

func fromRecords(recs []Record) (Document, error) {
	doc := make(Document, 0, len(recs))
	for i, r := range recs {
		b, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		doc = append(doc, b)
	}
	return doc, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDocument reads project file, format is selected by extension: YAML for
// .yaml/.yml, JSON otherwise.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read project file: %w", err)
	}
	if isYAML(path) {
		return UnmarshalYAML(data)
	}
	return Unmarshal(data)
}

// SaveDocument writes project file in format selected by extension.
func SaveDocument(path string, doc Document) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = MarshalYAML(doc)
	} else {
		data, err = Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("unable to encode document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("unable to write project file: %w", err)
	}
	return nil
}

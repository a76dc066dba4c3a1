// Package storage reads and writes scene files.
//
// A scene file is a YAML document holding a format version and the ordered
// list of nodes. Each node carries its class name and the attribute list the
// node wrote, in the order it wrote them:
//
//	version: v1
//	nodes:
//	  - class: VolumeNode
//	    attributes:
//	      id: VolumeNode1
//	      name: Brain
//	      displayRef: DisplayNode1 DisplayNode2
package storage

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

// Version is the scene file format written by Write.
const Version = "v1"

var (
	ErrUnknownClass = errors.New("unknown node class")
	ErrVersion      = errors.New("unsupported scene file version")
)

type fileNode struct {
	Class      string    `yaml:"class"`
	Attributes yaml.Node `yaml:"attributes"`
}

type file struct {
	Version string     `yaml:"version"`
	Nodes   []fileNode `yaml:"nodes"`
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Write encodes nodes as a scene file.
func Write(w io.Writer, nodes []mrml.Node) error {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, n := range nodes {
		var attrs mrml.AttributeList
		n.WriteAttributes(&attrs)
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, a := range attrs {
			m.Content = append(m.Content, scalar(a.Name), scalar(a.Value))
		}
		list.Content = append(list.Content, &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				scalar("class"), scalar(n.ClassName()),
				scalar("attributes"), m,
			},
		})
	}
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("version"), scalar(Version),
			scalar("nodes"), list,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode scene file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode scene file: %w", err)
	}
	return nil
}

// WriteScene writes every node of s, in scene order, under the Save state.
func WriteScene(w io.Writer, s *mrml.Scene) error {
	s.StartState(mrml.SaveState)
	defer s.EndState(mrml.SaveState)
	return Write(w, s.Nodes())
}

// ExportReferenced writes node and every node reachable from it through
// references, so the file can be imported elsewhere as a unit.
func ExportReferenced(w io.Writer, s *mrml.Scene, node mrml.Node) error {
	s.StartState(mrml.SaveState)
	defer s.EndState(mrml.SaveState)
	return Write(w, s.ReferencedNodes(node))
}

// Read decodes a scene file into detached nodes created through the scene's
// class registry. Nothing is added to the scene.
func Read(r io.Reader, s *mrml.Scene) ([]mrml.Node, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode scene file: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w: %q", ErrVersion, f.Version)
	}

	nodes := make([]mrml.Node, 0, len(f.Nodes))
	for i, fn := range f.Nodes {
		attrs, err := attributeList(&fn.Attributes)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, fn.Class, err)
		}
		n, ok := s.Registry().Create(fn.Class)
		if !ok {
			return nil, fmt.Errorf("node %d: %w %q", i, ErrUnknownClass, fn.Class)
		}
		n.ReadAttributes(attrs)
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func attributeList(m *yaml.Node) (mrml.AttributeList, error) {
	if m.Kind == 0 {
		return nil, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: attributes must be a mapping", m.Line)
	}
	attrs := make(mrml.AttributeList, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: attribute %q must be a scalar", v.Line, k.Value)
		}
		attrs.Set(k.Value, v.Value)
	}
	return attrs, nil
}

// Import reads a scene file and merges its nodes into s, returning the ID
// remap table of the batch.
func Import(s *mrml.Scene, r io.Reader) (map[string]string, error) {
	nodes, err := Read(r, s)
	if err != nil {
		return nil, err
	}
	return s.Import(nodes), nil
}

// Restore replaces the scene content with the file's nodes. Singletons are
// kept and the file's singletons merge into them. The file is fully decoded
// before the scene is touched.
func Restore(s *mrml.Scene, r io.Reader) error {
	nodes, err := Read(r, s)
	if err != nil {
		return err
	}
	s.StartState(mrml.RestoreState)
	defer s.EndState(mrml.RestoreState)
	s.Clear(false)
	s.Import(nodes)
	return nil
}

// ClassNames returns the distinct node classes a scene file uses, in order
// of first appearance, without creating any node.
func ClassNames(r io.Reader) ([]string, error) {
	var f struct {
		Nodes []struct {
			Class string `yaml:"class"`
		} `yaml:"nodes"`
	}
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode scene file: %w", err)
	}
	var out []string
	seen := make(map[string]bool)
	for _, n := range f.Nodes {
		if n.Class != "" && !seen[n.Class] {
			seen[n.Class] = true
			out = append(out, n.Class)
		}
	}
	return out, nil
}

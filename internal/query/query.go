// Package query selects scene nodes with boolean filter expressions such as
//
//	class == "VolumeNode" && attributes["modality"] == "MR"
//	len(references["display"]) > 1 || referencedBy == 0
//
// Expressions are compiled once against Env and then run per node.
package query

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/gyaneshwarpardhi/mrmlscene/internal/mrml"
)

// Env is the view of a node a filter expression sees.
// It doubles as the JSON view of a node.
type Env struct {
	ID           string              `expr:"id" json:"id"`
	Name         string              `expr:"name" json:"name"`
	Class        string              `expr:"class" json:"class"`
	Tag          string              `expr:"tag" json:"tag"`
	Description  string              `expr:"description" json:"description,omitempty"`
	Hidden       bool                `expr:"hidden" json:"hidden"`
	Selectable   bool                `expr:"selectable" json:"selectable"`
	Singleton    bool                `expr:"singleton" json:"singleton"`
	Attributes   map[string]string   `expr:"attributes" json:"attributes"`
	References   map[string][]string `expr:"references" json:"references"`
	ReferencedBy int                 `expr:"referencedBy" json:"referenced_by"`
}

// EnvFor builds the expression environment of n. ReferencedBy counts the
// scene nodes referencing n and is zero for detached nodes.
func EnvFor(n mrml.Node) Env {
	b := n.Base()
	env := Env{
		ID:          b.ID(),
		Name:        b.Name(),
		Class:       n.ClassName(),
		Tag:         n.Tag(),
		Description: b.Description(),
		Hidden:      b.HideFromEditors(),
		Selectable:  b.Selectable(),
		Singleton:   b.SingletonTag() != "",
		Attributes:  make(map[string]string),
		References:  make(map[string][]string),
	}
	for _, name := range b.AttributeNames() {
		env.Attributes[name], _ = b.Attribute(name)
	}
	for _, role := range b.ReferenceRoles() {
		env.References[role] = b.ReferenceIDs(role)
	}
	if s := b.Scene(); s != nil {
		env.ReferencedBy = len(s.ReferencingNodes(b.ID()))
	}
	return env
}

// Filter is a compiled node filter.
type Filter struct {
	src string
	prg *vm.Program
}

// Compile type-checks src against Env. The expression must yield a bool.
func Compile(src string) (*Filter, error) {
	prg, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", src, err)
	}
	return &Filter{src: src, prg: prg}, nil
}

func (f *Filter) String() string { return f.src }

// Match runs the filter on n.
func (f *Filter) Match(n mrml.Node) (bool, error) {
	out, err := expr.Run(f.prg, EnvFor(n))
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.src, n.Base().ID(), err)
	}
	return out.(bool), nil
}

// Select returns the nodes of nodes that match src, in order. An empty src
// matches everything.
func Select(nodes []mrml.Node, src string) ([]mrml.Node, error) {
	if src == "" {
		return nodes, nil
	}
	f, err := Compile(src)
	if err != nil {
		return nil, err
	}
	var out []mrml.Node
	for _, n := range nodes {
		ok, err := f.Match(n)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

package mrml

import (
	"net/url"
	"strconv"
	"strings"
)

// Attribute is one serialized key="value" pair.
type Attribute struct {
	Name  string
	Value string
}

// AttributeList is an ordered set of serialized attributes. Storage layers
// turn it into their own text format and back.
type AttributeList []Attribute

// Set replaces the value of name or appends it.
func (l *AttributeList) Set(name, value string) {
	for i := range *l {
		if (*l)[i].Name == name {
			(*l)[i].Value = value
			return
		}
	}
	*l = append(*l, Attribute{Name: name, Value: value})
}

// Get returns the value of name.
func (l AttributeList) Get(name string) (string, bool) {
	for _, a := range l {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// ReferenceSuffix is appended to a role name to form its attribute key.
const ReferenceSuffix = "Ref"

// RoleAttributeName returns the attribute key under which a role's target
// IDs are serialized. The default (empty) role serializes as "Ref".
func RoleAttributeName(role string) string { return role + ReferenceSuffix }

// WriteAttributes implements Node.
func (n *BaseNode) WriteAttributes(attrs *AttributeList) {
	attrs.Set("id", n.id)
	attrs.Set("name", n.name)
	if n.description != "" {
		attrs.Set("description", n.description)
	}
	attrs.Set("hideFromEditors", strconv.FormatBool(n.hideFromEditors))
	attrs.Set("selectable", strconv.FormatBool(n.selectable))
	if n.singletonTag != "" {
		attrs.Set("singletonTag", n.singletonTag)
	}
	if len(n.attrNames) > 0 {
		attrs.Set("attributes", encodeAttributes(n.attrNames, n.attrs))
	}
	for _, role := range n.ReferenceRoles() {
		attrs.Set(RoleAttributeName(role), strings.Join(n.ReferenceIDs(role), " "))
	}
}

// ReadAttributes implements Node. Values that fail to parse are logged and
// skipped; the rest of the list is still applied.
func (n *BaseNode) ReadAttributes(attrs AttributeList) {
	n.StartModify()
	defer n.EndModify()
	for _, a := range attrs {
		switch a.Name {
		case "id":
			n.SetID(a.Value)
		case "name":
			n.SetName(a.Value)
		case "description":
			n.SetDescription(a.Value)
		case "hideFromEditors":
			n.readBool(a, n.SetHideFromEditors)
		case "selectable":
			n.readBool(a, n.SetSelectable)
		case "singletonTag":
			n.SetSingletonTag(a.Value)
		case "attributes":
			names, values, err := decodeAttributes(a.Value)
			if err != nil {
				n.logger().Warn("invalid attributes value", "node", n.id, "err", err)
				continue
			}
			for _, name := range names {
				n.SetAttribute(name, values[name])
			}
		default:
			if !strings.HasSuffix(a.Name, ReferenceSuffix) {
				continue
			}
			role := strings.TrimSuffix(a.Name, ReferenceSuffix)
			n.RemoveReferenceIDs(role)
			for _, id := range strings.Fields(a.Value) {
				n.AddReferenceID(role, id)
			}
		}
	}
}

func (n *BaseNode) readBool(a Attribute, set func(bool)) {
	v, err := strconv.ParseBool(a.Value)
	if err != nil {
		n.logger().Warn("invalid boolean attribute", "node", n.id, "attribute", a.Name, "value", a.Value)
		return
	}
	set(v)
}

// encodeAttributes produces "k1:v1;k2:v2" with both sides query-escaped.
func encodeAttributes(names []string, values map[string]string) string {
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte(':')
		sb.WriteString(url.QueryEscape(values[name]))
	}
	return sb.String()
}

func decodeAttributes(s string) ([]string, map[string]string, error) {
	values := make(map[string]string)
	var names []string
	if s == "" {
		return names, values, nil
	}
	for _, pair := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, nil, &attributeError{pair: pair}
		}
		name, err := url.QueryUnescape(k)
		if err != nil {
			return nil, nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := values[name]; !seen {
			names = append(names, name)
		}
		values[name] = value
	}
	return names, values, nil
}

type attributeError struct{ pair string }

func (e *attributeError) Error() string {
	return "malformed attribute pair " + strconv.Quote(e.pair)
}

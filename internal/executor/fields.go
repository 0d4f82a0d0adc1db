package executor

import (
	"slices"

	language "github.com/hanpama/bookgraph/internal/language"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

// collectedFieldMap groups selected fields by response name, keeping the
// order in which each name first appears in the query.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func (m *collectedFieldMap) add(responseName string, field *language.Field) {
	if i, ok := m.index[responseName]; ok {
		m.fields[i].Fields = append(m.fields[i].Fields, field)
		return
	}
	m.index[responseName] = len(m.fields)
	m.fields = append(m.fields, collectedField{ResponseName: responseName, Fields: []*language.Field{field}})
}

func (m *collectedFieldMap) orderedFields() []collectedField { return m.fields }

// collectFields flattens selectionSet for objectType, expanding fragments
// whose type condition applies and honouring @skip and @include. Each named
// fragment is expanded at most once.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	c := fieldCollector{
		state:   state,
		object:  objectType,
		out:     &collectedFieldMap{index: make(map[string]int)},
		visited: make(map[string]bool),
	}
	c.collect(selectionSet)
	return c.out
}

type fieldCollector struct {
	state   *executionState
	object  *schema.Type
	out     *collectedFieldMap
	visited map[string]bool
}

func (c *fieldCollector) collect(selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !included(c.state, sel.Directives) {
				continue
			}
			name := sel.Alias
			if name == "" {
				name = sel.Name
			}
			c.out.add(name, sel)

		case *language.InlineFragment:
			if included(c.state, sel.Directives) && doesFragmentTypeApply(c.state.schema, c.object, sel.TypeCondition) {
				c.collect(sel.SelectionSet)
			}

		case *language.FragmentSpread:
			if !included(c.state, sel.Directives) || c.visited[sel.Name] {
				continue
			}
			c.visited[sel.Name] = true
			def := c.state.document.Fragments.ForName(sel.Name)
			if def == nil || !doesFragmentTypeApply(c.state.schema, c.object, def.TypeCondition) {
				continue
			}
			if included(c.state, def.Directives) {
				c.collect(def.SelectionSet)
			}
		}
	}
}

// doesFragmentTypeApply reports whether a fragment with the given type
// condition applies to objectType: an empty condition, the object type itself,
// an interface it implements, or a union containing it.
func doesFragmentTypeApply(sch *schema.Schema, objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	conditional := sch.Types[typeCondition]
	if conditional == nil {
		return false
	}
	switch conditional.Kind {
	case schema.TypeKindInterface:
		if slices.Contains(objectType.Interfaces, typeCondition) {
			return true
		}
		return slices.Contains(conditional.PossibleTypes, objectType.Name)
	case schema.TypeKindUnion:
		return slices.Contains(conditional.PossibleTypes, objectType.Name)
	default:
		return false
	}
}

// included evaluates @skip and @include against the operation variables.
func included(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil && conditionIf(state, skip) {
		return false
	}
	if include := directives.ForName("include"); include != nil && !conditionIf(state, include) {
		return false
	}
	return true
}

func conditionIf(state *executionState, d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, _ := literal(arg.Value, state.variableValues).(bool)
	return v
}

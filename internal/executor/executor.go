package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/bookgraph/internal/language"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// executionState is the mutable state of one request.
type executionState struct {
	ctx            context.Context
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any

	data     map[string]any
	dataNull bool
	errors   []GraphQLError

	// pending holds the async fields queued at the depth being expanded.
	pending []asyncTask
	// nullified holds paths already set to null by Non-Null propagation.
	// Tasks below them are dropped.
	nullified []Path
}

// asyncTask is a queued async field together with what is needed to
// complete its value once the batch returns.
type asyncTask struct {
	task      AsyncResolveTask
	path      Path
	fieldType *schema.TypeRef
	fields    []*language.Field
	// boundary is the nearest nullable position above the field. A null in
	// a Non-Null field is written there. An empty boundary is the data root.
	boundary Path
}

// asyncPending marks a response slot whose value arrives with a later batch.
type asyncPending struct{}

// ExecuteRequest runs the selected operation of document. Sync fields are
// resolved while the tree is expanded; async fields are resolved in one
// batch per depth until none remain.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	}
	coerced, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	rootType := e.rootType(operation.Operation)
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}}}
	}

	s := &executionState{
		ctx:            ctx,
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: coerced,
		errors:         []GraphQLError{},
	}
	s.data = s.executeSelectionSet(rootType, operation.SelectionSet, initialValue, Path{}, nil)
	if s.data == nil {
		s.dataNull = true
	}
	for len(s.pending) > 0 && !s.dataNull {
		tasks, results := s.flush()
		for i, r := range results {
			s.completeAsync(tasks[i], r)
		}
	}

	if s.dataNull {
		return &ExecutionResult{Data: nil, Errors: s.errors}
	}
	return &ExecutionResult{Data: s.data, Errors: s.errors}
}

func (e *Executor) rootType(op language.Operation) *schema.Type {
	switch op {
	case language.Query:
		return e.schema.GetQueryType()
	case language.Mutation:
		return e.schema.GetMutationType()
	case language.Subscription:
		return e.schema.GetSubscriptionType()
	}
	return nil
}

// executeSelectionSet expands one object. It returns nil when a Non-Null
// field of the object completed to null, which nulls the object itself.
func (s *executionState) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, source any, path, boundary Path) map[string]any {
	out := make(map[string]any)
	for _, group := range collectFields(s, objectType, selectionSet).orderedFields() {
		fields := group.Fields
		fieldPath := path.with(group.ResponseName)
		name := fields[0].Name

		if name == "__typename" {
			out[group.ResponseName] = objectType.Name
			continue
		}
		def := objectType.Field(name)
		if def == nil {
			s.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", name, objectType.Name), fieldPath)
			continue
		}

		value := s.executeField(objectType, def, fields, source, fieldPath, boundary)
		if isNullish(value) {
			if schema.IsNonNull(def.Type) {
				return nil
			}
			value = nil
		}
		out[group.ResponseName] = value
	}
	return out
}

// executeField resolves a sync field and completes it, or queues an async
// field and returns asyncPending.
func (s *executionState) executeField(objectType *schema.Type, def *schema.Field, fields []*language.Field, source any, path, boundary Path) any {
	args := coerceArgumentValues(def, fields[0].Arguments, s.variableValues, s, path)
	if def.Async {
		s.pending = append(s.pending, asyncTask{
			task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      def.Name,
				Source:     source,
				Args:       args,
			},
			path:      path,
			fieldType: def.Type,
			fields:    fields,
			boundary:  boundary,
		})
		return asyncPending{}
	}
	value, err := s.runtime.ResolveSync(s.ctx, objectType.Name, def.Name, source, args)
	if err != nil {
		s.addError(err.Error(), path)
		value = nil
	}
	return s.completeValue(def.Type, fields, value, path, boundary)
}

// flush hands the queued tasks of the current depth to the runtime. Tasks
// below a nullified path are dropped first. A done context or a batch of
// the wrong length fails every task.
func (s *executionState) flush() ([]asyncTask, []AsyncResolveResult) {
	queued := s.pending
	s.pending = nil

	live := make([]asyncTask, 0, len(queued))
	for _, t := range queued {
		if !s.isNullified(t.path) {
			live = append(live, t)
		}
	}
	tasks := make([]AsyncResolveTask, len(live))
	for i, t := range live {
		tasks[i] = t.task
	}

	if err := s.ctx.Err(); err != nil {
		return live, failAll(len(live), err)
	}
	results := s.runtime.BatchResolveAsync(s.ctx, tasks)
	if len(results) != len(tasks) {
		return live, failAll(len(live), fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks)))
	}
	return live, results
}

func failAll(n int, err error) []AsyncResolveResult {
	results := make([]AsyncResolveResult, n)
	for i := range results {
		results[i].Error = err
	}
	return results
}

// completeAsync writes one batch result into the response tree.
func (s *executionState) completeAsync(t asyncTask, r AsyncResolveResult) {
	if s.isNullified(t.path) {
		return
	}
	var value any
	if r.Error != nil {
		s.addError(r.Error.Error(), t.path)
	} else {
		value = s.completeValue(t.fieldType, t.fields, r.Value, t.path, t.boundary)
	}
	if !isNullish(value) {
		s.set(t.path, value)
		return
	}
	if schema.IsNonNull(t.fieldType) {
		s.nullify(t.boundary)
		return
	}
	s.set(t.path, nil)
}

// nullify writes null at boundary and drops everything queued below it.
func (s *executionState) nullify(boundary Path) {
	if len(boundary) == 0 {
		s.dataNull = true
		return
	}
	s.set(boundary, nil)
	s.nullified = append(s.nullified, boundary)
}

func (s *executionState) isNullified(p Path) bool {
	for _, n := range s.nullified {
		if p.hasPrefix(n) {
			return true
		}
	}
	return false
}

func (s *executionState) set(p Path, value any) { setValueAtPath(s.data, p, value) }

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

func (s *executionState) hasErrorAt(path Path) bool {
	for _, err := range s.errors {
		if err.Path.equal(path) {
			return true
		}
	}
	return false
}

// getOperation selects the named operation, or the only one when name is
// empty.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	return document.Operations.ForName(operationName)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = schema.NonNullType(ref)
	}
	return ref
}

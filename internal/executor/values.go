package executor

import (
	"fmt"
	"math"
	"strconv"

	language "github.com/hanpama/bookgraph/internal/language"
	schema "github.com/hanpama/bookgraph/internal/schema"
)

// coerceVariableValues applies defaults and input coercion to the provided
// variables of operation. A missing or null required variable is an error.
func coerceVariableValues(
	_ *schema.Schema,
	operation *language.OperationDefinition,
	provided map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, def := range operation.VariableDefinitions {
		name, typ := def.Variable, def.Type
		val, ok := provided[name]
		switch {
		case ok:
		case def.DefaultValue != nil:
			val = literal(def.DefaultValue, nil)
		case typ.NonNull:
			return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, typ)
		default:
			continue
		}
		if val == nil && typ.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, typ)
		}
		cv, err := coerceValue(val, typeRefFromAST(typ))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, typ, err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues resolves the arguments of one field selection.
// Problems are recorded on state at path; the remaining arguments are still
// returned.
func coerceArgumentValues(
	fieldDef *schema.Field,
	arguments language.ArgumentList,
	variableValues map[string]any,
	state *executionState,
	path Path,
) map[string]any {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, def := range fieldDef.Arguments {
		arg := arguments.ForName(def.Name)
		if arg == nil {
			switch {
			case def.DefaultValue != nil:
				coerced[def.Name] = def.DefaultValue
			case schema.IsNonNull(def.Type):
				state.addError(fmt.Sprintf("argument '%s' of required type was not provided", def.Name), path)
			}
			continue
		}
		cv, err := coerceValue(literal(arg.Value, variableValues), def.Type)
		if err != nil {
			state.addError(fmt.Sprintf("argument '%s' cannot be coerced: %v", def.Name, err), path)
			continue
		}
		coerced[def.Name] = cv
	}
	return coerced
}

// literal converts a query value to Go, substituting variables. Documents
// are validated before execution, so conversion failures yield nil.
func literal(value *language.Value, vars map[string]any) any {
	v, err := value.Value(vars)
	if err != nil {
		return nil
	}
	return v
}

// coerceValue coerces an input value to typ. Lists accept a single item;
// unknown scalars, enums and input objects pass through.
func coerceValue(value any, typ *schema.TypeRef) (any, error) {
	if schema.IsNonNull(typ) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return coerceValue(value, typ.OfType)
	}
	if value == nil {
		return nil, nil
	}
	if typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			items = []any{value}
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceValue(item, typ.OfType)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	if coerce, ok := scalarCoercers[typ.Named]; ok {
		return coerce(value)
	}
	return value, nil
}

var scalarCoercers = map[string]func(any) (any, error){
	"Int":     coerceInt,
	"Float":   coerceFloat,
	"String":  coerceString,
	"Boolean": coerceBoolean,
	"ID":      coerceID,
}

func coerceInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot coerce %v to int", v)
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot coerce %q to int", v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%d overflows a 32-bit Int", n)
	}
	return int(n), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return fmt.Sprint(value), nil
}

func coerceBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int, int32, int64:
		return fmt.Sprint(v), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}

package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/configql/ast"
)

// ErrDuplicateResolver is returned when a second resolver is registered for
// a mutation field that already has one.
var ErrDuplicateResolver = errors.New("executor: resolver already registered")

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	Operation string     // Operation kind: query, mutation or subscription
	FieldName string     // Schema field name
	Field     *ast.Field // Selected field, including its sub-selection
}

// ResolverFunc defines the function signature for all top-level resolvers.
type ResolverFunc func(ctx context.Context, info ResolveInfo, args map[string]interface{}) (interface{}, error)

// Executor executes GraphQL operations against registered resolvers. It is
// safe to register resolvers while other goroutines execute operations.
type Executor struct {
	mu                    sync.RWMutex
	queryResolvers        map[string]ResolverFunc
	mutationResolvers     map[string]ResolverFunc
	subscriptionResolvers map[string]ResolverFunc
}

// New creates a new Executor instance.
func New() *Executor {
	return &Executor{
		queryResolvers:        make(map[string]ResolverFunc),
		mutationResolvers:     make(map[string]ResolverFunc),
		subscriptionResolvers: make(map[string]ResolverFunc),
	}
}

// RegisterQueryResolver registers a resolver for a query field, replacing
// any previous one.
func (e *Executor) RegisterQueryResolver(field string, resolver ResolverFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queryResolvers[field] = resolver
}

// RegisterMutationResolver registers a resolver for a mutation field. Each
// mutation name maps to exactly one resolver, so registering a name twice
// fails with ErrDuplicateResolver.
func (e *Executor) RegisterMutationResolver(field string, resolver ResolverFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.mutationResolvers[field]; ok {
		return fmt.Errorf("%w: mutation %s", ErrDuplicateResolver, field)
	}
	e.mutationResolvers[field] = resolver
	return nil
}

// RegisterSubscriptionResolver registers a resolver for a subscription field.
// The resolver must return a channel of events.
func (e *Executor) RegisterSubscriptionResolver(field string, resolver ResolverFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptionResolvers[field] = resolver
}

// Mutations returns the registered mutation field names in sorted order.
func (e *Executor) Mutations() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.mutationResolvers))
	for name := range e.mutationResolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Executor) lookup(operation, field string) (ResolverFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var fn ResolverFunc
	var ok bool
	switch operation {
	case ast.OperationMutation:
		fn, ok = e.mutationResolvers[field]
	case ast.OperationSubscription:
		fn, ok = e.subscriptionResolvers[field]
	default:
		fn, ok = e.queryResolvers[field]
	}
	return fn, ok
}

// Execute processes the first operation of a parsed document and returns a
// response map holding "data".
func (e *Executor) Execute(ctx context.Context, doc *ast.Document, variables map[string]interface{}) (map[string]interface{}, error) {
	response := map[string]interface{}{}
	if len(doc.Definitions) == 0 {
		return response, fmt.Errorf("no definitions found")
	}
	op := doc.Operation()
	if op == nil {
		return response, fmt.Errorf("unsupported definition type")
	}
	if op.SelectionSet == nil {
		return response, fmt.Errorf("operation has no selection set")
	}
	if op.Operation == ast.OperationSubscription {
		return response, fmt.Errorf("subscriptions must be executed with ExecuteSubscription")
	}
	variables = withDefaults(op, variables)

	data := make(map[string]interface{})
	for _, sel := range op.SelectionSet.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		res, err := e.resolveRoot(ctx, op.Operation, field, variables)
		if err != nil {
			return nil, err
		}
		if field.SelectionSet != nil {
			res, err = resolveNestedSelection(res, field.SelectionSet)
			if err != nil {
				return nil, err
			}
		}
		data[field.ResponseKey()] = res
	}
	response["data"] = data
	return response, nil
}

// ExecuteSubscription executes a subscription field and returns a channel of events.
func (e *Executor) ExecuteSubscription(ctx context.Context, field *ast.Field, variables map[string]interface{}) (<-chan interface{}, error) {
	resolver, ok := e.lookup(ast.OperationSubscription, field.Name)
	if !ok {
		return nil, fmt.Errorf("no subscription resolver found for field %s", field.Name)
	}
	info := ResolveInfo{Operation: ast.OperationSubscription, FieldName: field.Name, Field: field}
	res, err := resolver(ctx, info, buildArgs(field, variables))
	if err != nil {
		return nil, err
	}
	switch ch := res.(type) {
	case <-chan interface{}:
		return ch, nil
	case chan interface{}:
		return ch, nil
	}
	return nil, fmt.Errorf("subscription resolver for field %s did not return a channel", field.Name)
}

// resolveRoot looks up and executes the resolver for a top-level field.
func (e *Executor) resolveRoot(ctx context.Context, operation string, field *ast.Field, variables map[string]interface{}) (interface{}, error) {
	resolver, ok := e.lookup(operation, field.Name)
	if !ok {
		return nil, fmt.Errorf("no %s resolver found for field %s", operation, field.Name)
	}
	info := ResolveInfo{Operation: operation, FieldName: field.Name, Field: field}
	return resolver(ctx, info, buildArgs(field, variables))
}

// executeSelectionSet resolves a sub-selection against a non-root value.
func executeSelectionSet(source interface{}, ss *ast.SelectionSet) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for _, sel := range ss.Selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		res, err := resolveMember(source, field)
		if err != nil {
			return nil, err
		}
		if field.SelectionSet != nil {
			res, err = resolveNestedSelection(res, field.SelectionSet)
			if err != nil {
				return nil, err
			}
		}
		result[field.ResponseKey()] = res
	}
	return result, nil
}

// resolveMember reads a field from a map or, through reflection, a struct.
// Missing map keys resolve to nil.
func resolveMember(source interface{}, field *ast.Field) (interface{}, error) {
	if m, ok := source.(map[string]interface{}); ok {
		return m[field.Name], nil
	}
	return reflectResolve(source, field)
}

// reflectResolve uses reflection to find a field value on a source struct.
func reflectResolve(source interface{}, field *ast.Field) (interface{}, error) {
	val := reflect.ValueOf(source)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil, fmt.Errorf("source is nil")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot select %s on %s", field.Name, val.Kind())
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if strings.EqualFold(tagName, field.Name) {
				return val.Field(i).Interface(), nil
			}
		}
		if strings.EqualFold(sf.Name, field.Name) {
			return val.Field(i).Interface(), nil
		}
	}

	return nil, fmt.Errorf("no resolver found for field %s via reflection", field.Name)
}

// resolveNestedSelection handles nested selection sets for maps, structs
// and slices of either.
func resolveNestedSelection(res interface{}, ss *ast.SelectionSet) (interface{}, error) {
	if res == nil {
		return nil, nil
	}
	if m, ok := res.(map[string]interface{}); ok {
		if m == nil {
			return nil, nil
		}
		return executeSelectionSet(m, ss)
	}
	val := reflect.ValueOf(res)
	switch val.Kind() {
	case reflect.Ptr:
		if val.IsNil() {
			return nil, nil
		}
		if val.Elem().Kind() == reflect.Struct {
			return executeSelectionSet(res, ss)
		}
	case reflect.Struct:
		return executeSelectionSet(res, ss)
	case reflect.Slice:
		arr := make([]interface{}, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			sub, err := resolveNestedSelection(val.Index(i).Interface(), ss)
			if err != nil {
				return nil, err
			}
			arr = append(arr, sub)
		}
		return arr, nil
	}
	return res, nil
}

// withDefaults returns a copy of variables with unsupplied entries filled
// from their declared default values.
func withDefaults(op *ast.OperationDefinition, variables map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(variables))
	for k, v := range variables {
		out[k] = v
	}
	for _, def := range op.VariableDefinitions {
		if _, ok := out[def.Variable]; !ok && def.DefaultValue != nil {
			out[def.Variable] = buildValue(def.DefaultValue, out)
		}
	}
	return out
}

// buildArgs constructs a map of argument names to values. Arguments bound to
// unset variables are left out so resolvers can tell "absent" from "null".
func buildArgs(field *ast.Field, variables map[string]interface{}) map[string]interface{} {
	args := make(map[string]interface{})
	for _, arg := range field.Arguments {
		if arg.Value == nil {
			continue
		}
		if arg.Value.Kind == ast.KindVariable {
			if _, ok := variables[arg.Value.Literal]; !ok {
				continue
			}
		}
		args[arg.Name] = buildValue(arg.Value, variables)
	}
	return args
}

// buildValue converts an AST Value to a Go value.
func buildValue(val *ast.Value, variables map[string]interface{}) interface{} {
	switch val.Kind {
	case ast.KindVariable:
		return variables[val.Literal]
	case ast.KindInt:
		i, err := strconv.Atoi(val.Literal)
		if err != nil {
			return 0
		}
		return i
	case ast.KindFloat:
		f, err := strconv.ParseFloat(val.Literal, 64)
		if err != nil {
			return 0.0
		}
		return f
	case ast.KindString, ast.KindEnum:
		return val.Literal
	case ast.KindBoolean:
		return val.Literal == "true"
	case ast.KindNull:
		return nil
	case ast.KindObject:
		m := make(map[string]interface{}, len(val.ObjectFields))
		for key, fieldVal := range val.ObjectFields {
			m[key] = buildValue(fieldVal, variables)
		}
		return m
	case ast.KindArray:
		arr := make([]interface{}, 0, len(val.List))
		for _, elem := range val.List {
			arr = append(arr, buildValue(elem, variables))
		}
		return arr
	default:
		return val.Literal
	}
}

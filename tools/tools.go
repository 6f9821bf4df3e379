// Package tools maintains the mapping from tool names to their callables
// and parameter schemas. The registry is built once at startup from the
// builtin sources (and any MCP servers) and then handed to agents as an
// immutable snapshot; hot-reload means building a new snapshot.
package tools

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/travofoz/T-5000/errors"
)

// Schema types recognized by the translators.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
	TypeAny     = "any"
)

// Param describes one parameter of a tool.
type Param struct {
	Type        string
	Description string
	Required    bool
	Default     interface{}
	Items       *Param // element schema when Type is array
}

// Schema is the provider-agnostic declaration of a tool: a description and
// a named parameter map. It is produced once at registration time and
// read-only afterward.
type Schema struct {
	Description string
	Parameters  map[string]Param
}

// Func is the call contract every tool implements: keyword-style arguments
// in, a string out. Tools signal failure by returning an error or by
// prefixing the returned string with "Error:"; the dispatcher treats a
// returned string as success content either way.
type Func func(ctx context.Context, args map[string]interface{}) (string, error)

// Definition binds a tool name to its callable and schema. Args may hold a
// prototype struct from which parameters are inferred when Parameters is
// left nil at registration.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]Param
	Args        interface{}
	Run         Func
}

// Schema returns the tool's declaration.
func (d Definition) Schema() Schema {
	return Schema{Description: d.Description, Parameters: d.Parameters}
}

// Registry is an immutable name-to-definition snapshot.
type Registry struct {
	defs map[string]Definition
}

// Lookup fetches a definition by name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Schemas returns the declarations of every registered tool.
func (r *Registry) Schemas() map[string]Schema {
	out := make(map[string]Schema, len(r.defs))
	for name, d := range r.defs {
		out[name] = d.Schema()
	}
	return out
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.defs) }

// Builder collects tool registrations before the registry is frozen.
type Builder struct {
	defs map[string]Definition
}

// NewBuilder creates an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{defs: make(map[string]Definition)}
}

// Register adds a tool definition. A missing description falls back to a
// generic one; missing parameters are inferred from the Args prototype when
// present. A tool whose schema cannot be inferred registers with empty
// parameters rather than failing the discovery pass. Re-registering an
// existing name overwrites it with a warning, which keeps hot-reload
// workflows possible.
func (b *Builder) Register(def Definition) {
	if def.Name == "" || def.Run == nil {
		fmt.Printf("Warning: skipping tool registration with empty name or nil callable.\n")
		return
	}
	if _, exists := b.defs[def.Name]; exists {
		fmt.Printf("Warning: tool '%s' is being re-registered. Overwriting previous definition.\n", def.Name)
	}
	if def.Description == "" {
		def.Description = fmt.Sprintf("Executes the %s operation.", def.Name)
	}
	if def.Parameters == nil && def.Args != nil {
		params, err := InferSchema(def.Args)
		if err != nil {
			fmt.Printf("Warning: could not infer schema for tool '%s': %v. Registering with empty parameters.\n", def.Name, err)
			params = map[string]Param{}
		}
		def.Parameters = params
	}
	if def.Parameters == nil {
		def.Parameters = map[string]Param{}
	}
	b.defs[def.Name] = def
}

// Snapshot freezes the collected registrations into an immutable registry.
func (b *Builder) Snapshot() *Registry {
	defs := make(map[string]Definition, len(b.defs))
	for name, d := range b.defs {
		defs[name] = d
	}
	return &Registry{defs: defs}
}

// InferSchema derives a parameter map from a prototype struct: each
// exported field becomes one parameter named after its json tag, typed by
// the nearest schema type for its Go kind. Pointer fields and fields tagged
// omitempty are optional; everything else is required.
func InferSchema(prototype interface{}) (map[string]Param, error) {
	t := reflect.TypeOf(prototype)
	if t == nil {
		return nil, errors.New("nil prototype")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.New("prototype must be a struct, got %s", t.Kind())
	}

	params := make(map[string]Param)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.ToLower(field.Name)
		optional := false
		if tag, ok := field.Tag.Lookup("json"); ok {
			pieces := strings.Split(tag, ",")
			if pieces[0] == "-" {
				continue
			}
			if pieces[0] != "" {
				name = pieces[0]
			}
			for _, opt := range pieces[1:] {
				if opt == "omitempty" {
					optional = true
				}
			}
		}

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			optional = true
			ft = ft.Elem()
		}

		p := Param{
			Type:        schemaType(ft),
			Description: fmt.Sprintf("%s parameter", name),
			Required:    !optional,
		}
		if desc, ok := field.Tag.Lookup("desc"); ok {
			p.Description = desc
		}
		if p.Type == TypeArray {
			p.Items = &Param{Type: schemaType(ft.Elem())}
		}
		params[name] = p
	}
	return params, nil
}

func schemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Bool:
		return TypeBoolean
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	case reflect.Interface:
		return TypeAny
	default:
		return TypeString
	}
}

// StringArg extracts a required string argument from a tool's args map.
func StringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", errors.New("missing or invalid '%s' argument", key)
	}
	return v, nil
}

// isPathRestricted checks if a path matches any of the glob patterns. An
// invalid pattern is logged and matches nothing.
func isPathRestricted(path string, patterns []string) bool {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			fmt.Printf("Warning: invalid glob pattern in filesystem access '%s': %v\n", pattern, err)
			continue
		}
		if match {
			return true
		}
	}
	return false
}

// isCommandAllowed checks if a command matches the allow-list, treating
// each entry as a regular expression with a plain-string fallback when the
// pattern does not compile.
func isCommandAllowed(command string, allowed []string) bool {
	if len(strings.Fields(command)) == 0 {
		return false
	}
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			fmt.Printf("Warning: invalid regex in allowed_commands '%s': %v\n", pattern, err)
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

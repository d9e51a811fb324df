// Package schema binds the fields of an SDL "type Mutation" to dispatch
// handlers. The flavor of each mutation comes from a field directive
// (@configure, @configfile, @image, @prefix(verbs: [...])) or, failing that,
// from the first matching name rule.
package schema

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/zyedidia/glob"

	"github.com/Protocol-Lattice/configql/ast"
	"github.com/Protocol-Lattice/configql/dispatch"
	"github.com/Protocol-Lattice/configql/lexer"
	"github.com/Protocol-Lattice/configql/parser"
)

// MutationType is the schema type whose fields are bound.
const MutationType = "Mutation"

// Flavors.
const (
	FlavorConfigure  = "configure"
	FlavorConfigFile = "configfile"
	FlavorImage      = "image"
	FlavorPrefix     = "prefix"
)

var directiveFlavors = map[string]string{
	"configure":   FlavorConfigure,
	"configfile":  FlavorConfigFile,
	"image":       FlavorImage,
	"systemimage": FlavorImage,
	"prefix":      FlavorPrefix,
}

// Rule assigns a flavor to mutations whose name matches Pattern.
type Rule struct {
	Pattern  string   `yaml:"pattern"`
	Flavor   string   `yaml:"flavor"`
	Prefixes []string `yaml:"prefixes,omitempty"` // verbs for FlavorPrefix
}

// Options controls Bind.
type Options struct {
	Rules []Rule
	// SkipInvalid logs and skips mutations that cannot be bound instead of
	// failing the whole schema.
	SkipInvalid bool
	Logger      logrus.FieldLogger
}

// Binder is the part of dispatch.Factory Bind needs.
type Binder interface {
	MakeConfigureResolver(mutation string) (*dispatch.Handler, error)
	MakeConfigFileResolver(mutation string) (*dispatch.Handler, error)
	MakeImageResolver(mutation string) (*dispatch.Handler, error)
	MakePrefixResolver(mutation string, prefixes ...dispatch.Verb) (*dispatch.Handler, error)
}

// BindError lists every mutation that failed to bind.
type BindError struct {
	Errs []error
}

func (e *BindError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "schema: " + strings.Join(msgs, "; ")
}

// Parse parses SDL source, failing on any syntax error.
func Parse(src string) (*ast.Document, error) {
	p := parser.New(lexer.New(src))
	doc := p.ParseDocument()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errors.Errorf("parse schema: %s", strings.Join(errs, "; "))
	}
	return doc, nil
}

// Load reads and parses an SDL file.
func Load(path string) (*ast.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema")
	}
	doc, err := Parse(string(src))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return doc, nil
}

type compiledRule struct {
	Rule
	g *glob.Glob
}

// Bind registers a handler for every field of "type Mutation" in doc and
// returns them in schema order.
func Bind(doc *ast.Document, b Binder, opts Options) ([]*dispatch.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	rules, err := compileRules(opts.Rules)
	if err != nil {
		return nil, err
	}
	mutation := doc.TypeDefinition(MutationType)
	if mutation == nil {
		return nil, errors.Errorf("schema: no type %s", MutationType)
	}

	var (
		handlers []*dispatch.Handler
		errs     []error
	)
	for _, field := range mutation.Fields {
		h, err := bindField(field, b, rules)
		if err != nil {
			err = errors.Wrapf(err, "mutation %s", field.Name)
			if opts.SkipInvalid {
				log.WithError(err).Warn("skipping mutation")
				continue
			}
			errs = append(errs, err)
			continue
		}
		log.WithFields(logrus.Fields{
			"mutation": h.Mutation,
			"command":  h.CommandID,
			"verb":     h.Verb,
		}).Info("bound mutation")
		handlers = append(handlers, h)
	}
	if len(errs) > 0 {
		return handlers, &BindError{Errs: errs}
	}
	return handlers, nil
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		if _, ok := directiveFlavors[r.Flavor]; !ok {
			return nil, errors.Errorf("schema: rule %q has unknown flavor %q", r.Pattern, r.Flavor)
		}
		g, err := glob.Compile(r.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "schema: rule pattern %q", r.Pattern)
		}
		out = append(out, compiledRule{Rule: r, g: g})
	}
	return out, nil
}

func bindField(field *ast.FieldDefinition, b Binder, rules []compiledRule) (*dispatch.Handler, error) {
	for _, d := range field.Directives {
		flavor, ok := directiveFlavors[d.Name]
		if !ok {
			continue
		}
		var prefixes []string
		if flavor == FlavorPrefix {
			var err error
			if prefixes, err = verbsArgument(&d); err != nil {
				return nil, err
			}
		}
		return bindFlavor(field.Name, flavor, prefixes, b)
	}
	for _, r := range rules {
		if r.g.MatchString(field.Name) {
			return bindFlavor(field.Name, directiveFlavors[r.Flavor], r.Prefixes, b)
		}
	}
	return nil, errors.New("no dispatch directive or rule")
}

func bindFlavor(name, flavor string, prefixes []string, b Binder) (*dispatch.Handler, error) {
	switch flavor {
	case FlavorConfigure:
		return b.MakeConfigureResolver(name)
	case FlavorConfigFile:
		return b.MakeConfigFileResolver(name)
	case FlavorImage:
		return b.MakeImageResolver(name)
	}
	if len(prefixes) == 0 {
		return nil, errors.New("prefix flavor needs at least one verb")
	}
	verbs := make([]dispatch.Verb, len(prefixes))
	for i, p := range prefixes {
		verbs[i] = dispatch.Verb(p)
	}
	return b.MakePrefixResolver(name, verbs...)
}

// verbsArgument reads @prefix(verbs: ["a", "b"]) or @prefix(verbs: "a").
func verbsArgument(d *ast.Directive) ([]string, error) {
	v := d.Argument("verbs")
	if v == nil {
		return nil, errors.New("@prefix requires a verbs argument")
	}
	switch v.Kind {
	case ast.KindString, ast.KindEnum:
		return []string{v.Literal}, nil
	case ast.KindArray:
		out := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if item.Kind != ast.KindString && item.Kind != ast.KindEnum {
				return nil, errors.Errorf("@prefix verbs must be strings, got %s", item.Kind)
			}
			out = append(out, item.Literal)
		}
		return out, nil
	}
	return nil, errors.Errorf("@prefix verbs must be a list, got %s", v.Kind)
}

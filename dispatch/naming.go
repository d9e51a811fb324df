package dispatch

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gobuffalo/flect"

	"github.com/Protocol-Lattice/configql/session"
)

// Verb selects the method invoked on a command.
type Verb string

// Built-in verbs.
const (
	Configure Verb = session.VerbConfigure
	Save      Verb = session.VerbSave
	Load      Verb = session.VerbLoad
	Add       Verb = session.VerbAdd
	Delete    Verb = session.VerbDelete
)

// Prefix sets used by the two concrete prefix flavors.
var (
	ConfigFilePrefixes = []Verb{Save, Load}
	ImagePrefixes      = []Verb{Add, Delete}
)

// SplitPrefix derives (command identifier, verb) from a mutation name.
//
// The prefixes are first tried in order against the name as capitalized
// substrings: the first whose capitalized form occurs anywhere in the name
// wins, and that first occurrence is removed, so "configSaveState" splits
// into ("configState", save). Failing that, the first prefix the name starts
// with, followed by an upper-case rune, wins and is cut off, so
// "saveConfigFile" splits into ("ConfigFile", save).
func SplitPrefix(mutation string, prefixes []Verb) (string, Verb, error) {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		capitalized := flect.Capitalize(string(p))
		if strings.Contains(mutation, capitalized) {
			return strings.Replace(mutation, capitalized, "", 1), p, nil
		}
	}
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(mutation, string(p)); ok && startsUpper(rest) {
			return rest, p, nil
		}
	}
	return "", "", &DispatchError{Mutation: mutation, Prefixes: prefixes}
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// ModuleName is the snake_case form of a command identifier, e.g.
// "ConfigFile" -> "config_file".
func ModuleName(commandID string) string {
	return flect.Underscore(commandID)
}

// ResolverName is the debug name attached to a generated handler.
func ResolverName(commandID string) string {
	return "resolve_" + ModuleName(commandID)
}

// method finds the verb's method on cmd. Built-in verbs map to the
// session verb interfaces; any verb may also be served by a session.Invoker.
func (v Verb) method(commandID string, cmd interface{}) (func(context.Context) (interface{}, error), error) {
	switch v {
	case Configure:
		if c, ok := cmd.(session.Configurer); ok {
			return c.Configure, nil
		}
	case Save:
		if c, ok := cmd.(session.Saver); ok {
			return c.Save, nil
		}
	case Load:
		if c, ok := cmd.(session.Loader); ok {
			return c.Load, nil
		}
	case Add:
		if c, ok := cmd.(session.Adder); ok {
			return c.Add, nil
		}
	case Delete:
		if c, ok := cmd.(session.Deleter); ok {
			return c.Delete, nil
		}
	}
	if inv, ok := cmd.(session.Invoker); ok {
		verb := string(v)
		return func(ctx context.Context) (interface{}, error) {
			return inv.Invoke(ctx, verb)
		}, nil
	}
	return nil, &MethodError{Command: commandID, Verb: v}
}

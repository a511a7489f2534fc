// Package genutil provides the small name-derivation helpers shared by
// gen/server and gen/client for turning an interface name or a member
// symbol into the Go identifiers of the generated stubs.
package genutil

import "strings"

// LastSegment returns the final "."-separated component of a D-Bus
// interface name, e.g. "org.example.Foo" -> "Foo".
func LastSegment(interfaceName string) string {
	parts := strings.Split(interfaceName, ".")
	return parts[len(parts)-1]
}

// ServerTypeName makes the name of the generated server-side dispatch
// type for an interface, e.g. "org.example.Foo" -> "FooServer".
func ServerTypeName(interfaceName string) string {
	return LastSegment(interfaceName) + "Server"
}

// ClientTypeName makes the name of the generated client-side proxy type
// for an interface, e.g. "org.example.Foo" -> "FooClient".
func ClientTypeName(interfaceName string) string {
	return LastSegment(interfaceName) + "Client"
}

// ExportedIdentifier converts a lowercase-with-underscores symbol (the
// form derived by introspect.deriveSymbol, or supplied verbatim via a
// Symbol annotation) into an exported Go identifier, e.g.
// "get_widget_by_id" -> "GetWidgetByID".
//
// Components listed in the initialisms table (id, url, http and a few
// more) are upper-cased wherever they appear, to match
// the convention Go's own style guide and linters expect, mirroring the
// handful of special cases the standard library's own generators special-
// case (e.g. net/http's use of "ID" over "Id").
func ExportedIdentifier(symbol string) string {
	parts := strings.Split(symbol, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if up, ok := initialisms[p]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

var initialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"http": "HTTP",
	"api":  "API",
	"uuid": "UUID",
	"fd":   "FD",
}

// FullInterfaceName returns the interface name unchanged: in the Go
// target it is emitted as-is, as the string constant the generated
// dispatch table matches against, rather than translated into a C++
// namespace path the way the original generator's MakeFullItfName did.
func FullInterfaceName(interfaceName string) string { return interfaceName }

// NameSpaces extracts the namespace components of a dotted interface
// name, e.g. "org.example.Foo" -> ["org", "example"].
func NameSpaces(interfaceName string) []string {
	parts := strings.Split(interfaceName, ".")
	return parts[:len(parts)-1]
}

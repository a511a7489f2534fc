package dialect

import "fmt"

// Go is the only Descriptor this generator ships: it targets the Go
// runtime support package dbusrt.
type Go struct {
	// RTPackage is the import-qualified package name dbusrt is imported
	// under in generated files, normally "dbusrt".
	RTPackage string
}

// NewGo returns the default Go dialect, importing the runtime package
// under its conventional name.
func NewGo() Go { return Go{RTPackage: "dbusrt"} }

func (g Go) Package() string { return g.RTPackage }

func (g Go) RuntimeType(name string) string {
	return g.RTPackage + "." + name
}

func (g Go) NoMemoryError() string {
	return g.RTPackage + ".ErrNoMemory"
}

func (g Go) TypeMismatchError(expected, got string) string {
	return fmt.Sprintf("&%s.TypeMismatchError{Expected: %q, Got: %q}", g.RTPackage, expected, got)
}

func (g Go) IterType() string {
	return "*" + g.RTPackage + ".Iter"
}

// File: api/event.go
// Author: momentics <momentics@gmail.com>
//
// Advisory parameter descriptors for event tasks.
// The core never marshals or type-checks against these; they exist so
// Control.Stats() and introspection tooling can describe a declared event's
// expected signature, mirroring the original SilcParam vector's role.

package api

// ParamKind names the advisory type of one positional argument a signaller
// is expected to pass to an event.
type ParamKind int

const (
	ParamAny ParamKind = iota
	ParamInt
	ParamUint
	ParamString
	ParamBuffer
	ParamBool
)

func (p ParamKind) String() string {
	switch p {
	case ParamInt:
		return "int"
	case ParamUint:
		return "uint"
	case ParamString:
		return "string"
	case ParamBuffer:
		return "buffer"
	case ParamBool:
		return "bool"
	default:
		return "any"
	}
}

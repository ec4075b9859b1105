// Package iocli is the terminal prompt layer used by the operator tools.
package iocli

// IO abstracts the console so commands can be driven from tests.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

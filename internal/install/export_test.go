package install

// SetExecutable swaps the binary locator and returns a restore func.
// This file only compiles during `go test`.
func SetExecutable(fn func() (string, error)) (restore func()) {
	prev := executable
	executable = fn
	return func() { executable = prev }
}

//go:build !debug_gpucore

package metadata

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_gpucore build tag is present
func DebugValidate(validatable Validatable) {
}

package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// ErrValidation is returned by Validate when the WGSL module is rejected.
var ErrValidation = errors.New("shader: validation failed")

// Validate parses, lowers and validates a pre-processed WGSL source with naga. It catches
// malformed kernels on backends that never hand the source to a WebGPU device.
//
// Parameters:
//   - source: processed WGSL (see Shader.Source)
//
// Returns:
//   - error: wraps ErrValidation with the first reported problem, or nil
func Validate(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrValidation, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("%w: lower: %v", ErrValidation, err)
	}
	issues, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.Error())
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return nil
}

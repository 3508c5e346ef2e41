package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithDefine sets the value emitted for an //@oxy:define NAME annotation.
//
// Parameters:
//   - name: the constant name
//   - value: the u32 value substituted into the generated const declaration
//
// Returns:
//   - ShaderBuilderOption: a function that records the define
func WithDefine(name string, value uint32) ShaderBuilderOption {
	return func(s *shader) {
		s.defines[name] = value
	}
}

package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for compute pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	defines map[string]uint32
	pp      PreProcessor
}

// Shader defines the interface for a pre-processed and parsed WGSL compute shader. It exposes the
// shader's unique key, processed source code, entry point, bind group layout descriptors, workgroup
// size, and pre-processor declarations needed for pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader with all annotations expanded
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a specific group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names for all bind groups.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// EntryPoint returns the @compute entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the @workgroup_size dimensions, defaulting to [1, 1, 1]
	// when the attribute is absent.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this shader, which is built from the NewShader function.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Declarations returns the group and provider annotations parsed from the shader source.
	// The cluster system resolves binding indices for each buffer role from these.
	//
	// Returns:
	//   - []Annotation: group and provider annotations in source order
	Declarations() []Annotation

	// BindingForRole looks up the binding index declared for a variable name or provider
	// identity within group 0.
	//
	// Parameters:
	//   - role: the var name of a group annotation or the identity of a provider annotation
	//
	// Returns:
	//   - int: the binding index
	//   - bool: true if a declaration matched
	BindingForRole(role string) (int, bool)
}

var _ Shader = &shader{}

// NewShader creates a new compute Shader from raw annotated WGSL source. The source is
// pre-processed (struct includes, defines, group declarations), then parsed for its entry
// point, workgroup size and bind group layouts.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - source: the raw WGSL source containing @oxy: annotations
//   - options: ShaderBuilderOption values (e.g. WithDefine)
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or no @compute entry point exists
func NewShader(key string, source string, options ...ShaderBuilderOption) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader: %s has no source", key)
	}
	s := &shader{
		key:                        key,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		workGroupSize:              [3]uint32{1, 1, 1},
		defines:                    make(map[string]uint32),
	}
	for _, opt := range options {
		opt(s)
	}
	s.pp = NewPreProcessor(s.defines)

	if err := s.parseSource(source); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

func (s *shader) BindingForRole(role string) (int, bool) {
	for _, d := range s.pp.Declarations() {
		if d.Group == nil || *d.Group != 0 {
			continue
		}
		switch d.Type {
		case AnnotationTypeBindingGroup:
			if string(d.Args[1]) == role {
				return *d.Binding, true
			}
		case AnnotationTypeProvider:
			if string(d.Args[0]) == role {
				return *d.Binding, true
			}
		}
	}
	return -1, false
}

// parseSource runs the pre-processor, builds the shader module descriptor, and extracts
// the entry point, workgroup size and bind group layouts from the expanded source.
func (s *shader) parseSource(raw string) error {
	var err error
	s.source, err = s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("shader: failed to pre-process %s: %w", s.key, err)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source)
	if s.entryPoint == "" {
		return fmt.Errorf("shader: %s has no @compute entry point", s.key)
	}
	s.workGroupSize = parseWorkgroupSize(s.source)
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, wgpu.ShaderStageCompute)
	return nil
}

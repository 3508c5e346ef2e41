// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for @oxy: annotations, replaces them with generated WGSL declarations
// or injected struct source, and collects a declarations list that the clustered
// lighting system uses to resolve binding indices by role.
//
// The pre-processor maintains three registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL struct sources and their
//     resolved type names. Used by @oxy:include and @oxy:group.
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
//   - defines: maps constant names to the u32 values emitted by @oxy:define.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-lights/engine/light"
)

// registryEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the resolved WGSL type name used in generated @group/@binding declarations.
type registryEntry struct {
	// Source is the raw WGSL struct definition text injected by @oxy:include.
	Source string

	// Type is the WGSL type name emitted in @oxy:group declarations (e.g. "Light", "LightGrid").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	defines              map[string]uint32

	// declarations accumulates group and provider annotations during a Process call.
	// Reset at the start of each Process invocation.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @oxy: annotations,
// replacing them with generated declarations or injected struct sources while collecting
// a declarations list for downstream resource wiring.
type PreProcessor interface {
	// Process takes raw WGSL shader source code and replaces @oxy: annotations with
	// their corresponding WGSL output. Each struct is injected at most once even when
	// several includes name it.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//
	// Returns:
	//   - string: the processed WGSL shader source code with annotations replaced
	//   - error: an error if any annotation is malformed, references an unknown type,
	//     or names an undefined constant
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected during the most
	// recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation

	// Define sets the value emitted for a @oxy:define constant.
	//
	// Parameters:
	//   - name: the constant name
	//   - value: the u32 value
	Define(name string, value uint32)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all lighting struct types and
// address space mappings pre-populated.
//
// Parameters:
//   - defines: initial @oxy:define values (nil safe)
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(defines map[string]uint32) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgLight:                {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgStrictLightData:      {Source: light.GPUStrictLightDataSource, Type: "StrictLightData"},
			AnnotationArgClusterAABB:          {Source: light.GPUClusterAABBSource, Type: "ClusterAABB"},
			AnnotationArgLightGrid:            {Source: light.GPULightGridSource, Type: "LightGrid"},
			AnnotationArgClusterBuildUniforms: {Source: light.GPUClusterBuildUniformsSource, Type: "ClusterBuildUniforms"},
			AnnotationArgLightCullUniforms:    {Source: light.GPULightCullUniformsSource, Type: "LightCullUniforms"},
			AnnotationArgClusterUniforms:      {Source: light.GPUClusterUniformsSource, Type: "ClusterUniforms"},
			AnnotationArgLightCounter:         {Source: light.GPULightCounterSource, Type: "LightCounter"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
		defines: make(map[string]uint32, len(defines)),
	}
	for k, v := range defines {
		p.defines[k] = v
	}
	return p
}

func (p *preProcessor) Define(name string, value uint32) {
	p.defines[name] = value
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			varName := string(a.Args[1])
			var wgslType string
			if inner, ok := strings.CutPrefix(string(a.Args[2]), "array<"); ok {
				inner = strings.TrimSuffix(inner, ">")
				wgslType = fmt.Sprintf("array<%s>", p.structRegistry[AnnotationArg(inner)].Type)
			} else {
				wgslType = p.structRegistry[a.Args[2]].Type
			}

			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, varName, wgslType))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		case annotationTypeDefine:
			name := string(a.Args[0])
			v, ok := p.defines[name]
			if !ok {
				return "", fmt.Errorf("line %d: @oxy:define %q has no value", i+1, name)
			}
			out = append(out, fmt.Sprintf("const %s: u32 = %du;", name, v))
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

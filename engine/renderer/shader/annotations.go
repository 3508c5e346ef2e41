// annotations.go defines the annotation types, argument constants, and parser for the
// Oxy WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @oxy: that drive struct injection, bind group declaration, compile-time constant
// definition, and resource provider registration. The parsed results are stored as
// Annotation values and consumed by the PreProcessor and the clustered lighting system
// to wire GPU resources without manual binding index bookkeeping.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// identRegex matches a valid WGSL identifier for @oxy:define names.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include light
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@oxy:group 0 2 storage_read lights array<light>
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider registers a resource provider identity for a group and binding
	// without generating any WGSL output. The WGSL binding declaration remains hand-written
	// below the annotation. Used for flat arrays of primitives that have no registered struct.
	//
	// Syntax: //@oxy:provider <group> <binding> <provider_identity>
	//
	// Example: //@oxy:provider 0 4 light_indices
	AnnotationTypeProvider AnnotationType = "provider"

	// annotationTypeDefine emits a module-scope u32 constant whose value is supplied by the
	// host through the PreProcessor's define table, so kernel capacities follow runtime
	// configuration.
	//
	// Syntax: //@oxy:define <NAME>
	//
	// Example: //@oxy:define MAX_LIGHTS_PER_CLUSTER
	annotationTypeDefine AnnotationType = "define"
)

// Annotation represents a single parsed @oxy: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "light")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity (e.g. "light_indices")
	//   - define:   [0] = constant name
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source. Used for error reporting.
	Line int

	// Group is the @group index for group and provider annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────
// Each maps to a Go GPU type in engine/light with an embedded .wgsl asset file.

const (
	// AnnotationArgLight identifies the Light struct.
	// Source: engine/light/assets/light.wgsl
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgStrictLightData identifies the StrictLightData struct.
	// Source: engine/light/assets/strict_light_data.wgsl
	AnnotationArgStrictLightData AnnotationArg = "strict_light_data"

	// AnnotationArgClusterAABB identifies the ClusterAABB struct.
	// Source: engine/light/assets/cluster_aabb.wgsl
	AnnotationArgClusterAABB AnnotationArg = "cluster_aabb"

	// AnnotationArgLightGrid identifies the LightGrid struct.
	// Source: engine/light/assets/light_grid.wgsl
	AnnotationArgLightGrid AnnotationArg = "light_grid"

	// AnnotationArgClusterBuildUniforms identifies the ClusterBuildUniforms struct.
	// Source: engine/light/assets/cluster_build_uniforms.wgsl
	AnnotationArgClusterBuildUniforms AnnotationArg = "cluster_build_uniforms"

	// AnnotationArgLightCullUniforms identifies the LightCullUniforms struct.
	// Source: engine/light/assets/light_cull_uniforms.wgsl
	AnnotationArgLightCullUniforms AnnotationArg = "light_cull_uniforms"

	// AnnotationArgClusterUniforms identifies the ClusterUniforms struct.
	// Source: engine/light/assets/cluster_uniforms.wgsl
	AnnotationArgClusterUniforms AnnotationArg = "cluster_uniforms"

	// AnnotationArgLightCounter identifies the LightCounter struct.
	// Source: engine/light/assets/light_counter.wgsl
	AnnotationArgLightCounter AnnotationArg = "light_counter"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// ── Provider identity arguments ───────────────────────────────────────────────

const (
	// AnnotationArgLightIndices identifies the flat light index buffer.
	AnnotationArgLightIndices AnnotationArg = "light_indices"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgLight,
	AnnotationArgStrictLightData,
	AnnotationArgClusterAABB,
	AnnotationArgLightGrid,
	AnnotationArgClusterBuildUniforms,
	AnnotationArgLightCullUniforms,
	AnnotationArgClusterUniforms,
	AnnotationArgLightCounter,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
	annotationArgStorageTypeReadWrite,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgLightIndices,
}

// parseAnnotation attempts to parse a single WGSL source line as an @oxy: annotation.
// Lines without the prefix return (nil, nil).
//
// Parameters:
//   - line: a single line of WGSL source
//   - lineNum: the 1-based line number used in error messages
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: an error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires <group> <binding> <address_space> <var_name> <type>", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		typeKey := args[5]
		if inner, ok := strings.CutPrefix(typeKey, "array<"); ok {
			typeKey = strings.TrimSuffix(inner, ">")
		}
		if !slices.Contains(validStructTypes, AnnotationArg(typeKey)) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case AnnotationTypeProvider:
		if len(args) != 4 {
			return nil, fmt.Errorf("line %d: @oxy provider annotation requires <group> <binding> <provider_identity>", lineNum)
		}
		group, binding, err := parseGroupBinding(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    []AnnotationArg{AnnotationArg(args[3])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil

	case annotationTypeDefine:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy define annotation requires exactly one argument", lineNum)
		}
		if !identRegex.MatchString(args[1]) {
			return nil, fmt.Errorf("line %d: invalid constant name %q in @oxy define annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeDefine, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	}

	return nil, fmt.Errorf("line %d: unknown annotation type %q", lineNum, args[0])
}

// parseGroupBinding parses the group and binding indices of a group or provider annotation.
func parseGroupBinding(groupStr, bindingStr string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupStr)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group index %q", lineNum, groupStr)
	}
	binding, err := strconv.Atoi(bindingStr)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding index %q", lineNum, bindingStr)
	}
	return group, binding, nil
}

package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// scalarLayout is the layout of every 32-bit host-shareable scalar the lighting kernels use.
var scalarLayout = wgslTypeLayout{size: 4, align: 4}

// alignUp rounds v up to a multiple of the power-of-two a.
func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}

// stride is the distance between consecutive array elements of layout l.
func (l wgslTypeLayout) stride() uint64 {
	return alignUp(l.size, l.align)
}

// layoutResolver computes buffer layouts for the structs of one WGSL module. Structs are
// resolved on first use, so declaration order does not matter.
type layoutResolver struct {
	structs  map[string][]parsedField
	resolved map[string]wgslTypeLayout
	visiting map[string]bool
}

func newLayoutResolver(structs []parsedStruct) *layoutResolver {
	r := &layoutResolver{
		structs:  make(map[string][]parsedField, len(structs)),
		resolved: make(map[string]wgslTypeLayout, len(structs)),
		visiting: make(map[string]bool),
	}
	for _, s := range structs {
		r.structs[s.name] = s.fields
	}
	return r
}

// layout resolves a WGSL type to its size and alignment. A runtime-sized array resolves
// to a single element, which is the smallest buffer a binding of it accepts.
//
// Parameters:
//   - typeName: a scalar, vector, mat4x4, atomic, array or struct type name
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false if the type is not host-shareable or not known
func (r *layoutResolver) layout(typeName string) (wgslTypeLayout, bool) {
	typeName = strings.TrimSpace(typeName)
	switch typeName {
	case "f32", "i32", "u32":
		return scalarLayout, true
	}

	if inner, ok := templateArgs(typeName, "atomic"); ok {
		return r.layout(inner)
	}
	if l, ok := vectorLayout(typeName); ok {
		return l, true
	}
	if inner, ok := templateArgs(typeName, "mat4x4"); ok && inner == "f32" {
		return wgslTypeLayout{size: 64, align: 16}, true
	}
	if inner, ok := templateArgs(typeName, "array"); ok {
		return r.arrayLayout(inner)
	}
	return r.structLayout(typeName)
}

// arrayLayout resolves the template arguments of array<T> or array<T, N>.
func (r *layoutResolver) arrayLayout(args string) (wgslTypeLayout, bool) {
	parts := splitTopLevel(args)
	elem, ok := r.layout(parts[0])
	if !ok {
		return wgslTypeLayout{}, false
	}
	count := uint64(1)
	if len(parts) == 2 {
		n, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(parts[1]), "u"), 10, 64)
		if err != nil || n == 0 {
			return wgslTypeLayout{}, false
		}
		count = n
	}
	return wgslTypeLayout{size: count * elem.stride(), align: elem.align}, true
}

// structLayout places each member at the next offset aligned for it and rounds the total
// up to the widest member alignment.
func (r *layoutResolver) structLayout(name string) (wgslTypeLayout, bool) {
	if l, ok := r.resolved[name]; ok {
		return l, true
	}
	fields, ok := r.structs[name]
	if !ok || r.visiting[name] {
		return wgslTypeLayout{}, false
	}
	r.visiting[name] = true
	defer delete(r.visiting, name)

	var offset uint64
	align := uint64(1)
	for _, f := range fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := r.layout(f.typeName)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = alignUp(offset, fl.align) + fl.size
		align = max(align, fl.align)
	}

	l := wgslTypeLayout{size: alignUp(offset, align), align: align}
	r.resolved[name] = l
	return l, true
}

// vectorLayout handles vecN<T> and the vecNf / vecNi / vecNu aliases of 32-bit scalars.
// vec3 takes the alignment of vec4.
func vectorLayout(typeName string) (wgslTypeLayout, bool) {
	if len(typeName) < 4 || !strings.HasPrefix(typeName, "vec") {
		return wgslTypeLayout{}, false
	}
	n := uint64(typeName[3] - '0')
	if n < 2 || n > 4 {
		return wgslTypeLayout{}, false
	}
	switch rest := typeName[4:]; rest {
	case "f", "i", "u", "<f32>", "<i32>", "<u32>":
	default:
		return wgslTypeLayout{}, false
	}
	align := uint64(8)
	if n > 2 {
		align = 16
	}
	return wgslTypeLayout{size: n * scalarLayout.size, align: align}, true
}

// templateArgs returns the text between the outer angle brackets of name<...>.
func templateArgs(typeName, name string) (string, bool) {
	if !strings.HasPrefix(typeName, name+"<") || !strings.HasSuffix(typeName, ">") {
		return "", false
	}
	return strings.TrimSpace(typeName[len(name)+1 : len(typeName)-1]), true
}

// classifyResource creates the layout entry for a buffer declared in the given address
// space. Handle types (textures, samplers) are left unclassified; no lighting kernel binds one.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier (e.g. "uniform", "storage, read_write")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a layout entry for the resource
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasSuffix(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	}
	return entry
}

// stripComments removes // line comments and nested /* */ block comments in one pass.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch pair := source[i : i+2]; {
			case pair == "/*":
				depth++
				i++
				continue
			case pair == "*/" && depth > 0:
				depth--
				i++
				continue
			case pair == "//" && depth == 0:
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitTopLevel splits s at commas outside template brackets, so the members of a struct
// body or the arguments of array<vec4<f32>, 2> split where they should.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

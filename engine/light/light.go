package light

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypePoint represents a light that emits in all directions from a position.
	// Its influence is bounded by a sphere of the light's radius.
	LightTypePoint LightType = iota

	// LightTypeSpot represents a light that emits in a cone from a position. For
	// clustering purposes it is bounded by the same sphere as a point light.
	LightTypeSpot
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType    LightType
	position     mgl32.Vec3
	color        mgl32.Vec3
	radius       float32
	fade         float32
	dimmer       float32
	enabled      bool
	portalStrict bool
	rooms        []RoomID
	castsShadows bool
	shadowSlot   uint32
}

// Light defines the interface for a dynamic light supplied by the host scene.
//
// A frame's light snapshot is a slice of Lights. The clustered lighting system
// reads each light once per frame, filters degenerate entries and packs the rest
// into GPU records; it never mutates the light.
//
// Portal-strict lights are confined to the rooms returned by Rooms and are only
// ever visible to interior draws in one of those rooms. Lights that are not
// portal-strict are globally visible.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type (point or spot)
	Type() LightType

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: position as (x, y, z)
	Position() mgl32.Vec3

	// Color returns the diffuse RGB color of the light before fade and dimming.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Radius returns the radius of the light's bounding sphere. Beyond this
	// distance the light contributes nothing.
	//
	// Returns:
	//   - float32: the radius in world units
	Radius() float32

	// Fade returns the scene fade factor in [0, 1] applied to the color.
	//
	// Returns:
	//   - float32: the fade factor
	Fade() float32

	// Dimmer returns the level-of-detail dimmer in [0, 1] applied to the color.
	//
	// Returns:
	//   - float32: the dimmer factor
	Dimmer() float32

	// Enabled returns whether this light is active for rendering.
	// Disabled lights are skipped before upload.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// PortalStrict returns whether the light is confined to its rooms.
	//
	// Returns:
	//   - bool: true if the light only affects the rooms returned by Rooms
	PortalStrict() bool

	// Rooms returns the identities of the interior rooms the light affects.
	// Only meaningful for portal-strict lights.
	//
	// Returns:
	//   - []RoomID: the affected rooms
	Rooms() []RoomID

	// CastsShadows returns whether this light samples a shadow mask.
	//
	// Returns:
	//   - bool: true if the light has a shadow
	CastsShadows() bool

	// ShadowSlot returns the index into the external shadow-mask array.
	// Only valid when CastsShadows is true.
	//
	// Returns:
	//   - uint32: the shadow slot index
	ShadowSlot() uint32

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetColor sets the diffuse RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetRadius sets the radius of the light's bounding sphere.
	//
	// Parameters:
	//   - radius: the radius in world units
	SetRadius(radius float32)

	// SetFade sets the scene fade factor.
	//
	// Parameters:
	//   - fade: the fade factor
	SetFade(fade float32)

	// SetDimmer sets the level-of-detail dimmer.
	//
	// Parameters:
	//   - dimmer: the dimmer factor
	SetDimmer(dimmer float32)

	// SetEnabled enables or disables the light for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetRooms marks the light portal-strict and confines it to the given rooms.
	// Passing no rooms clears the portal-strict flag.
	//
	// Parameters:
	//   - rooms: the rooms the light affects
	SetRooms(rooms ...RoomID)

	// SetShadow sets whether the light has a shadow and which slot it samples.
	//
	// Parameters:
	//   - castsShadows: true to enable the shadow
	//   - slot: the shadow-mask slot index
	SetShadow(castsShadows bool, slot uint32)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with sensible defaults and
// any provided options applied. Defaults are a white, fully faded-in, undimmed,
// globally visible light of radius 10 at the origin.
//
// Parameters:
//   - lightType: the kind of light to create (point or spot)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: lightType,
		color:     mgl32.Vec3{1, 1, 1},
		radius:    10,
		fade:      1,
		dimmer:    1,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Radius() float32 {
	return l.radius
}

func (l *lightImpl) Fade() float32 {
	return l.fade
}

func (l *lightImpl) Dimmer() float32 {
	return l.dimmer
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) PortalStrict() bool {
	return l.portalStrict
}

func (l *lightImpl) Rooms() []RoomID {
	return l.rooms
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) ShadowSlot() uint32 {
	return l.shadowSlot
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = mgl32.Vec3{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = mgl32.Vec3{r, g, b}
}

func (l *lightImpl) SetRadius(radius float32) {
	l.radius = radius
}

func (l *lightImpl) SetFade(fade float32) {
	l.fade = fade
}

func (l *lightImpl) SetDimmer(dimmer float32) {
	l.dimmer = dimmer
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetRooms(rooms ...RoomID) {
	l.rooms = append(l.rooms[:0], rooms...)
	l.portalStrict = len(l.rooms) > 0
}

func (l *lightImpl) SetShadow(castsShadows bool, slot uint32) {
	l.castsShadows = castsShadows
	l.shadowSlot = slot
}

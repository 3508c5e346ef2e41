package light

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetPosition(x, y, z)
	}
}

// WithColor is an option builder that sets the diffuse RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetColor(r, g, b)
	}
}

// WithRadius is an option builder that sets the radius of the light's bounding sphere.
//
// Parameters:
//   - radius: the radius in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the radius option to a lightImpl
func WithRadius(radius float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.radius = radius
	}
}

// WithFade is an option builder that sets the scene fade factor.
//
// Parameters:
//   - fade: the fade factor in [0, 1]
//
// Returns:
//   - LightBuilderOption: a function that applies the fade option to a lightImpl
func WithFade(fade float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.fade = fade
	}
}

// WithDimmer is an option builder that sets the level-of-detail dimmer.
//
// Parameters:
//   - dimmer: the dimmer factor in [0, 1]
//
// Returns:
//   - LightBuilderOption: a function that applies the dimmer option to a lightImpl
func WithDimmer(dimmer float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.dimmer = dimmer
	}
}

// WithEnabled is an option builder that sets whether the light is active for rendering.
//
// Parameters:
//   - enabled: true to enable the light
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a lightImpl
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithRooms is an option builder that confines the light to the given interior
// rooms, marking it portal-strict.
//
// Parameters:
//   - rooms: the rooms the light affects
//
// Returns:
//   - LightBuilderOption: a function that applies the rooms option to a lightImpl
func WithRooms(rooms ...RoomID) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetRooms(rooms...)
	}
}

// WithShadow is an option builder that gives the light a shadow mask slot.
//
// Parameters:
//   - slot: the index into the external shadow-mask array
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightImpl
func WithShadow(slot uint32) LightBuilderOption {
	return func(l *lightImpl) {
		l.SetShadow(true, slot)
	}
}

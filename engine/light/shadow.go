package light

// MaxShadowSlots is the number of shadow-mask channels a shading pass can sample. Each
// shadow-casting light names one channel through its shadow slot.
const MaxShadowSlots = 4

// ValidShadowSlot reports whether slot addresses a shadow-mask channel.
//
// Parameters:
//   - slot: the light's shadow slot
//
// Returns:
//   - bool: true if slot is below MaxShadowSlots
func ValidShadowSlot(slot uint32) bool {
	return slot < MaxShadowSlots
}

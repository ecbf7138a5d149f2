package netcode

// Coefficient returns the deterministic Galois-field coefficient for
// the combination of repairID and sourceID, c(r,s) = ((r+1)*(s+1)) mod
// 2^w, clamped into the field. It is a pure function of its arguments
// and w: encoder and decoder always compute the same value with no
// side channel (spec §3/§4.E).
func Coefficient(repairID, sourceID uint32, w uint) uint32 {
	mask := uint64(1)<<w - 1
	product := (uint64(repairID) + 1) * (uint64(sourceID) + 1)
	return uint32(product & mask)
}

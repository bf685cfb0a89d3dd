package sui

// Exchange order ids are a 128-bit encoding carrying (isBid, price,
// sequence): the top bit flags the side, the next 63 bits hold price, the
// low 64 bits hold an insertion sequence. Only price and side are exposed
// here since the sequence is opaque to dex-proxy.

const bidFlag = uint64(1) << 63

// EncodeOrderID packs a price and side into the high word of an exchange
// order id, with seq occupying the low word.
func EncodeOrderID(price uint64, side Side, seq uint64) (hi, lo uint64) {
	hi = price &^ bidFlag
	if side == Buy {
		hi |= bidFlag
	}
	return hi, seq
}

// ParsePrice extracts the price component from an order id's high word.
func ParsePrice(hi uint64) uint64 {
	return hi &^ bidFlag
}

// ParseSide extracts the side component from an order id's high word.
func ParseSide(hi uint64) Side {
	if hi&bidFlag != 0 {
		return Buy
	}
	return Sell
}

package sui

import "testing"

func TestEncodeOrderIDRoundTrip(t *testing.T) {
	cases := []struct {
		price uint64
		side  Side
		seq   uint64
	}{
		{price: 100000000000, side: Buy, seq: 1},
		{price: 1, side: Sell, seq: 0},
		{price: 1<<62 - 1, side: Buy, seq: 42},
	}

	for _, c := range cases {
		hi, lo := EncodeOrderID(c.price, c.side, c.seq)
		if got := ParsePrice(hi); got != c.price {
			t.Errorf("ParsePrice(EncodeOrderID(%d, %v, %d)) = %d, want %d", c.price, c.side, c.seq, got, c.price)
		}
		if got := ParseSide(hi); got != c.side {
			t.Errorf("ParseSide(EncodeOrderID(%d, %v, %d)) = %v, want %v", c.price, c.side, c.seq, got, c.side)
		}
		if lo != c.seq {
			t.Errorf("low word = %d, want %d", lo, c.seq)
		}
	}
}

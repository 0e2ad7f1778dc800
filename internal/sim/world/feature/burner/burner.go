package burner

import "factorycraft.ai/internal/sim/inventory"

// State is the fuel charge of one burner. ChargeMs is the burn time left.
type State struct {
	ChargeMs   int64
	LastFuelMs int64
	LastFuel   string
}

// FuelValue returns the burn time of one unit of item, zero for non-fuel.
type FuelValue func(item string) int64

// Tick burns dtMs of charge and, once exhausted, loads one fuel item from the
// earliest fuel slot. It reports whether the burner is powered this tick and
// the item consumed, if any.
func (s *State) Tick(dtMs int64, fuel *inventory.Inventory, value FuelValue) (powered bool, consumed string) {
	if s.ChargeMs > 0 {
		s.ChargeMs -= dtMs
	}
	if s.ChargeMs <= 0 {
		s.ChargeMs = 0
		if fuel != nil && value != nil {
			if st, ok := fuel.TakeFromFirst(1, func(item string) bool { return value(item) > 0 }); ok {
				s.ChargeMs = value(st.Item)
				s.LastFuelMs = s.ChargeMs
				s.LastFuel = st.Item
				consumed = st.Item
			}
		}
	}
	return s.ChargeMs > 0, consumed
}

func (s State) Powered() bool { return s.ChargeMs > 0 }

// Fraction is the remaining charge relative to the last fuel item loaded.
func (s State) Fraction() float64 {
	if s.LastFuelMs <= 0 || s.ChargeMs <= 0 {
		return 0
	}
	f := float64(s.ChargeMs) / float64(s.LastFuelMs)
	if f > 1 {
		return 1
	}
	return f
}

// Package authz maps staff roles to the clinic stations they may act on.
package authz

import "github.com/clinicflow/clinicflow/internal/journey"

// Staff roles known to the clinic.
const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleCashier      = "cashier"
	RoleAnalyst      = "analyst"
	RoleDoctor       = "doctor"
	RolePharmacist   = "pharmacist"
)

// Gate decides whether a role may transition a station. The table is static;
// both the authoritative write path and the UI capability hints read it, so
// the two can never diverge.
type Gate struct {
	permitted map[journey.Station][]string
}

// NewGate returns a Gate with the default station-to-role table.
func NewGate() *Gate {
	return &Gate{
		permitted: map[journey.Station][]string{
			journey.StationRegistration: {RoleReceptionist},
			journey.StationPayment:      {RoleCashier},
			journey.StationAnalyst:      {RoleAnalyst},
			journey.StationDoctor:       {RoleDoctor},
			journey.StationPharmacy:     {RolePharmacist},
		},
	}
}

// CanComplete reports whether role may complete station. The admin role is
// permitted for every station regardless of the per-station table.
func (g *Gate) CanComplete(role string, station journey.Station) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range g.permitted[station] {
		if r == role {
			return true
		}
	}
	return false
}

// StationsFor returns the stations a role may act on, in canonical order.
// Staff clients use this to render completion controls; the service still
// re-validates on every write.
func (g *Gate) StationsFor(role string) []journey.Station {
	stations := make([]journey.Station, 0, len(journey.CanonicalStations))
	for _, station := range journey.CanonicalStations {
		if g.CanComplete(role, station) {
			stations = append(stations, station)
		}
	}
	return stations
}

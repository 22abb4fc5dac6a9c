package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicflow/clinicflow/internal/journey"
)

func TestGateGrantsStationRoles(t *testing.T) {
	gate := NewGate()

	cases := []struct {
		role    string
		station journey.Station
		allowed bool
	}{
		{RoleReceptionist, journey.StationRegistration, true},
		{RoleCashier, journey.StationPayment, true},
		{RoleAnalyst, journey.StationAnalyst, true},
		{RoleDoctor, journey.StationDoctor, true},
		{RolePharmacist, journey.StationPharmacy, true},
		{RoleReceptionist, journey.StationPharmacy, false},
		{RoleDoctor, journey.StationPayment, false},
		{RolePharmacist, journey.StationDoctor, false},
		{"janitor", journey.StationRegistration, false},
		{"", journey.StationRegistration, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, gate.CanComplete(tc.role, tc.station),
			"role %q station %q", tc.role, tc.station)
	}
}

func TestAdminIsPermittedEverywhere(t *testing.T) {
	gate := NewGate()
	for _, station := range journey.CanonicalStations {
		assert.True(t, gate.CanComplete(RoleAdmin, station))
	}
}

func TestStationsForFollowsCanonicalOrder(t *testing.T) {
	gate := NewGate()

	assert.Equal(t, journey.CanonicalStations, gate.StationsFor(RoleAdmin))
	assert.Equal(t, []journey.Station{journey.StationPayment}, gate.StationsFor(RoleCashier))
	assert.Empty(t, gate.StationsFor("janitor"))
}

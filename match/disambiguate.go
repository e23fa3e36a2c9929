package match

import "commuteatlas/model"

// AssignAddressTypes resolves which of an employee's two geocode
// candidates is the work endpoint and which is the home endpoint. The
// geocoder echoes the synthetic record IDs, and work is always submitted
// with the lower ID of the pair, so relative ID order carries the roles
// regardless of response order. Candidates are updated in place.
//
// Anything other than exactly two candidates, or a pair without distinct
// IDs, is left untouched; untyped locations fall through to matching as
// unmatched and the employee is flagged there.
func AssignAddressTypes(pair []model.GeocodeLocation) bool {
	if len(pair) != 2 {
		return false
	}
	if pair[0].RecordID == pair[1].RecordID {
		return false
	}
	if pair[0].RecordID < pair[1].RecordID {
		pair[0].Type = model.AddressTypeWork
		pair[1].Type = model.AddressTypeHome
	} else {
		pair[0].Type = model.AddressTypeHome
		pair[1].Type = model.AddressTypeWork
	}
	return true
}

package model

// GeocodeLocation is one geocoder candidate tied back to a roster
// employee. EmployeeID is the pair group key; Type stays empty until the
// candidate pair has been disambiguated.
type GeocodeLocation struct {
	EmployeeID int
	RecordID   int
	Address    string
	Score      float64
	Latitude   float64
	Longitude  float64
	Type       AddressType
}

// CommuteRow is one line of the output CSV. Flagged rows carry zeroes in
// every numeric column.
type CommuteRow struct {
	EmployeeID int
	Miles      float64
	Minutes    float64
	WorkLat    float64
	WorkLon    float64
	HomeLat    float64
	HomeLon    float64
	Flagged    bool
}

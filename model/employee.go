package model

// AddressType tags a geocoded location as one endpoint of a commute.
type AddressType string

const (
	AddressTypeWork AddressType = "WORK"
	AddressTypeHome AddressType = "HOME"
)

type Address struct {
	Street string
	City   string
	Region string
	Postal string
}

// EmployeeAddresses is one roster row: an employee and the two addresses
// whose commute is being measured. WorkRecordID and HomeRecordID are the
// synthetic IDs the geocoder echoes back; home is always work+1.
type EmployeeAddresses struct {
	EmployeeID   int
	WorkRecordID int
	HomeRecordID int
	Work         Address
	Home         Address
}

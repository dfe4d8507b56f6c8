package models

// CoverageReport summarises what the durable stores hold.
type CoverageReport struct {
	Listings           int
	ListingsByCategory map[string]int

	DetailRecords  int
	DetailComplete int
	DetailPartial  int
	// DetailMissing counts listed entities with no record at all.
	DetailMissing int

	OverviewEndpoints []string
}

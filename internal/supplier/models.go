package supplier

// Benchmark compares one supplier against its best-in-class peer within a
// scope 3 category. Intensities are tCO2e per revenue unit.
type Benchmark struct {
	ID                    string  `json:"id"`
	SupplierID            string  `json:"supplier_id"`
	SupplierName          string  `json:"supplier_name"`
	PeerID                string  `json:"peer_id"`
	PeerName              string  `json:"peer_name"`
	Category              string  `json:"category"`
	CEERating             string  `json:"cee_rating"`
	SupplierIntensity     float64 `json:"supplier_intensity"`
	PeerIntensity         float64 `json:"peer_intensity"`
	PotentialReductionPct float64 `json:"potential_reduction_pct"`
	UpstreamImpactPct     float64 `json:"upstream_impact_pct"`
	IndustrySector        string  `json:"industry_sector"`
	RevenueBand           string  `json:"revenue_band"`
}

// IsHighImpact reports whether the supplier's upstream share of total
// emissions clears the engagement threshold.
func (b Benchmark) IsHighImpact(threshold float64) bool {
	return b.UpstreamImpactPct >= threshold
}

package models

// Metric is one headline figure for a dataset, in display order.
type Metric struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// DatasetSummary carries the headline metrics shown above a dataset table.
type DatasetSummary struct {
	Source   string   `json:"source"`
	RowCount int      `json:"rowCount"`
	Metrics  []Metric `json:"metrics"`
}

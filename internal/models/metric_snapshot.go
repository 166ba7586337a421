package models

import "time"

// Represents one archived request sample. Rows are written asynchronously
// by the metrics archiver; the in-memory governance history is the source
// of truth for the live metrics endpoints.
type MetricSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	Endpoint       string    `gorm:"index" json:"endpoint"`
	StatusCode     int       `gorm:"index" json:"status_code"`
	ResponseTimeMs float64   `json:"response_time_ms"`
	IsSlow         bool      `gorm:"index" json:"is_slow"`
}

func (MetricSnapshot) TableName() string {
	return "metric_snapshots"
}

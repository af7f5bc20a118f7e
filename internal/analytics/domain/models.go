package domain

import "time"

// ApiRequestLog is one admitted request, appended after the response is
// written. Never consulted for gatekeeping.
type ApiRequestLog struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LicenseID    string    `gorm:"column:license_id;index" json:"license_id"`
	Endpoint     string    `gorm:"column:endpoint" json:"endpoint"`
	Method       string    `gorm:"column:method" json:"method"`
	StatusCode   int       `gorm:"column:status_code" json:"status_code"`
	ResponseTime int64     `gorm:"column:response_time" json:"response_time"`
	Timestamp    time.Time `gorm:"column:timestamp;index" json:"timestamp"`
}

func (ApiRequestLog) TableName() string {
	return "api_requests"
}

package accesslog

import "time"

// Entry is one transfer served to a device
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Method    string    `json:"method"`
	Endpoint  string    `json:"endpoint"`
	File      string    `json:"file,omitempty"`
	Status    int       `json:"status"`
	Bytes     int       `json:"bytes"`
	Millis    int64     `json:"duration_ms"`
}

package session

import (
	"os"
	"runtime"
	"time"
)

// Session is one signed-in device of a user.
type Session struct {
	SessionID  string    `json:"sessionId"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

func (s Session) expired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.CreatedAt) > maxAge
}

// DeviceInfo supplies human-readable metadata for new sessions.
type DeviceInfo interface {
	DeviceName() string
	Platform() string
}

// HostDevice describes the machine the process runs on.
type HostDevice struct{}

func (HostDevice) DeviceName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "Unknown device"
	}
	return name
}

func (HostDevice) Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// StaticDevice reports fixed values.
type StaticDevice struct {
	Name string
	OS   string
}

func (d StaticDevice) DeviceName() string { return d.Name }
func (d StaticDevice) Platform() string   { return d.OS }

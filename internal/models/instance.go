package models

import "time"

// InstanceInfo records the running shell and the backend it supervises.
// This corresponds to ~/.labcv/instance.yaml.
type InstanceInfo struct {
	Version    int       `yaml:"version"`
	PID        int       `yaml:"pid"`
	BackendPID int       `yaml:"backend_pid,omitempty"`
	Host       string    `yaml:"host"`
	Port       string    `yaml:"port"`
	LaunchID   string    `yaml:"launch_id,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
}

// NewInstanceInfo creates instance info for the current process.
func NewInstanceInfo(host, port string, pid int) *InstanceInfo {
	return &InstanceInfo{
		Version:   1,
		PID:       pid,
		Host:      host,
		Port:      port,
		StartedAt: time.Now().UTC(),
	}
}

// URL returns the backend URL the instance serves its UI from.
func (i *InstanceInfo) URL() string {
	return "http://" + i.Host + ":" + i.Port + "/"
}

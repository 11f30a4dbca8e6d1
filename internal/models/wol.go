package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for bare-metal targets that are
// powered off before provisioning.
type WOLConfig struct {
	MACAddress   string
	BroadcastIP  string
	SSHPort      int           // port polled on the target until it accepts connections
	Timeout      time.Duration // max time to wait for the target
	PollInterval time.Duration // how often to poll the port
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}

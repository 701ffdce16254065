package types

type GateHeartbeatRequest struct {
	GateID          string `json:"gate_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
	BarrierClosed   *bool  `json:"barrier_closed,omitempty"`
	LastPlateReadAt string `json:"last_plate_read_at,omitempty"` // optional camera timestamp
	IP              string `json:"ip,omitempty"`
}

type GateHeartbeatResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	GateID     string `json:"gate_id"`
	ServerTime string `json:"server_time"`
}

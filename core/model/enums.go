package model

// VehicleType is the propulsion class of a vehicle.
type VehicleType string

const (
	VehicleTypeElectric VehicleType = "electric"
	VehicleTypeHybrid   VehicleType = "hybrid"
	VehicleTypeGasoline VehicleType = "gasoline"
	VehicleTypeDiesel   VehicleType = "diesel"
	VehicleTypeUnknown  VehicleType = "unknown"
)

// VehicleTypes lists all vehicle types.
func VehicleTypes() []VehicleType {
	return []VehicleType{VehicleTypeElectric, VehicleTypeHybrid, VehicleTypeGasoline, VehicleTypeDiesel, VehicleTypeUnknown}
}

// VehicleState is the operating state of a vehicle.
type VehicleState string

const (
	VehicleStateOffline    VehicleState = "offline"
	VehicleStateParking    VehicleState = "parking"
	VehicleStateIgnitionOn VehicleState = "ignition_on"
	VehicleStateDriving    VehicleState = "driving"
	VehicleStateUnknown    VehicleState = "unknown"
)

func VehicleStates() []VehicleState {
	return []VehicleState{VehicleStateOffline, VehicleStateParking, VehicleStateIgnitionOn, VehicleStateDriving, VehicleStateUnknown}
}

// VehicleConnectionState tells whether the vehicle can be reached by its
// backend.
type VehicleConnectionState string

const (
	VehicleOnline    VehicleConnectionState = "online"
	VehicleOffline   VehicleConnectionState = "offline"
	VehicleReachable VehicleConnectionState = "reachable"
	VehicleUnknown   VehicleConnectionState = "unknown"
)

func VehicleConnectionStates() []VehicleConnectionState {
	return []VehicleConnectionState{VehicleOnline, VehicleOffline, VehicleReachable, VehicleUnknown}
}

// ConnectionState is the connection state of a connector or plugin.
type ConnectionState string

const (
	ConnectionConnected     ConnectionState = "connected"
	ConnectionConnecting    ConnectionState = "connecting"
	ConnectionDisconnected  ConnectionState = "disconnected"
	ConnectionDisconnecting ConnectionState = "disconnecting"
	ConnectionReconnecting  ConnectionState = "reconnecting"
	ConnectionError         ConnectionState = "error"
)

func ConnectionStates() []ConnectionState {
	return []ConnectionState{ConnectionConnected, ConnectionConnecting, ConnectionDisconnected, ConnectionDisconnecting, ConnectionReconnecting, ConnectionError}
}

// DriveType is the energy source of a drive.
type DriveType string

const (
	DriveElectric DriveType = "electric"
	DriveGasoline DriveType = "gasoline"
	DriveDiesel   DriveType = "diesel"
	DriveCNG      DriveType = "cng"
	DriveLPG      DriveType = "lpg"
	DriveUnknown  DriveType = "unknown"
)

func DriveTypes() []DriveType {
	return []DriveType{DriveElectric, DriveGasoline, DriveDiesel, DriveCNG, DriveLPG, DriveUnknown}
}

// OpenState applies to doors and windows.
type OpenState string

const (
	OpenStateOpen        OpenState = "open"
	OpenStateClosed      OpenState = "closed"
	OpenStateUnsupported OpenState = "unsupported"
	OpenStateUnknown     OpenState = "unknown"
	OpenStateInvalid     OpenState = "invalid"
)

func OpenStates() []OpenState {
	return []OpenState{OpenStateOpen, OpenStateClosed, OpenStateUnsupported, OpenStateUnknown, OpenStateInvalid}
}

// LockState applies to doors and the charging connector.
type LockState string

const (
	LockStateLocked      LockState = "locked"
	LockStateUnlocked    LockState = "unlocked"
	LockStateUnsupported LockState = "unsupported"
	LockStateUnknown     LockState = "unknown"
	LockStateInvalid     LockState = "invalid"
)

func LockStates() []LockState {
	return []LockState{LockStateLocked, LockStateUnlocked, LockStateUnsupported, LockStateUnknown, LockStateInvalid}
}

// OnOffState applies to lights and window heatings.
type OnOffState string

const (
	StateOn      OnOffState = "on"
	StateOff     OnOffState = "off"
	StateInvalid OnOffState = "invalid"
	StateUnknown OnOffState = "unknown"
)

func OnOffStates() []OnOffState {
	return []OnOffState{StateOn, StateOff, StateInvalid, StateUnknown}
}

// PositionType tells how a position was obtained.
type PositionType string

const (
	PositionParking PositionType = "parking"
	PositionDriving PositionType = "driving"
	PositionInvalid PositionType = "invalid"
	PositionUnknown PositionType = "unknown"
)

func PositionTypes() []PositionType {
	return []PositionType{PositionParking, PositionDriving, PositionInvalid, PositionUnknown}
}

// ClimatizationState is the state of the climate control.
type ClimatizationState string

const (
	ClimatizationOff         ClimatizationState = "off"
	ClimatizationHeating     ClimatizationState = "heating"
	ClimatizationCooling     ClimatizationState = "cooling"
	ClimatizationVentilation ClimatizationState = "ventilation"
	ClimatizationInvalid     ClimatizationState = "invalid"
	ClimatizationUnknown     ClimatizationState = "unknown"
)

func ClimatizationStates() []ClimatizationState {
	return []ClimatizationState{ClimatizationOff, ClimatizationHeating, ClimatizationCooling, ClimatizationVentilation, ClimatizationInvalid, ClimatizationUnknown}
}

// ChargingState is the state of a charging session.
type ChargingState string

const (
	ChargingOff              ChargingState = "off"
	ChargingReadyForCharging ChargingState = "ready_for_charging"
	ChargingCharging         ChargingState = "charging"
	ChargingConservation     ChargingState = "conservation"
	ChargingDischarging      ChargingState = "discharging"
	ChargingError            ChargingState = "error"
	ChargingUnsupported      ChargingState = "unsupported"
	ChargingUnknown          ChargingState = "unknown"
)

func ChargingStates() []ChargingState {
	return []ChargingState{ChargingOff, ChargingReadyForCharging, ChargingCharging, ChargingConservation, ChargingDischarging, ChargingError, ChargingUnsupported, ChargingUnknown}
}

// ChargingType is the current type used for charging.
type ChargingType string

const (
	ChargingTypeAC      ChargingType = "ac"
	ChargingTypeDC      ChargingType = "dc"
	ChargingTypeOff     ChargingType = "off"
	ChargingTypeInvalid ChargingType = "invalid"
	ChargingTypeUnknown ChargingType = "unknown"
)

func ChargingTypes() []ChargingType {
	return []ChargingType{ChargingTypeAC, ChargingTypeDC, ChargingTypeOff, ChargingTypeInvalid, ChargingTypeUnknown}
}

// PlugState is the connection state of the charging plug.
type PlugState string

const (
	PlugConnected    PlugState = "connected"
	PlugDisconnected PlugState = "disconnected"
	PlugInvalid      PlugState = "invalid"
	PlugUnsupported  PlugState = "unsupported"
	PlugUnknown      PlugState = "unknown"
)

func PlugStates() []PlugState {
	return []PlugState{PlugConnected, PlugDisconnected, PlugInvalid, PlugUnsupported, PlugUnknown}
}

// ExternalPower tells whether the charging station provides power.
type ExternalPower string

const (
	ExternalPowerAvailable   ExternalPower = "available"
	ExternalPowerUnavailable ExternalPower = "unavailable"
	ExternalPowerActive      ExternalPower = "active"
	ExternalPowerInvalid     ExternalPower = "invalid"
	ExternalPowerUnsupported ExternalPower = "unsupported"
	ExternalPowerUnknown     ExternalPower = "unknown"
)

func ExternalPowers() []ExternalPower {
	return []ExternalPower{ExternalPowerAvailable, ExternalPowerUnavailable, ExternalPowerActive, ExternalPowerInvalid, ExternalPowerUnsupported, ExternalPowerUnknown}
}

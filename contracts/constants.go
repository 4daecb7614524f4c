package contracts

// Application identifiers
const (
	ApplicationCommon     uint32 = 0
	ApplicationNASREQ     uint32 = 1
	ApplicationMobileIPv4 uint32 = 2
	ApplicationAccounting uint32 = 3
	ApplicationRelay      uint32 = 0xffffffff
)

// Command codes
const (
	CommandCapabilitiesExchange uint32 = 257
	CommandReAuth               uint32 = 258
	CommandAccounting           uint32 = 271
	CommandAbortSession         uint32 = 274
	CommandSessionTermination   uint32 = 275
	CommandDeviceWatchdog       uint32 = 280
	CommandDisconnectPeer       uint32 = 282
)

// Base protocol AVP codes
const (
	AVPSessionID        uint32 = 263
	AVPOriginHost       uint32 = 264
	AVPResultCode       uint32 = 268
	AVPOriginRealm      uint32 = 296
	AVPDestinationRealm uint32 = 283
	AVPDestinationHost  uint32 = 293
)

// Result codes
const (
	ResultSuccess         uint32 = 2001
	ResultUnableToDeliver uint32 = 3002
)

package node

import (
	"fmt"
)

// Capability holds the applications a node supports
type Capability struct {
	AuthApps []uint32
	AcctApps []uint32
}

// AddAuthApp adds an authentication application
func (c *Capability) AddAuthApp(app uint32) {
	if !c.IsAllowedAuthApp(app) {
		c.AuthApps = append(c.AuthApps, app)
	}
}

// AddAcctApp adds an accounting application
func (c *Capability) AddAcctApp(app uint32) {
	if !c.IsAllowedAcctApp(app) {
		c.AcctApps = append(c.AcctApps, app)
	}
}

// IsAllowedAuthApp reports whether app is a supported authentication application
func (c Capability) IsAllowedAuthApp(app uint32) bool {
	return contains(c.AuthApps, app)
}

// IsAllowedAcctApp reports whether app is a supported accounting application
func (c Capability) IsAllowedAcctApp(app uint32) bool {
	return contains(c.AcctApps, app)
}

// IsEmpty reports whether no application is supported
func (c Capability) IsEmpty() bool {
	return len(c.AuthApps) == 0 && len(c.AcctApps) == 0
}

func contains(apps []uint32, app uint32) bool {
	for _, a := range apps {
		if a == app {
			return true
		}
	}
	return false
}

// Settings identifies the local node
type Settings struct {
	HostID           string
	Realm            string
	VendorID         uint32
	Capabilities     Capability
	Port             int
	ProductName      string
	FirmwareRevision uint32
}

// NewSettings creates validated node settings
func NewSettings(hostID, realm string, vendorID uint32, capabilities Capability, port int, productName string, firmwareRevision uint32) (Settings, error) {
	s := Settings{
		HostID:           hostID,
		Realm:            realm,
		VendorID:         vendorID,
		Capabilities:     capabilities,
		Port:             port,
		ProductName:      productName,
		FirmwareRevision: firmwareRevision,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings
func (s Settings) Validate() error {
	if s.HostID == "" {
		return fmt.Errorf("%w: host id is required", ErrInvalidSettings)
	}
	if s.Realm == "" {
		return fmt.Errorf("%w: realm is required", ErrInvalidSettings)
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSettings, s.Port)
	}
	if s.Capabilities.IsEmpty() {
		return fmt.Errorf("%w: at least one application must be supported", ErrInvalidSettings)
	}
	if s.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalidSettings)
	}
	return nil
}

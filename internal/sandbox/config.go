package sandbox

import (
	"fmt"

	dErrors "gatehouse/pkg/domain-errors"
)

// Config is the static moderation configuration for one entity type, supplied
// by the integrator at registration time.
type Config struct {
	// EntityType names the monitored type; it must match the type used by
	// the entity store.
	EntityType string

	// MonitoredFields are the field names whose changes require approval.
	MonitoredFields []string

	// StoreFields are auxiliary fields preserved in the record's store slot
	// and restored on approval, independent of the diff.
	StoreFields []string

	// DefaultValues overwrite entity fields on first creation, before any
	// review has happened (for example suppressing visibility).
	DefaultValues map[string]any

	// AutoApproveStaff approves changes authored by staff without review.
	AutoApproveStaff bool

	// AutoApproveNew approves the creation snapshot of new entities.
	AutoApproveNew bool

	// AutoApproveByRequest lets the acting user from the write context count
	// as an author for auto-approval checks. When false only the entity's
	// own declared authors are consulted.
	AutoApproveByRequest bool

	// PermissionName is the permission an author must hold to bypass review
	// for this type. Defaults to "moderate_<type>".
	PermissionName string

	// Override, when set, always runs after the built-in auto-approval
	// rules and its outcome is final. See Hook.
	Override Hook
}

// Permission returns the effective bypass permission name for the type.
func (c Config) Permission() string {
	if c.PermissionName != "" {
		return c.PermissionName
	}
	return "moderate_" + c.EntityType
}

// Validate fails fast on configurations that could only break at request
// time: unnamed types, nothing monitored, or defaults that target fields the
// sandbox would never restore.
func (c Config) Validate() error {
	if c.EntityType == "" {
		return dErrors.New(dErrors.CodeConfiguration, "moderation config requires an entity type")
	}
	if len(c.MonitoredFields) == 0 {
		return dErrors.New(dErrors.CodeConfiguration,
			fmt.Sprintf("moderation config for %q monitors no fields", c.EntityType))
	}
	known := make(map[string]bool, len(c.MonitoredFields)+len(c.StoreFields))
	for _, f := range c.MonitoredFields {
		known[f] = true
	}
	for _, f := range c.StoreFields {
		known[f] = true
	}
	for f := range c.DefaultValues {
		if !known[f] {
			return dErrors.New(dErrors.CodeConfiguration,
				fmt.Sprintf("default value for %q targets a field of %q that is neither monitored nor stored", f, c.EntityType))
		}
	}
	return nil
}

func (c Config) monitors(field string) bool {
	for _, f := range c.MonitoredFields {
		if f == field {
			return true
		}
	}
	return false
}

func (c Config) stores(field string) bool {
	for _, f := range c.StoreFields {
		if f == field {
			return true
		}
	}
	return false
}

package annotation

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// RegionPrefix is the typeid prefix of region ids.
const RegionPrefix = "region"

// NewRegionID returns a fresh, sortable region id.
func NewRegionID() string {
	return typeid.MustGenerate(RegionPrefix).String()
}

// ValidateRegionID checks that id parses and carries the region prefix.
func ValidateRegionID(id string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid region id %q: %w", id, err)
	}
	if parsed.Prefix() != RegionPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", RegionPrefix, parsed.Prefix(), id)
	}
	return nil
}

package services

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// LoadColumnProfile resolves a stored header mapping by name. Profiles are
// shared across projects; suppliers tend to reuse the same export layout.
func LoadColumnProfile(app core.App, name string) (*ColumnProfile, error) {
	record, err := app.FindFirstRecordByFilter("column_profiles",
		"name = {:name}", map[string]any{"name": name})
	if err != nil {
		return nil, validationErrorf("column profile %q not found", name)
	}
	profile := &ColumnProfile{}
	if err := record.UnmarshalJSONField("profile", profile); err != nil {
		return nil, fmt.Errorf("decode column profile %q: %w", name, err)
	}
	if profile.Name == "" {
		profile.Name = name
	}
	return profile, nil
}

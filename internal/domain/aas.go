package domain

import "fmt"

// AssetKind classifies whether an asset is a type, an instance, or neither.
type AssetKind string

const (
	AssetKindType          AssetKind = "Type"
	AssetKindInstance      AssetKind = "Instance"
	AssetKindNotApplicable AssetKind = "NotApplicable"
)

// AssetInformation describes the physical or virtual asset an
// AssetAdministrationShell represents.
type AssetInformation struct {
	AssetKind        AssetKind         `json:"assetKind"`
	GlobalAssetId    string            `json:"globalAssetId,omitempty"`
	SpecificAssetIds []SpecificAssetId `json:"specificAssetIds,omitempty"`
	AssetType        string            `json:"assetType,omitempty"`
}

// Validate checks AssetKind is one of the three allowed values.
func (a AssetInformation) Validate() error {
	switch a.AssetKind {
	case AssetKindType, AssetKindInstance, AssetKindNotApplicable:
	default:
		return fmt.Errorf("domain: unknown assetKind %q", a.AssetKind)
	}
	return nil
}

// AssetAdministrationShell is the top-level identifiable entity binding an
// asset's AssetInformation to the set of Submodels describing it.
type AssetAdministrationShell struct {
	Identifiable

	AssetInformation AssetInformation `json:"assetInformation"`
	Submodels        []Reference      `json:"submodels,omitempty"`
}

// Validate checks the shared Identifiable invariants, AssetInformation, and
// every submodel reference. Referenced Submodel ids are not required to
// resolve locally — dangling references are allowed here.
func (a AssetAdministrationShell) Validate() error {
	if err := a.Identifiable.Validate(); err != nil {
		return err
	}
	if err := a.AssetInformation.Validate(); err != nil {
		return err
	}
	for i, ref := range a.Submodels {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("domain: submodels[%d]: %w", i, err)
		}
	}
	return nil
}

package domain

import "fmt"

// ModellingKind distinguishes a Submodel template from a runtime instance.
type ModellingKind string

const (
	ModellingKindTemplate ModellingKind = "Template"
	ModellingKindInstance ModellingKind = "Instance"
)

// Submodel is an identifiable, ordered tree of SubmodelElements.
type Submodel struct {
	Identifiable

	Kind             ModellingKind     `json:"kind,omitempty"`
	SemanticId       *Reference        `json:"semanticId,omitempty"`
	SubmodelElements []SubmodelElement `json:"submodelElements,omitempty"`
}

// Validate checks the shared Identifiable invariants, the Kind enum, and
// recurses into every top-level submodel element.
func (s Submodel) Validate() error {
	if err := s.Identifiable.Validate(); err != nil {
		return err
	}
	switch s.Kind {
	case "", ModellingKindTemplate, ModellingKindInstance:
	default:
		return fmt.Errorf("domain: unknown submodel kind %q", s.Kind)
	}
	if s.SemanticId != nil {
		if err := s.SemanticId.Validate(); err != nil {
			return fmt.Errorf("domain: submodel semanticId: %w", err)
		}
	}
	for i, el := range s.SubmodelElements {
		if err := el.Validate(false); err != nil {
			return fmt.Errorf("domain: submodelElements[%d]: %w", i, err)
		}
	}
	return nil
}

// IsTemplate reports whether s carries no runtime values.
func (s Submodel) IsTemplate() bool {
	return s.Kind == ModellingKindTemplate
}

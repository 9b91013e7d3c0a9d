package domain

import "fmt"

// KeyType enumerates the allowed values of a Reference Key's type field.
type KeyType string

// Key types for AAS identifiables and referables, per IDTA-01001 Part 1
// table "KeyTypes".
const (
	KeyTypeAssetAdministrationShell KeyType = "AssetAdministrationShell"
	KeyTypeSubmodel                 KeyType = "Submodel"
	KeyTypeConceptDescription       KeyType = "ConceptDescription"

	KeyTypeAnnotatedRelationshipElement KeyType = "AnnotatedRelationshipElement"
	KeyTypeBasicEventElement            KeyType = "BasicEventElement"
	KeyTypeBlob                         KeyType = "Blob"
	KeyTypeCapability                   KeyType = "Capability"
	KeyTypeDataElement                  KeyType = "DataElement"
	KeyTypeEntity                       KeyType = "Entity"
	KeyTypeEventElement                 KeyType = "EventElement"
	KeyTypeFile                         KeyType = "File"
	KeyTypeFragmentReference            KeyType = "FragmentReference"
	KeyTypeGlobalReference              KeyType = "GlobalReference"
	KeyTypeIdentifiable                 KeyType = "Identifiable"
	KeyTypeMultiLanguageProperty        KeyType = "MultiLanguageProperty"
	KeyTypeOperation                    KeyType = "Operation"
	KeyTypeProperty                     KeyType = "Property"
	KeyTypeRange                        KeyType = "Range"
	KeyTypeReferable                    KeyType = "Referable"
	KeyTypeReferenceElement             KeyType = "ReferenceElement"
	KeyTypeRelationshipElement          KeyType = "RelationshipElement"
	KeyTypeSubmodelElement              KeyType = "SubmodelElement"
	KeyTypeSubmodelElementCollection    KeyType = "SubmodelElementCollection"
	KeyTypeSubmodelElementList          KeyType = "SubmodelElementList"
)

var validKeyTypes = map[KeyType]bool{
	KeyTypeAssetAdministrationShell:     true,
	KeyTypeSubmodel:                     true,
	KeyTypeConceptDescription:           true,
	KeyTypeAnnotatedRelationshipElement: true,
	KeyTypeBasicEventElement:            true,
	KeyTypeBlob:                         true,
	KeyTypeCapability:                   true,
	KeyTypeDataElement:                  true,
	KeyTypeEntity:                       true,
	KeyTypeEventElement:                 true,
	KeyTypeFile:                         true,
	KeyTypeFragmentReference:            true,
	KeyTypeGlobalReference:              true,
	KeyTypeIdentifiable:                 true,
	KeyTypeMultiLanguageProperty:        true,
	KeyTypeOperation:                    true,
	KeyTypeProperty:                     true,
	KeyTypeRange:                        true,
	KeyTypeReferable:                    true,
	KeyTypeReferenceElement:             true,
	KeyTypeRelationshipElement:          true,
	KeyTypeSubmodelElement:              true,
	KeyTypeSubmodelElementCollection:    true,
	KeyTypeSubmodelElementList:          true,
}

// ReferenceType distinguishes external references from model references.
type ReferenceType string

const (
	ReferenceTypeExternalReference ReferenceType = "ExternalReference"
	ReferenceTypeModelReference    ReferenceType = "ModelReference"
)

// Key is a single segment of a Reference's key path.
type Key struct {
	Type  KeyType `json:"type"`
	Value string  `json:"value"`
}

// Validate checks that Type is one of the known KeyTypes and Value is within
// the identifier length bound.
func (k Key) Validate() error {
	if !validKeyTypes[k.Type] {
		return fmt.Errorf("domain: unknown key type %q", k.Type)
	}
	if k.Value == "" {
		return fmt.Errorf("domain: key value must not be empty")
	}
	if len(k.Value) > MaxIdentifierLength {
		return fmt.Errorf("domain: key value exceeds %d characters", MaxIdentifierLength)
	}
	return nil
}

// Reference points at an element either outside the AAS ecosystem
// (ExternalReference) or within it (ModelReference), as an ordered chain of
// Keys.
type Reference struct {
	Type               ReferenceType `json:"type"`
	Keys               []Key         `json:"keys"`
	ReferredSemanticId *Reference    `json:"referredSemanticId,omitempty"`
}

// IsExternal reports whether r is an ExternalReference.
func (r Reference) IsExternal() bool {
	return r.Type == ReferenceTypeExternalReference
}

// IsModelReference reports whether r is a ModelReference.
func (r Reference) IsModelReference() bool {
	return r.Type == ReferenceTypeModelReference
}

// Validate checks the reference's type, non-empty key chain, and each key in
// it, recursing into any referredSemanticId.
func (r Reference) Validate() error {
	switch r.Type {
	case ReferenceTypeExternalReference, ReferenceTypeModelReference:
	default:
		return fmt.Errorf("domain: unknown reference type %q", r.Type)
	}
	if len(r.Keys) == 0 {
		return fmt.Errorf("domain: reference must have at least one key")
	}
	for i, k := range r.Keys {
		if err := k.Validate(); err != nil {
			return fmt.Errorf("domain: key[%d]: %w", i, err)
		}
	}
	if r.ReferredSemanticId != nil {
		if err := r.ReferredSemanticId.Validate(); err != nil {
			return fmt.Errorf("domain: referredSemanticId: %w", err)
		}
	}
	return nil
}

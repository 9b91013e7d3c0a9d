// Package domain defines the typed AAS entities and the polymorphic
// SubmodelElement variants, plus the validation rules the domain layer
// enforces before any document reaches the repository.
package domain

import (
	"fmt"
	"regexp"
)

// MaxIdentifierLength is the IDTA metamodel limit for `id` fields.
const MaxIdentifierLength = 2000

// MaxIdShortLength is the IDTA metamodel limit for `idShort`.
const MaxIdShortLength = 128

var idShortPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdentifier enforces the length bound on an `id` field.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("domain: id must not be empty")
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("domain: id exceeds %d characters", MaxIdentifierLength)
	}
	return nil
}

// ValidateIdShort enforces the idShort grammar: `[a-zA-Z_][a-zA-Z0-9_]*`,
// at most MaxIdShortLength characters.
func ValidateIdShort(idShort string) error {
	if idShort == "" {
		return fmt.Errorf("domain: idShort must not be empty")
	}
	if len(idShort) > MaxIdShortLength {
		return fmt.Errorf("domain: idShort exceeds %d characters", MaxIdShortLength)
	}
	if !idShortPattern.MatchString(idShort) {
		return fmt.Errorf("domain: idShort %q does not match [a-zA-Z_][a-zA-Z0-9_]*", idShort)
	}
	return nil
}

// LangString is an ordered {language, text} pair used for description and
// displayName fields.
type LangString struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// AdministrativeInformation carries versioning metadata shared by
// identifiable entities.
type AdministrativeInformation struct {
	Version    string `json:"version,omitempty"`
	Revision   string `json:"revision,omitempty"`
	TemplateId string `json:"templateId,omitempty"`
}

// MaxAdministrationVersionLength is the IDTA metamodel limit for the
// `administration.version` field.
const MaxAdministrationVersionLength = 4

// Identifiable carries the fields every identifiable AAS entity shares.
type Identifiable struct {
	ID             string                     `json:"id"`
	IdShort        string                     `json:"idShort,omitempty"`
	Category       string                     `json:"category,omitempty"`
	DisplayName    []LangString               `json:"displayName,omitempty"`
	Description    []LangString               `json:"description,omitempty"`
	Administration *AdministrativeInformation `json:"administration,omitempty"`
}

// GetID returns the entity's id, satisfying the generic identity
// accessor httpapi's entity handlers use across shell/submodel/concept
// description variants.
func (i Identifiable) GetID() string {
	return i.ID
}

// Validate checks the length/grammar invariants common to all identifiable
// entities.
func (i Identifiable) Validate() error {
	if err := ValidateIdentifier(i.ID); err != nil {
		return err
	}
	if i.IdShort != "" {
		if err := ValidateIdShort(i.IdShort); err != nil {
			return err
		}
	}
	if i.Administration != nil && len(i.Administration.Version) > MaxAdministrationVersionLength {
		return fmt.Errorf("domain: administration.version exceeds %d characters", MaxAdministrationVersionLength)
	}
	return nil
}

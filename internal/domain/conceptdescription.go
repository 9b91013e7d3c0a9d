package domain

import "fmt"

// DataTypeIec61360 enumerates the IEC 61360 value types a
// DataSpecificationIec61360 can declare.
type DataTypeIec61360 string

// LevelType classifies a DataSpecificationIec61360 level value.
type LevelType string

const (
	LevelTypeMin LevelType = "min"
	LevelTypeMax LevelType = "max"
	LevelTypeNom LevelType = "nom"
	LevelTypeTyp LevelType = "typ"
)

// DataSpecificationIec61360 is the optional embedded data specification a
// ConceptDescription may carry, per IEC 61360.
type DataSpecificationIec61360 struct {
	PreferredName  []LangString     `json:"preferredName,omitempty"`
	ShortName      []LangString     `json:"shortName,omitempty"`
	Unit           string           `json:"unit,omitempty"`
	SourceOfDefinition string       `json:"sourceOfDefinition,omitempty"`
	Symbol         string           `json:"symbol,omitempty"`
	DataType       DataTypeIec61360 `json:"dataType,omitempty"`
	Definition     []LangString     `json:"definition,omitempty"`
	ValueFormat    string           `json:"valueFormat,omitempty"`
	Value          string           `json:"value,omitempty"`
	LevelType      []LevelType      `json:"levelType,omitempty"`
}

// ConceptDescription is an identifiable entity defining the semantics that
// Property/Range/etc. semanticId fields reference.
type ConceptDescription struct {
	Identifiable

	IsCaseOf       []Reference                `json:"isCaseOf,omitempty"`
	EmbeddedDataSpecification *DataSpecificationIec61360 `json:"embeddedDataSpecification,omitempty"`
}

// Validate checks the shared Identifiable invariants and every isCaseOf
// reference.
func (c ConceptDescription) Validate() error {
	if err := c.Identifiable.Validate(); err != nil {
		return err
	}
	for i, ref := range c.IsCaseOf {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("domain: isCaseOf[%d]: %w", i, err)
		}
	}
	return nil
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ModelType discriminates the concrete variant of a SubmodelElement.
type ModelType string

// The closed set of SubmodelElement variants. Any modelType outside this set
// is rejected by UnmarshalJSON and by Validate.
const (
	ModelTypeProperty                    ModelType = "Property"
	ModelTypeMultiLanguageProperty       ModelType = "MultiLanguageProperty"
	ModelTypeRange                       ModelType = "Range"
	ModelTypeBlob                        ModelType = "Blob"
	ModelTypeFile                        ModelType = "File"
	ModelTypeReferenceElement            ModelType = "ReferenceElement"
	ModelTypeRelationshipElement         ModelType = "RelationshipElement"
	ModelTypeAnnotatedRelationshipElement ModelType = "AnnotatedRelationshipElement"
	ModelTypeEntity                      ModelType = "Entity"
	ModelTypeCapability                  ModelType = "Capability"
	ModelTypeOperation                   ModelType = "Operation"
	ModelTypeBasicEventElement           ModelType = "BasicEventElement"
	ModelTypeSubmodelElementCollection   ModelType = "SubmodelElementCollection"
	ModelTypeSubmodelElementList         ModelType = "SubmodelElementList"
)

var validModelTypes = map[ModelType]bool{
	ModelTypeProperty:                    true,
	ModelTypeMultiLanguageProperty:       true,
	ModelTypeRange:                       true,
	ModelTypeBlob:                        true,
	ModelTypeFile:                        true,
	ModelTypeReferenceElement:            true,
	ModelTypeRelationshipElement:         true,
	ModelTypeAnnotatedRelationshipElement: true,
	ModelTypeEntity:                      true,
	ModelTypeCapability:                  true,
	ModelTypeOperation:                   true,
	ModelTypeBasicEventElement:           true,
	ModelTypeSubmodelElementCollection:   true,
	ModelTypeSubmodelElementList:         true,
}

// EntityType distinguishes co-managed from self-managed Entity elements.
type EntityType string

const (
	EntityTypeCoManaged   EntityType = "CoManagedEntity"
	EntityTypeSelfManaged EntityType = "SelfManagedEntity"
)

// EventDirection is the direction of a BasicEventElement.
type EventDirection string

const (
	EventDirectionInput  EventDirection = "input"
	EventDirectionOutput EventDirection = "output"
)

// EventState is the on/off state of a BasicEventElement.
type EventState string

const (
	EventStateOn  EventState = "on"
	EventStateOff EventState = "off"
)

// SpecificAssetId pairs an external asset identifier with its semantic
// meaning, used by AssetInformation and Entity.
type SpecificAssetId struct {
	Name           string     `json:"name"`
	Value          string     `json:"value"`
	SemanticId     *Reference `json:"semanticId,omitempty"`
	ExternalSubjectId *Reference `json:"externalSubjectId,omitempty"`
}

// OperationVariable wraps a nested SubmodelElement as a named input, output,
// or inoutput parameter of an Operation.
type OperationVariable struct {
	Value *SubmodelElement `json:"value"`
}

// SubmodelElement is the single Go representation of all fourteen AAS
// SubmodelElement variants, discriminated by ModelType. Every component that
// cares about a specific variant (projection, externalization, value
// extraction, storage) switches on ModelType explicitly — there is no
// interface hierarchy or visitor to hide the closed set from the compiler.
//
// Fields are grouped by the variant(s) that use them; a field left at its
// zero value is simply absent for variants that don't carry it.
type SubmodelElement struct {
	ModelType   ModelType    `json:"modelType"`
	IdShort     string       `json:"idShort,omitempty"`
	Category    string       `json:"category,omitempty"`
	DisplayName []LangString `json:"displayName,omitempty"`
	Description []LangString `json:"description,omitempty"`
	SemanticId  *Reference   `json:"semanticId,omitempty"`

	// Property
	Value     *string `json:"value,omitempty"`
	ValueType string  `json:"valueType,omitempty"`

	// MultiLanguageProperty
	LangStringValue []LangString `json:"langStringValue,omitempty"`

	// Range
	Min *string `json:"min,omitempty"`
	Max *string `json:"max,omitempty"`

	// Blob, File
	ContentType string `json:"contentType,omitempty"`

	// ReferenceElement
	ReferenceValue *Reference `json:"referenceValue,omitempty"`

	// RelationshipElement, AnnotatedRelationshipElement
	First  *Reference `json:"first,omitempty"`
	Second *Reference `json:"second,omitempty"`

	// AnnotatedRelationshipElement
	Annotations []SubmodelElement `json:"annotations,omitempty"`

	// Entity
	EntityType       EntityType        `json:"entityType,omitempty"`
	GlobalAssetId    string            `json:"globalAssetId,omitempty"`
	SpecificAssetIds []SpecificAssetId `json:"specificAssetIds,omitempty"`
	Statements       []SubmodelElement `json:"statements,omitempty"`

	// Operation
	InputVariables    []OperationVariable `json:"inputVariables,omitempty"`
	OutputVariables   []OperationVariable `json:"outputVariables,omitempty"`
	InoutputVariables []OperationVariable `json:"inoutputVariables,omitempty"`

	// BasicEventElement
	Observed  *Reference     `json:"observed,omitempty"`
	Direction EventDirection `json:"direction,omitempty"`
	State     EventState     `json:"state,omitempty"`

	// SubmodelElementCollection, SubmodelElementList
	Value_ []SubmodelElement `json:"value,omitempty"`

	// SubmodelElementList
	TypeValueListElement ModelType `json:"typeValueListElement,omitempty"`
	OrderRelevant        *bool     `json:"orderRelevant,omitempty"`
}

// elementEnvelope mirrors SubmodelElement's JSON shape but with a Value
// field typed as json.RawMessage, letting Property's scalar `value` string
// and collection/list's array `value` share a wire tag while Go keeps them
// in separate struct fields.
type elementEnvelope struct {
	ModelType            ModelType           `json:"modelType"`
	IdShort              string              `json:"idShort,omitempty"`
	Category             string              `json:"category,omitempty"`
	DisplayName          []LangString        `json:"displayName,omitempty"`
	Description          []LangString        `json:"description,omitempty"`
	SemanticId           *Reference          `json:"semanticId,omitempty"`
	Value                json.RawMessage     `json:"value,omitempty"`
	ValueType            string              `json:"valueType,omitempty"`
	LangStringValue      []LangString        `json:"langStringValue,omitempty"`
	Min                  *string             `json:"min,omitempty"`
	Max                  *string             `json:"max,omitempty"`
	ContentType          string              `json:"contentType,omitempty"`
	ReferenceValue       *Reference          `json:"referenceValue,omitempty"`
	First                *Reference          `json:"first,omitempty"`
	Second               *Reference          `json:"second,omitempty"`
	Annotations          []SubmodelElement   `json:"annotations,omitempty"`
	EntityType           EntityType          `json:"entityType,omitempty"`
	GlobalAssetId        string              `json:"globalAssetId,omitempty"`
	SpecificAssetIds     []SpecificAssetId   `json:"specificAssetIds,omitempty"`
	Statements           []SubmodelElement   `json:"statements,omitempty"`
	InputVariables       []OperationVariable `json:"inputVariables,omitempty"`
	OutputVariables      []OperationVariable `json:"outputVariables,omitempty"`
	InoutputVariables    []OperationVariable `json:"inoutputVariables,omitempty"`
	Observed             *Reference          `json:"observed,omitempty"`
	Direction            EventDirection      `json:"direction,omitempty"`
	State                EventState          `json:"state,omitempty"`
	TypeValueListElement ModelType           `json:"typeValueListElement,omitempty"`
	OrderRelevant        *bool               `json:"orderRelevant,omitempty"`
}

// UnmarshalJSON dispatches on modelType before decoding the shared `value`
// tag into whichever Go field that variant actually uses.
func (e *SubmodelElement) UnmarshalJSON(data []byte) error {
	var env elementEnvelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("domain: decode submodel element: %w", err)
	}
	if !validModelTypes[env.ModelType] {
		return fmt.Errorf("domain: unknown modelType %q", env.ModelType)
	}

	*e = SubmodelElement{
		ModelType:            env.ModelType,
		IdShort:              env.IdShort,
		Category:             env.Category,
		DisplayName:          env.DisplayName,
		Description:          env.Description,
		SemanticId:           env.SemanticId,
		ValueType:            env.ValueType,
		LangStringValue:      env.LangStringValue,
		Min:                  env.Min,
		Max:                  env.Max,
		ContentType:          env.ContentType,
		ReferenceValue:       env.ReferenceValue,
		First:                env.First,
		Second:               env.Second,
		Annotations:          env.Annotations,
		EntityType:           env.EntityType,
		GlobalAssetId:        env.GlobalAssetId,
		SpecificAssetIds:     env.SpecificAssetIds,
		Statements:           env.Statements,
		InputVariables:       env.InputVariables,
		OutputVariables:      env.OutputVariables,
		InoutputVariables:    env.InoutputVariables,
		Observed:             env.Observed,
		Direction:            env.Direction,
		State:                env.State,
		TypeValueListElement: env.TypeValueListElement,
		OrderRelevant:        env.OrderRelevant,
	}

	if len(env.Value) == 0 {
		return nil
	}

	switch env.ModelType {
	case ModelTypeSubmodelElementCollection, ModelTypeSubmodelElementList:
		var children []SubmodelElement
		if err := json.Unmarshal(env.Value, &children); err != nil {
			return fmt.Errorf("domain: %s.value: %w", env.ModelType, err)
		}
		e.Value_ = children
	default:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return fmt.Errorf("domain: %s.value: %w", env.ModelType, err)
		}
		e.Value = &s
	}
	return nil
}

// MarshalJSON emits the shared `value` tag from whichever Go field this
// variant populates, in camelCase, with absent fields omitted.
func (e SubmodelElement) MarshalJSON() ([]byte, error) {
	env := elementEnvelope{
		ModelType:            e.ModelType,
		IdShort:              e.IdShort,
		Category:             e.Category,
		DisplayName:          e.DisplayName,
		Description:          e.Description,
		SemanticId:           e.SemanticId,
		ValueType:            e.ValueType,
		LangStringValue:      e.LangStringValue,
		Min:                  e.Min,
		Max:                  e.Max,
		ContentType:          e.ContentType,
		ReferenceValue:       e.ReferenceValue,
		First:                e.First,
		Second:               e.Second,
		Annotations:          e.Annotations,
		EntityType:           e.EntityType,
		GlobalAssetId:        e.GlobalAssetId,
		SpecificAssetIds:     e.SpecificAssetIds,
		Statements:           e.Statements,
		InputVariables:       e.InputVariables,
		OutputVariables:      e.OutputVariables,
		InoutputVariables:    e.InoutputVariables,
		Observed:             e.Observed,
		Direction:            e.Direction,
		State:                e.State,
		TypeValueListElement: e.TypeValueListElement,
		OrderRelevant:        e.OrderRelevant,
	}

	switch e.ModelType {
	case ModelTypeSubmodelElementCollection, ModelTypeSubmodelElementList:
		if e.Value_ != nil {
			raw, err := json.Marshal(e.Value_)
			if err != nil {
				return nil, err
			}
			env.Value = raw
		}
	default:
		if e.Value != nil {
			raw, err := json.Marshal(*e.Value)
			if err != nil {
				return nil, err
			}
			env.Value = raw
		}
	}
	return json.Marshal(env)
}

// Validate enforces the idShort grammar (when present) and the
// structural/variant-specific invariants, recursing into nested
// elements.
func (e SubmodelElement) Validate(isListChild bool) error {
	if !validModelTypes[e.ModelType] {
		return fmt.Errorf("domain: unknown modelType %q", e.ModelType)
	}
	if e.IdShort == "" {
		if !isListChild {
			return fmt.Errorf("domain: idShort required unless element is a direct SubmodelElementList child")
		}
	} else if err := ValidateIdShort(e.IdShort); err != nil {
		return err
	}

	switch e.ModelType {
	case ModelTypeBlob:
		if e.Value != nil {
			if err := validateBlobValue(*e.Value); err != nil {
				return fmt.Errorf("domain: Blob %q: %w", e.IdShort, err)
			}
		}
	case ModelTypeFile:
		if e.Value != nil {
			if err := validateFileValue(*e.Value); err != nil {
				return fmt.Errorf("domain: File %q: %w", e.IdShort, err)
			}
		}
	case ModelTypeRelationshipElement, ModelTypeAnnotatedRelationshipElement:
		if e.First == nil || e.Second == nil {
			return fmt.Errorf("domain: %s %q requires first and second", e.ModelType, e.IdShort)
		}
	case ModelTypeBasicEventElement:
		if e.Observed == nil {
			return fmt.Errorf("domain: BasicEventElement %q requires observed", e.IdShort)
		}
	}

	children := childrenOf(e)
	listChild := e.ModelType == ModelTypeSubmodelElementList
	for i, c := range children {
		if err := c.Validate(listChild); err != nil {
			return fmt.Errorf("domain: %s[%d]: %w", e.ModelType, i, err)
		}
	}
	return nil
}

// childrenOf returns the nested elements that every SubmodelElement variant
// may carry: collection/list members, relationship annotations, entity
// statements, and operation variable payloads.
func childrenOf(e SubmodelElement) []SubmodelElement {
	var out []SubmodelElement
	out = append(out, e.Value_...)
	out = append(out, e.Annotations...)
	out = append(out, e.Statements...)
	for _, v := range e.InputVariables {
		if v.Value != nil {
			out = append(out, *v.Value)
		}
	}
	for _, v := range e.OutputVariables {
		if v.Value != nil {
			out = append(out, *v.Value)
		}
	}
	for _, v := range e.InoutputVariables {
		if v.Value != nil {
			out = append(out, *v.Value)
		}
	}
	return out
}

// validateBlobValue checks that a Blob/File value is either a base64
// payload, a data URI, or an already-externalized /blobs/{uuid} reference.
func validateBlobValue(v string) error {
	if v == "" {
		return nil
	}
	if strings.HasPrefix(v, "/blobs/") {
		return nil
	}
	if strings.HasPrefix(v, "data:") {
		if !strings.Contains(v, ";base64,") {
			return fmt.Errorf("data URI must be base64-encoded")
		}
		return nil
	}
	if isBase64(v) {
		return nil
	}
	return fmt.Errorf("value must be base64, a data URI, or a /blobs/{uuid} reference")
}

// validateFileValue additionally accepts a bare filesystem/URI path, the one
// shape a File may carry that a Blob never does.
func validateFileValue(v string) error {
	if v == "" {
		return nil
	}
	if err := validateBlobValue(v); err == nil {
		return nil
	}
	if strings.Contains(v, "/") || strings.Contains(v, ".") {
		return nil
	}
	return fmt.Errorf("value must be base64, a data URI, a path, or a /blobs/{uuid} reference")
}

func isBase64(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '+', r == '/', r == '=':
		default:
			return false
		}
	}
	return len(s)%4 == 0
}

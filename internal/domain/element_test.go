package domain

import (
	"encoding/json"
	"testing"
)

func TestDecodePropertyValue(t *testing.T) {
	raw := `{"modelType":"Property","idShort":"temperature","value":"21.5","valueType":"xs:double"}`
	var e SubmodelElement
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if e.Value == nil || *e.Value != "21.5" {
		t.Fatalf("Value = %v, want 21.5", e.Value)
	}
	if err := e.Validate(false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeCollectionChildren(t *testing.T) {
	raw := `{
		"modelType":"SubmodelElementCollection",
		"idShort":"address",
		"value":[
			{"modelType":"Property","idShort":"city","value":"Boston","valueType":"xs:string"}
		]
	}`
	var e SubmodelElement
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(e.Value_) != 1 || e.Value_[0].IdShort != "city" {
		t.Fatalf("Value_ = %+v", e.Value_)
	}
	if err := e.Validate(false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeUnknownModelTypeRejected(t *testing.T) {
	raw := `{"modelType":"Bogus","idShort":"x"}`
	var e SubmodelElement
	if err := json.Unmarshal([]byte(raw), &e); err == nil {
		t.Fatal("expected error for unknown modelType")
	}
}

func TestValidateListChildAllowsMissingIdShort(t *testing.T) {
	e := SubmodelElement{ModelType: ModelTypeProperty}
	if err := e.Validate(false); err == nil {
		t.Fatal("expected error: idShort required outside a list")
	}
	if err := e.Validate(true); err != nil {
		t.Fatalf("Validate(isListChild=true): %v", err)
	}
}

func TestValidateRelationshipRequiresFirstAndSecond(t *testing.T) {
	e := SubmodelElement{ModelType: ModelTypeRelationshipElement, IdShort: "rel"}
	if err := e.Validate(false); err == nil {
		t.Fatal("expected error: relationship element missing first/second")
	}
}

func TestValidateBasicEventElementRequiresObserved(t *testing.T) {
	e := SubmodelElement{ModelType: ModelTypeBasicEventElement, IdShort: "evt"}
	if err := e.Validate(false); err == nil {
		t.Fatal("expected error: BasicEventElement missing observed")
	}
}

func TestValidateBlobValueRejectsGarbage(t *testing.T) {
	bad := "not base64 at all!!"
	e := SubmodelElement{ModelType: ModelTypeBlob, IdShort: "img", Value: &bad}
	if err := e.Validate(false); err == nil {
		t.Fatal("expected error for malformed Blob value")
	}
}

func TestValidateBlobValueAcceptsExternalizedReference(t *testing.T) {
	ref := "/blobs/0f1e2d3c-4b5a-6978-8a9b-0c1d2e3f4a5b"
	e := SubmodelElement{ModelType: ModelTypeBlob, IdShort: "img", Value: &ref}
	if err := e.Validate(false); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestMarshalRoundTripsCollection(t *testing.T) {
	city := "Boston"
	e := SubmodelElement{
		ModelType: ModelTypeSubmodelElementCollection,
		IdShort:   "address",
		Value_: []SubmodelElement{
			{ModelType: ModelTypeProperty, IdShort: "city", Value: &city, ValueType: "xs:string"},
		},
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var round SubmodelElement
	if err := json.Unmarshal(b, &round); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(round.Value_) != 1 || *round.Value_[0].Value != "Boston" {
		t.Fatalf("round trip mismatch: %+v", round)
	}
}

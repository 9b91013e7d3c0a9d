package projection

import (
	"encoding/json"
	"fmt"

	"github.com/titan-aas/titan-aas/internal/domain"
)

// Modifiers is the set of IDTA serialization modifiers applied to a
// navigated element or Submodel, in content→level→extent order.
type Modifiers struct {
	Content string // normal (default), metadata, value; Apply rejects reference and path as unsupported
	Level   string // deep (default), core
	Extent  string // withBlobValue (default), withoutBlobValue
}

// DefaultModifiers returns the modifier set IDTA treats as the unqualified
// default: full normal content, deep nesting, blob values included.
func DefaultModifiers() Modifiers {
	return Modifiers{Content: "normal", Level: "deep", Extent: "withBlobValue"}
}

// metadataFields are the keys content=metadata retains.
var metadataFields = map[string]bool{
	"modelType":   true,
	"idShort":     true,
	"semanticId":  true,
	"category":    true,
	"description": true,
	"displayName": true,
}

// valueFields are the keys content=value retains alongside a recursively
// projected nested value.
var valueFields = map[string]bool{
	"modelType":        true,
	"value":            true,
	"valueType":        true,
	"min":              true,
	"max":              true,
	"contentType":      true,
	"first":            true,
	"second":           true,
	"entityType":       true,
	"globalAssetId":    true,
	"specificAssetIds": true,
	"observed":         true,
	"direction":        true,
	"state":            true,
}

// Apply projects el through mods in content→level→extent order and returns
// the generic value the caller should serialize as the HTTP response body.
// Apply is pure: it never mutates el.
func Apply(el domain.SubmodelElement, mods Modifiers) (interface{}, error) {
	m, err := toMap(el)
	if err != nil {
		return nil, err
	}

	switch mods.Content {
	case "", "normal":
		// no-op: full representation
	case "metadata":
		m = projectMetadata(m)
	case "value":
		return ExtractValue(el), nil
	default:
		return nil, fmt.Errorf("projection: unsupported content modifier %q", mods.Content)
	}

	if mods.Level == "core" {
		m = applyCoreLevel(m)
	}

	if mods.Extent == "withoutBlobValue" {
		m = stripBlobValues(m)
	}

	return m, nil
}

// toMap round-trips el through its JSON encoding (which already applies
// camelCase field names and omits absent fields) into a generic tree so the
// modifier passes below can operate uniformly regardless of variant.
func toMap(el domain.SubmodelElement) (map[string]interface{}, error) {
	raw, err := json.Marshal(el)
	if err != nil {
		return nil, fmt.Errorf("projection: encode element: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("projection: decode element: %w", err)
	}
	return m, nil
}

// projectMetadata keeps identification/semantic fields only, recursing into
// any nested collection/list members so every level of the subtree is
// equally stripped.
func projectMetadata(payload map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	isCollectionLike := payload["modelType"] == string(domain.ModelTypeSubmodelElementCollection) ||
		payload["modelType"] == string(domain.ModelTypeSubmodelElementList)

	for key, val := range payload {
		switch {
		case key == "value" && isCollectionLike:
			result[key] = projectMetadataList(val)
		case metadataFields[key]:
			result[key] = val
		}
	}
	return result
}

func projectMetadataList(val interface{}) interface{} {
	arr, ok := val.([]interface{})
	if !ok {
		return val
	}
	out := make([]interface{}, 0, len(arr))
	for _, item := range arr {
		if child, ok := item.(map[string]interface{}); ok {
			out = append(out, projectMetadata(child))
		}
	}
	return out
}

// applyCoreLevel drops the top-level nested-children keys. This is a
// single pass over the element being projected — its children, having
// been removed, are never themselves re-projected.
func applyCoreLevel(payload map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	for key, val := range payload {
		switch key {
		case "submodelElements", "value", "statements", "annotations":
			continue
		}
		result[key] = val
	}
	return result
}

// stripBlobValues recursively removes the `value` field from every Blob
// subtree, independent of nesting depth.
func stripBlobValues(payload map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		result[k] = v
	}

	if result["modelType"] == string(domain.ModelTypeBlob) {
		delete(result, "value")
	}

	isCollectionLike := payload["modelType"] == string(domain.ModelTypeSubmodelElementCollection) ||
		payload["modelType"] == string(domain.ModelTypeSubmodelElementList)
	if isCollectionLike {
		if arr, ok := result["value"].([]interface{}); ok {
			out := make([]interface{}, 0, len(arr))
			for _, item := range arr {
				if child, ok := item.(map[string]interface{}); ok {
					out = append(out, stripBlobValues(child))
				} else {
					out = append(out, item)
				}
			}
			result["value"] = out
		}
	}
	if arr, ok := result["statements"].([]interface{}); ok {
		out := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			if child, ok := item.(map[string]interface{}); ok {
				out = append(out, stripBlobValues(child))
			} else {
				out = append(out, item)
			}
		}
		result["statements"] = out
	}
	if arr, ok := result["annotations"].([]interface{}); ok {
		out := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			if child, ok := item.(map[string]interface{}); ok {
				out = append(out, stripBlobValues(child))
			} else {
				out = append(out, item)
			}
		}
		result["annotations"] = out
	}
	return result
}

// ExtractValue implements the content=value extraction table,
// recursing into collection/list children.
func ExtractValue(el domain.SubmodelElement) interface{} {
	switch el.ModelType {
	case domain.ModelTypeProperty:
		if el.Value == nil {
			return nil
		}
		return *el.Value
	case domain.ModelTypeMultiLanguageProperty:
		return el.LangStringValue
	case domain.ModelTypeRange:
		return map[string]interface{}{"min": derefOrNil(el.Min), "max": derefOrNil(el.Max)}
	case domain.ModelTypeBlob, domain.ModelTypeFile, domain.ModelTypeReferenceElement:
		if el.ModelType == domain.ModelTypeReferenceElement {
			return el.ReferenceValue
		}
		return derefOrNil(el.Value)
	case domain.ModelTypeSubmodelElementCollection, domain.ModelTypeSubmodelElementList:
		out := make([]interface{}, len(el.Value_))
		for i, c := range el.Value_ {
			out[i] = ExtractValue(c)
		}
		return out
	case domain.ModelTypeEntity:
		return map[string]interface{}{
			"entityType":       el.EntityType,
			"globalAssetId":    el.GlobalAssetId,
			"specificAssetIds": el.SpecificAssetIds,
		}
	default:
		return nil
	}
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

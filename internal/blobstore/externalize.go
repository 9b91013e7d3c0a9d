package blobstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/titan-aas/titan-aas/internal/domain"
)

// BlobRefPrefix is the opaque-reference prefix a Blob/File value is
// rewritten to once its content has been moved to a Backend.
const BlobRefPrefix = "/blobs/"

// ExternalizationResult reports what ExternalizeSubmodel did: the metadata
// rows for newly stored blobs, and the (blobID -> idShortPath) map of
// values that were already externalized references.
type ExternalizationResult struct {
	NewBlobs   []Metadata
	Referenced map[string]string
}

// ExternalizeSubmodel walks sm's element tree depth-first, moving every
// Blob/File value that exceeds backend's inline threshold into backend and
// rewriting the element's value to a /blobs/{uuid} reference. sm is
// mutated in place.
func ExternalizeSubmodel(ctx context.Context, sm *domain.Submodel, backend Backend) (*ExternalizationResult, error) {
	result := &ExternalizationResult{Referenced: map[string]string{}}
	if err := externalizeElements(ctx, sm.SubmodelElements, "", false, sm.ID, backend, result); err != nil {
		return nil, err
	}
	return result, nil
}

func buildPath(parentPath, idShort string, index int, hasIndex bool) string {
	if hasIndex {
		if parentPath == "" {
			return fmt.Sprintf("[%d]", index)
		}
		return fmt.Sprintf("%s[%d]", parentPath, index)
	}
	if idShort == "" {
		return parentPath
	}
	if parentPath == "" {
		return idShort
	}
	return parentPath + "." + idShort
}

func externalizeElements(ctx context.Context, elements []domain.SubmodelElement, parentPath string, parentIsList bool, submodelID string, backend Backend, result *ExternalizationResult) error {
	for idx := range elements {
		elementPath := buildPath(parentPath, elements[idx].IdShort, idx, parentIsList)
		if err := externalizeOneElement(ctx, &elements[idx], elementPath, submodelID, backend, result); err != nil {
			return err
		}
	}
	return nil
}

// externalizeOneElement applies externalization to a single element
// reachable by pointer — whether that pointer is a slot in a parent's
// elements slice or an Operation variable's *SubmodelElement — then
// recurses into whichever nested structures that variant carries.
func externalizeOneElement(ctx context.Context, el *domain.SubmodelElement, elementPath, submodelID string, backend Backend, result *ExternalizationResult) error {
	switch el.ModelType {
	case domain.ModelTypeBlob:
		if err := externalizeBlob(ctx, el, elementPath, submodelID, backend, result); err != nil {
			return err
		}
	case domain.ModelTypeFile:
		if err := externalizeFile(ctx, el, elementPath, submodelID, backend, result); err != nil {
			return err
		}
	}

	switch el.ModelType {
	case domain.ModelTypeSubmodelElementCollection, domain.ModelTypeSubmodelElementList:
		if err := externalizeElements(ctx, el.Value_, elementPath, el.ModelType == domain.ModelTypeSubmodelElementList, submodelID, backend, result); err != nil {
			return err
		}
	}

	if len(el.Annotations) > 0 {
		if err := externalizeElements(ctx, el.Annotations, elementPath, false, submodelID, backend, result); err != nil {
			return err
		}
	}
	if len(el.Statements) > 0 {
		if err := externalizeElements(ctx, el.Statements, elementPath, false, submodelID, backend, result); err != nil {
			return err
		}
	}

	if err := externalizeOperationVariables(ctx, "inputVariables", el.InputVariables, elementPath, submodelID, backend, result); err != nil {
		return err
	}
	if err := externalizeOperationVariables(ctx, "outputVariables", el.OutputVariables, elementPath, submodelID, backend, result); err != nil {
		return err
	}
	if err := externalizeOperationVariables(ctx, "inoutputVariables", el.InoutputVariables, elementPath, submodelID, backend, result); err != nil {
		return err
	}
	return nil
}

func externalizeOperationVariables(ctx context.Context, key string, vars []domain.OperationVariable, parentPath, submodelID string, backend Backend, result *ExternalizationResult) error {
	for i, v := range vars {
		if v.Value == nil {
			continue
		}
		varPath := buildPath(buildPath(parentPath, key, 0, false), "", i, true)
		if err := externalizeOneElement(ctx, vars[i].Value, varPath, submodelID, backend, result); err != nil {
			return err
		}
	}
	return nil
}

func isBlobRef(value string) (string, bool) {
	if strings.HasPrefix(value, BlobRefPrefix) {
		return value[len(BlobRefPrefix):], true
	}
	return "", false
}

func externalizeBlob(ctx context.Context, el *domain.SubmodelElement, elementPath, submodelID string, backend Backend, result *ExternalizationResult) error {
	if el.Value == nil || *el.Value == "" {
		return nil
	}
	if id, ok := isBlobRef(*el.Value); ok {
		result.Referenced[id] = elementPath
		return nil
	}

	contentType := el.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	content, err := base64.StdEncoding.DecodeString(*el.Value)
	if err != nil {
		// Not base64 — already externalized or malformed; leave as-is.
		return nil
	}

	if !backend.ShouldExternalize(content, contentType) {
		return nil
	}

	meta, err := backend.Store(ctx, submodelID, elementPath, content, contentType, "")
	if err != nil {
		return err
	}
	result.NewBlobs = append(result.NewBlobs, meta)
	ref := BlobRefPrefix + meta.ID
	el.Value = &ref
	return nil
}

func externalizeFile(ctx context.Context, el *domain.SubmodelElement, elementPath, submodelID string, backend Backend, result *ExternalizationResult) error {
	if el.Value == nil || *el.Value == "" {
		return nil
	}
	if id, ok := isBlobRef(*el.Value); ok {
		result.Referenced[id] = elementPath
		return nil
	}

	content, inferredType, ok := extractDataURI(*el.Value)
	if !ok {
		return nil
	}
	contentType := el.ContentType
	if contentType == "" {
		contentType = inferredType
	}

	if !backend.ShouldExternalize(content, contentType) {
		return nil
	}

	meta, err := backend.Store(ctx, submodelID, elementPath, content, contentType, "")
	if err != nil {
		return err
	}
	result.NewBlobs = append(result.NewBlobs, meta)
	ref := BlobRefPrefix + meta.ID
	el.Value = &ref
	return nil
}

// extractDataURI parses a `data:<content-type>;base64,<payload>` value.
func extractDataURI(value string) ([]byte, string, bool) {
	if !strings.HasPrefix(value, "data:") || !strings.Contains(value, ";base64,") {
		return nil, "", false
	}
	parts := strings.SplitN(value, ",", 2)
	if len(parts) != 2 {
		return nil, "", false
	}
	header, b64 := parts[0], parts[1]
	contentType := strings.SplitN(strings.TrimPrefix(header, "data:"), ";", 2)[0]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	content, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, "", false
	}
	return content, contentType, true
}

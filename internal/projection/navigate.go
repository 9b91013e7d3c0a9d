package projection

import (
	"fmt"

	"github.com/titan-aas/titan-aas/internal/domain"
)

// ErrNotFound is returned by Navigate when no element exists at the given
// idShortPath.
var ErrNotFound = fmt.Errorf("projection: element not found")

// operationVariableSegments are the synthetic container names that expose an
// Operation's variable lists to path navigation.
var operationVariableSegments = map[string]func(domain.SubmodelElement) []domain.OperationVariable{
	"inputVariables":    func(e domain.SubmodelElement) []domain.OperationVariable { return e.InputVariables },
	"outputVariables":   func(e domain.SubmodelElement) []domain.OperationVariable { return e.OutputVariables },
	"inoutputVariables": func(e domain.SubmodelElement) []domain.OperationVariable { return e.InoutputVariables },
}

// NavigateSubmodel walks idShortPath from the Submodel's top-level elements.
// An empty path returns an error — callers that want the whole Submodel
// should not call Navigate.
func NavigateSubmodel(sm domain.Submodel, path string) (*domain.SubmodelElement, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("projection: empty path has no element to navigate to")
	}
	children := sm.SubmodelElements
	return navigate(children, segs)
}

// NavigateElement walks idShortPath starting from el's own children
// (collection/list members, relationship annotations, entity statements,
// or operation variables).
func NavigateElement(el domain.SubmodelElement, path string) (*domain.SubmodelElement, error) {
	segs, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return &el, nil
	}
	return navigateFrom(el, segs)
}

func navigate(children []domain.SubmodelElement, segs []Segment) (*domain.SubmodelElement, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("projection: navigate called with no segments")
	}
	seg := segs[0]
	if seg.IsIdx {
		if seg.Index < 0 || seg.Index >= len(children) {
			return nil, ErrNotFound
		}
		cur := children[seg.Index]
		if len(segs) == 1 {
			return &cur, nil
		}
		return navigateFrom(cur, segs[1:])
	}

	for _, c := range children {
		if c.IdShort == seg.Name {
			if len(segs) == 1 {
				out := c
				return &out, nil
			}
			return navigateFrom(c, segs[1:])
		}
	}
	return nil, ErrNotFound
}

// navigateFrom resolves the remaining path segments against el's own
// children: plain collection/list membership, relationship annotations,
// entity statements, or — via the synthetic inputVariables/outputVariables/
// inoutputVariables segment name — an Operation's variable payloads.
func navigateFrom(el domain.SubmodelElement, segs []Segment) (*domain.SubmodelElement, error) {
	if len(segs) == 0 {
		return &el, nil
	}

	if getVars, ok := operationVariableSegments[segs[0].Name]; ok && el.ModelType == domain.ModelTypeOperation {
		if len(segs) < 2 || !segs[1].IsIdx {
			return nil, fmt.Errorf("projection: %s must be followed by an index", segs[0].Name)
		}
		vars := getVars(el)
		idx := segs[1].Index
		if idx < 0 || idx >= len(vars) || vars[idx].Value == nil {
			return nil, ErrNotFound
		}
		rest := segs[2:]
		if len(rest) == 0 {
			v := *vars[idx].Value
			return &v, nil
		}
		return navigateFrom(*vars[idx].Value, rest)
	}

	var children []domain.SubmodelElement
	switch el.ModelType {
	case domain.ModelTypeSubmodelElementCollection, domain.ModelTypeSubmodelElementList:
		children = el.Value_
	case domain.ModelTypeAnnotatedRelationshipElement:
		children = el.Annotations
	case domain.ModelTypeEntity:
		children = el.Statements
	default:
		return nil, ErrNotFound
	}
	return navigate(children, segs)
}

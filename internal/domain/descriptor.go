package domain

import "fmt"

// ProtocolSecurityType enumerates the security attribute values an Endpoint
// may advertise for an interface.
type ProtocolSecurityType string

const (
	ProtocolSecurityNone    ProtocolSecurityType = "NONE"
	ProtocolSecurityRFCTLSA ProtocolSecurityType = "RFC_TLSA"
	ProtocolSecurityW3CDID  ProtocolSecurityType = "W3C_DID"
)

// ProtocolInformation carries the connection details of a registry Endpoint.
type ProtocolInformation struct {
	Href                    string                 `json:"href"`
	EndpointProtocol        string                 `json:"endpointProtocol,omitempty"`
	EndpointProtocolVersion []string               `json:"endpointProtocolVersion,omitempty"`
	Subprotocol             string                 `json:"subprotocol,omitempty"`
	SubprotocolBody         string                 `json:"subprotocolBody,omitempty"`
	SubprotocolBodyEncoding string                 `json:"subprotocolBodyEncoding,omitempty"`
	SecurityAttributes      []ProtocolSecurityType `json:"securityAttributes,omitempty"`
}

// Endpoint is a single reachable interface for an AAS or Submodel as listed
// by the registry.
type Endpoint struct {
	Interface           string              `json:"interface"`
	ProtocolInformation ProtocolInformation `json:"protocolInformation"`
}

// Validate checks the required interface and href fields.
func (e Endpoint) Validate() error {
	if e.Interface == "" {
		return fmt.Errorf("domain: endpoint interface must not be empty")
	}
	if e.ProtocolInformation.Href == "" {
		return fmt.Errorf("domain: endpoint protocolInformation.href must not be empty")
	}
	return nil
}

// SubmodelDescriptor is the registry-only view of a Submodel: identification
// plus reachable endpoints. It does not necessarily resolve to a
// locally-hosted entity.
type SubmodelDescriptor struct {
	Identifiable

	Endpoints []Endpoint `json:"endpoints,omitempty"`
}

// Validate checks the shared Identifiable invariants and every endpoint.
func (s SubmodelDescriptor) Validate() error {
	if err := s.Identifiable.Validate(); err != nil {
		return err
	}
	for i, ep := range s.Endpoints {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("domain: endpoints[%d]: %w", i, err)
		}
	}
	return nil
}

// AssetAdministrationShellDescriptor is the registry-only view of an AAS:
// identification, asset information, reachable endpoints, and the
// descriptors of its known submodels.
type AssetAdministrationShellDescriptor struct {
	Identifiable

	AssetKind           AssetKind            `json:"assetKind,omitempty"`
	AssetType           string               `json:"assetType,omitempty"`
	GlobalAssetId       string               `json:"globalAssetId,omitempty"`
	SpecificAssetIds    []SpecificAssetId    `json:"specificAssetIds,omitempty"`
	Endpoints           []Endpoint           `json:"endpoints,omitempty"`
	SubmodelDescriptors []SubmodelDescriptor `json:"submodelDescriptors,omitempty"`
}

// Validate checks the shared Identifiable invariants, every endpoint, and
// every nested submodel descriptor.
func (a AssetAdministrationShellDescriptor) Validate() error {
	if err := a.Identifiable.Validate(); err != nil {
		return err
	}
	for i, ep := range a.Endpoints {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("domain: endpoints[%d]: %w", i, err)
		}
	}
	for i, sd := range a.SubmodelDescriptors {
		if err := sd.Validate(); err != nil {
			return fmt.Errorf("domain: submodelDescriptors[%d]: %w", i, err)
		}
	}
	return nil
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/titan-aas/titan-aas/internal/codec"
)

func createTestSubmodel(t *testing.T, server string, id string) string {
	t.Helper()
	sm := map[string]interface{}{
		"id": id,
		"submodelElements": []map[string]interface{}{
			{
				"modelType": "Property",
				"idShort":   "Temperature",
				"valueType": "xs:string",
				"value":     "21",
			},
		},
	}
	resp, err := http.Post(server+"/submodels/", "application/json", bytes.NewReader(marshalJSON(t, sm)))
	if err != nil {
		t.Fatalf("create submodel: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create submodel status = %d", resp.StatusCode)
	}
	return codec.Encode(id)
}

func TestSubmodelElementNavigation(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	smID := "https://titan-aas.example/submodels/nav-1"
	idB64 := createTestSubmodel(t, server.URL, smID)

	// Get the element.
	resp, err := http.Get(server.URL + "/submodels/" + idB64 + "/submodel-elements/Temperature")
	if err != nil {
		t.Fatalf("get element: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get element status = %d", resp.StatusCode)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	resp.Body.Close()
	if got["idShort"] != "Temperature" {
		t.Fatalf("idShort = %v, want Temperature", got["idShort"])
	}

	// Get the raw value.
	resp, err = http.Get(server.URL + "/submodels/" + idB64 + "/submodel-elements/Temperature/$value")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	var value string
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	resp.Body.Close()
	if value != "21" {
		t.Fatalf("value = %q, want 21", value)
	}

	// Patch the value directly.
	req, _ := http.NewRequest(http.MethodPatch, server.URL+"/submodels/"+idB64+"/submodel-elements/Temperature/$value", bytes.NewReader(marshalJSON(t, "22")))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("patch value: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("patch value status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/submodels/" + idB64 + "/submodel-elements/Temperature/$value")
	if err != nil {
		t.Fatalf("get value after patch: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		t.Fatalf("decode value after patch: %v", err)
	}
	resp.Body.Close()
	if value != "22" {
		t.Fatalf("value after patch = %q, want 22", value)
	}

	// Merge-patch the element's category.
	req, _ = http.NewRequest(http.MethodPatch, server.URL+"/submodels/"+idB64+"/submodel-elements/Temperature", bytes.NewReader([]byte(`{"category":"CONSTANT"}`)))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("merge patch: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("merge patch status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/submodels/" + idB64 + "/submodel-elements/Temperature")
	if err != nil {
		t.Fatalf("get after merge patch: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode after merge patch: %v", err)
	}
	resp.Body.Close()
	if got["category"] != "CONSTANT" {
		t.Fatalf("category after merge patch = %v, want CONSTANT", got["category"])
	}

	// Delete the element.
	req, _ = http.NewRequest(http.MethodDelete, server.URL+"/submodels/"+idB64+"/submodel-elements/Temperature", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete element: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete element status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/submodels/" + idB64 + "/submodel-elements/Temperature")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOperationInvokeAndPoll(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	smID := "https://titan-aas.example/submodels/op-1"
	sm := map[string]interface{}{
		"id": smID,
		"submodelElements": []map[string]interface{}{
			{
				"modelType": "Operation",
				"idShort":   "Calibrate",
			},
		},
	}
	resp, err := http.Post(server.URL+"/submodels/", "application/json", bytes.NewReader(marshalJSON(t, sm)))
	if err != nil {
		t.Fatalf("create submodel: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create submodel status = %d", resp.StatusCode)
	}
	resp.Body.Close()
	idB64 := codec.Encode(smID)

	resp, err = http.Post(server.URL+"/submodels/"+idB64+"/submodel-elements/Calibrate/invoke", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("invoke status = %d", resp.StatusCode)
	}
	var handle operationHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		t.Fatalf("decode handle: %v", err)
	}
	resp.Body.Close()
	if handle.HandleID == "" {
		t.Fatalf("expected non-empty handle id")
	}

	resp, err = http.Get(server.URL + "/submodels/" + idB64 + "/operation-results/" + handle.HandleID)
	if err != nil {
		t.Fatalf("poll status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("poll status code = %d", resp.StatusCode)
	}
	var result operationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	resp.Body.Close()
	if result.ExecutionState != "Initiated" {
		t.Fatalf("executionState = %q, want Initiated", result.ExecutionState)
	}
}

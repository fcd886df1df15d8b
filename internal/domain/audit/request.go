package audit

import "strings"

// RequestKind enum
type RequestKind string

const (
	KindAddress RequestKind = "address"
	KindFile    RequestKind = "file"
)

// AnalysisRequest is what the simulator consumes: either a typed contract
// address or the name of an uploaded source file.
type AnalysisRequest struct {
	Kind  RequestKind `json:"kind"`
	Value string      `json:"value"`
}

// AddressRequest builds an address request with the value trimmed.
func AddressRequest(address string) AnalysisRequest {
	return AnalysisRequest{Kind: KindAddress, Value: strings.TrimSpace(address)}
}

// FileRequest builds a file request from an uploaded file name.
func FileRequest(name string) AnalysisRequest {
	return AnalysisRequest{Kind: KindFile, Value: strings.TrimSpace(name)}
}

// Validate returns a *ValidationError when the request carries no value.
func (r AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Value) != "" {
		return nil
	}
	switch r.Kind {
	case KindFile:
		return &ValidationError{Field: "file", Message: "Please select a file to upload."}
	default:
		return &ValidationError{Field: "address", Message: "Please enter a smart contract address or upload a file."}
	}
}

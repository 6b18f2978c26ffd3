package dto

import "spfwatch/internal/flatten"

// FlattenRequest This is necessary to prevent any Mass Assignment Vulnerability attack
type FlattenRequest struct {
	Domain  string           `json:"domain"`
	Record  string           `json:"record,omitempty"`
	Targets []string         `json:"targets"`
	Options *flatten.Options `json:"options,omitempty"`
}

type FlattenResponse struct {
	Result      *flatten.Result `json:"result"`
	OperationID uint64          `json:"operationId,omitempty"`
}

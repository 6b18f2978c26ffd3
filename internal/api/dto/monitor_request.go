package dto

// CheckRequest This is necessary to prevent any Mass Assignment Vulnerability attack
type CheckRequest struct {
	Domain string `json:"domain"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

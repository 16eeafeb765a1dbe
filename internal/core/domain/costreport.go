package domain

import "time"

// CostLineItem is a single priced row of a cost report.
type CostLineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unitPrice"`
	Total     float64 `json:"total"`
}

// CostReport is an append-only cost breakdown linked to a project. TotalCost
// is stored as supplied; range validation is a caller concern.
type CostReport struct {
	ID           string         `json:"id"`
	ProjectID    int            `json:"projectId"`
	Name         string         `json:"name"`
	EngineerID   string         `json:"engineerId,omitempty"`
	EngineerName string         `json:"engineerName,omitempty"`
	OwnerID      string         `json:"ownerId,omitempty"`
	OwnerName    string         `json:"ownerName,omitempty"`
	Items        []CostLineItem `json:"items"`
	TotalCost    float64        `json:"totalCost"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func (r CostReport) clone() CostReport {
	out := r
	out.Items = append([]CostLineItem(nil), r.Items...)
	return out
}

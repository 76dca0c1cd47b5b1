package client

import (
	"context"

	"github.com/ehr/registry/pkg/listview"
	"github.com/ehr/registry/pkg/pagination"
)

// PatientFetcher loads patient pages for a listview.Controller.
func PatientFetcher(c *Client) listview.Fetcher[Patient] {
	return func(ctx context.Context, _ string, p pagination.Params) (*pagination.Page[Patient], error) {
		return c.ListPatients(ctx, p)
	}
}

// OrderFetcher loads one patient's orders; the controller's parent key is
// the patient id.
func OrderFetcher(c *Client) listview.Fetcher[Order] {
	return func(ctx context.Context, patientID string, p pagination.Params) (*pagination.Page[Order], error) {
		return c.listOrders(ctx, patientID, p)
	}
}

package adsense

import (
	"context"

	"adstats/internal/core"
)

// Ports for outbound reporting adapters. Every call carries the credential
// of the current aggregation run; adapters keep no token state of their own.
type (
	// AccountLister returns the reporting accounts visible to the
	// authenticated identity, in the order the API returns them.
	AccountLister interface {
		ListAccounts(ctx context.Context, cred core.Credential) ([]core.Account, error)
	}

	// ReportGenerator issues one estimated-earnings report request for the
	// given account over the given window.
	ReportGenerator interface {
		GenerateReport(ctx context.Context, cred core.Credential, accountID string, w core.DateWindow) (core.ReportTable, error)
	}

	// Backend is everything the aggregator needs from a reporting source.
	Backend interface {
		AccountLister
		ReportGenerator
	}
)

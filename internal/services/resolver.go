package services

import (
	"context"

	"adstats/internal/adsense"
	"adstats/internal/core"
)

// AccountResolver picks the reporting account a run queries.
type AccountResolver struct {
	lister adsense.AccountLister
}

func NewAccountResolver(lister adsense.AccountLister) *AccountResolver {
	return &AccountResolver{lister: lister}
}

// Resolve returns the first account visible to cred. An empty list is a
// NoAccountsError. Remote failures are returned unchanged.
func (r *AccountResolver) Resolve(ctx context.Context, cred core.Credential) (core.Account, error) {
	accounts, err := r.lister.ListAccounts(ctx, cred)
	if err != nil {
		return core.Account{}, err
	}
	if len(accounts) == 0 {
		return core.Account{}, &core.NoAccountsError{}
	}
	account := accounts[0]
	if err := account.Validate(); err != nil {
		return core.Account{}, &core.MalformedResponseError{Reason: "first account has no name"}
	}
	return account, nil
}

// ReportFetcher turns one report request into one earnings value.
type ReportFetcher struct {
	reports adsense.ReportGenerator
}

func NewReportFetcher(reports adsense.ReportGenerator) *ReportFetcher {
	return &ReportFetcher{reports: reports}
}

func (f *ReportFetcher) Fetch(ctx context.Context, cred core.Credential, accountID string, w core.DateWindow) (core.Earnings, error) {
	table, err := f.reports.GenerateReport(ctx, cred, accountID, w)
	if err != nil {
		return core.Earnings{}, err
	}
	return table.EstimatedEarnings()
}

package memory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "adstats/internal/adsense"
	"adstats/internal/core"

	"github.com/shopspring/decimal"
)

// Seed file names looked up by NewFromFiles.
const (
	AccountsFile = "seed_accounts.txt"
	EarningsFile = "seed_earnings.txt"
)

// DefaultAccount is used when no accounts are seeded.
var DefaultAccount = core.Account{Name: "accounts/pub-0000000000000000", DisplayName: "Demo publisher"}

// Entry is the amount earned on one day.
type Entry struct {
	Date     core.Date
	Amount   decimal.Decimal
	Currency string
}

// Store is an offline reporting backend over seeded daily earnings.
// Every credential sees the same accounts; all accounts share one ledger.
type Store struct {
	mu       sync.Mutex
	accounts []core.Account
	entries  []Entry
}

var _ ports.Backend = (*Store)(nil)

func New(accounts []core.Account, entries []Entry) *Store {
	return &Store{
		accounts: append([]core.Account(nil), accounts...),
		entries:  append([]Entry(nil), entries...),
	}
}

// NewFromFiles seeds a store from base/seed_accounts.txt and
// base/seed_earnings.txt. Missing files yield the demo account and no
// earnings; malformed earnings lines are reported.
func NewFromFiles(base string) (*Store, error) {
	accounts := parseAccounts(readLines(filepath.Join(base, AccountsFile)))
	if len(accounts) == 0 {
		accounts = []core.Account{DefaultAccount}
	}

	var entries []Entry
	for i, line := range readLines(filepath.Join(base, EarningsFile)) {
		e, err := ParseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", EarningsFile, i+1, err)
		}
		entries = append(entries, e)
	}
	return New(accounts, entries), nil
}

// ParseEntry parses "YYYY-MM-DD amount [currency]".
func ParseEntry(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return Entry{}, fmt.Errorf("want 'YYYY-MM-DD amount [currency]', got %q", line)
	}
	d, err := core.ParseDate(fields[0])
	if err != nil {
		return Entry{}, err
	}
	amount, err := core.ParseEarnings(fields[1])
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Date: d, Amount: amount, Currency: core.DefaultCurrency}
	if len(fields) == 3 {
		e.Currency = core.NormalizeCurrency(fields[2])
	}
	return e, nil
}

// Record adds a daily amount.
func (s *Store) Record(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// ListAccounts returns the seeded accounts.
func (s *Store) ListAccounts(_ context.Context, cred core.Credential) ([]core.Account, error) {
	if err := checkCredential(cred); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.accounts...), nil
}

// GenerateReport sums the entries inside w. A window without entries yields
// a report without rows, like the live API does.
func (s *Store) GenerateReport(_ context.Context, cred core.Credential, accountID string, w core.DateWindow) (core.ReportTable, error) {
	if err := checkCredential(cred); err != nil {
		return core.ReportTable{}, err
	}
	if strings.TrimSpace(accountID) == "" {
		return core.ReportTable{}, &core.UnexpectedError{Err: core.ErrEmptyAccountID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasAccount(accountID) {
		return core.ReportTable{}, &core.APIError{
			Status:  404,
			Message: fmt.Sprintf("Account %s not found.", accountID),
		}
	}

	var (
		total    = decimal.Zero
		currency string
		found    bool
	)
	for _, e := range s.entries {
		if !w.Contains(e.Date) {
			continue
		}
		if !found {
			currency = e.Currency
			found = true
		}
		total = total.Add(e.Amount)
	}

	table := core.ReportTable{
		Headers: []core.ReportHeader{{Name: core.MetricEstimatedEarnings, CurrencyCode: currency}},
	}
	if found {
		table.Rows = [][]string{{total.StringFixed(2)}}
	}
	return table, nil
}

func (s *Store) hasAccount(name string) bool {
	for _, a := range s.accounts {
		if a.Name == name {
			return true
		}
	}
	return false
}

func checkCredential(cred core.Credential) error {
	if strings.TrimSpace(string(cred)) == "" {
		return &core.AuthError{Err: errors.New("empty access token")}
	}
	return nil
}

// parseAccounts reads "accounts/pub-N [display name]" lines.
func parseAccounts(lines []string) []core.Account {
	var out []core.Account
	seen := map[string]struct{}{}
	for _, line := range lines {
		name, display, _ := strings.Cut(line, " ")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, core.Account{Name: name, DisplayName: strings.TrimSpace(display)})
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

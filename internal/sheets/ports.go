package sheets

import "context"

// StatementRow is one exported ledger line. Amounts are preformatted
// strings so the spreadsheet shows exactly what the API shows.
type StatementRow struct {
	TransactionID int64
	Date          string
	Type          string
	From          string
	To            string
	Amount        string
	Balance       string
	Comment       string
}

// Ports for outbound adapters.
type StatementWriter interface {
	AppendStatement(ctx context.Context, row StatementRow) (rowRef string, err error)
}

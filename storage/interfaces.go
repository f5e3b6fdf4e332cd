package storage

// RowStore is the interface any local durable store must satisfy. Rows are
// positional in models.CSVHeaders order and are only ever appended.
type RowStore interface {
	// ReadAll returns every stored data row, header excluded, in insertion order.
	ReadAll() ([][]string, error)
	Append(rows [][]string) error
	Close() error
}

package anomaly

import "context"

// Store persists anomaly records and scan history.
//
// Upsert keys on the record id. On insert the record lands exactly as given
// (status open, fresh created_at); on update only message, fix_hint, details,
// severity and updated_at change - status and resolution_note are operator
// property and never touched. Upsert reports whether anything was written, so
// a scan over unchanged data counts zero upserts.
type Store interface {
	Upsert(ctx context.Context, record Record) (bool, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	SetStatus(ctx context.Context, id string, status Status, note string) (*Record, error)

	RecordScan(ctx context.Context, run ScanRun) error
	LastScan(ctx context.Context) (*ScanRun, error)
}

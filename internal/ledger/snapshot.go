package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/coinjar/internal/model"
)

// SnapshotKey is the blob key the settlement snapshot is stored under.
const SnapshotKey = "settlements.v1"

// snapshotRecord is the on-disk shape of a settlement. It is private to the
// store and kept separate from the API JSON of model.Settlement.
type snapshotRecord struct {
	ID      string    `json:"id"`
	ChildID int64     `json:"childId"`
	Amount  int       `json:"amount"`
	Month   int       `json:"month"`
	Year    int       `json:"year"`
	PaidAt  time.Time `json:"paidAt"`
	Note    *string   `json:"note,omitempty"`
}

// EncodeSnapshot serializes settlements as an ordered JSON array.
func EncodeSnapshot(settlements []model.Settlement) ([]byte, error) {
	recs := make([]snapshotRecord, len(settlements))
	for i, s := range settlements {
		recs[i] = snapshotRecord{
			ID:      s.ID,
			ChildID: s.ChildID,
			Amount:  s.Amount,
			Month:   s.Month,
			Year:    s.Year,
			PaidAt:  s.PaidAt,
			Note:    s.Note,
		}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses the output of EncodeSnapshot.
func DecodeSnapshot(data []byte) ([]model.Settlement, error) {
	var recs []snapshotRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make([]model.Settlement, len(recs))
	for i, r := range recs {
		out[i] = model.Settlement{
			ID:      r.ID,
			ChildID: r.ChildID,
			Amount:  r.Amount,
			Month:   r.Month,
			Year:    r.Year,
			PaidAt:  r.PaidAt,
			Note:    r.Note,
		}
	}
	return out, nil
}

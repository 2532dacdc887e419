package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/GooferByte/wellness-rewards/internal/pricing"
)

// DateLayout is the calendar-date key used for every per-day field.
const DateLayout = "2006-01-02"

// RecordVersion is the current persistence format of Record.
const RecordVersion = 1

// ErrCorruptRecord indicates a stored record that cannot be decoded or violates its invariants.
var ErrCorruptRecord = errors.New("corrupt ledger record")

// DayKey formats t as a local calendar date.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}

// LedgerState is the durable balance of the wallet.
type LedgerState struct {
	CoinsTotal  int64 `json:"coinsTotal"`
	TodayEarned int64 `json:"todayEarned"`
	// EarnedDate is the calendar date TodayEarned accumulates for.
	EarnedDate string            `json:"earnedDate,omitempty"`
	AwardDate  map[string]string `json:"awardDate"`
}

// EarnedOn returns the amount earned on day; earnings recorded for another date count as zero.
func (s LedgerState) EarnedOn(day string) int64 {
	if s.EarnedDate != day {
		return 0
	}
	return s.TodayEarned
}

// AwardedOn reports whether actionID already received its award on day.
func (s LedgerState) AwardedOn(actionID, day string) bool {
	return s.AwardDate[actionID] == day
}

// Voucher is an issued reward instance with a one-time-use lifecycle.
type Voucher struct {
	ID           string        `json:"id"`
	RewardID     string        `json:"rewardId"`
	Provider     string        `json:"provider"`
	Title        string        `json:"title"`
	PriceAtIssue pricing.Price `json:"priceAtIssue"`
	Used         bool          `json:"used"`
	IssuedAt     time.Time     `json:"issuedAt"`
	UsedAt       *time.Time    `json:"usedAt,omitempty"`
}

// DailyCounter counts events on a single calendar date.
type DailyCounter struct {
	Date  string `json:"date,omitempty"`
	Count int64  `json:"count"`
}

// On returns the count for day, zero when the counter belongs to another date.
func (c DailyCounter) On(day string) int64 {
	if c.Date != day {
		return 0
	}
	return c.Count
}

// ChallengeDay lists the challenges completed on Date.
type ChallengeDay struct {
	Date  string   `json:"date,omitempty"`
	Items []string `json:"items"`
}

// On returns the challenges completed on day.
func (c ChallengeDay) On(day string) []string {
	if c.Date != day {
		return nil
	}
	return c.Items
}

// Record is the single composite unit written to the store. Every mutation
// rewrites the whole record under one key so ledger and vouchers always move together.
type Record struct {
	Version    int          `json:"version"`
	Ledger     LedgerState  `json:"ledger"`
	Vouchers   []Voucher    `json:"vouchers"`
	Redeems    DailyCounter `json:"redeems"`
	Challenges ChallengeDay `json:"challenges"`
}

// NewRecord returns the zero-default record used when the store holds nothing yet.
func NewRecord() *Record {
	return &Record{
		Version:  RecordVersion,
		Ledger:   LedgerState{AwardDate: map[string]string{}},
		Vouchers: []Voucher{},
	}
}

// Clone returns a deep copy that can be mutated without affecting r.
func (r *Record) Clone() *Record {
	out := *r
	out.Ledger.AwardDate = maps.Clone(r.Ledger.AwardDate)
	if out.Ledger.AwardDate == nil {
		out.Ledger.AwardDate = map[string]string{}
	}
	out.Vouchers = make([]Voucher, len(r.Vouchers))
	for i, v := range r.Vouchers {
		if v.UsedAt != nil {
			at := *v.UsedAt
			v.UsedAt = &at
		}
		out.Vouchers[i] = v
	}
	out.Challenges.Items = slices.Clone(r.Challenges.Items)
	return &out
}

// FindVoucher returns the index of the voucher with id, or -1.
func (r *Record) FindVoucher(id string) int {
	return slices.IndexFunc(r.Vouchers, func(v Voucher) bool { return v.ID == id })
}

// Validate checks the invariants a stored record must satisfy.
func (r *Record) Validate() error {
	if r.Ledger.CoinsTotal < 0 {
		return fmt.Errorf("%w: negative balance %d", ErrCorruptRecord, r.Ledger.CoinsTotal)
	}
	if r.Ledger.TodayEarned < 0 {
		return fmt.Errorf("%w: negative today earned %d", ErrCorruptRecord, r.Ledger.TodayEarned)
	}
	seen := make(map[string]struct{}, len(r.Vouchers))
	for _, v := range r.Vouchers {
		if v.ID == "" {
			return fmt.Errorf("%w: voucher without id", ErrCorruptRecord)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("%w: duplicate voucher %s", ErrCorruptRecord, v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	return nil
}

// Encode serializes the record for a single store write.
func (r *Record) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	return string(data), nil
}

// DecodeRecord parses a stored record and fills defaults for fields older versions lack.
func DecodeRecord(raw string) (*Record, error) {
	rec := NewRecord()
	if err := json.Unmarshal([]byte(raw), rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.Version > RecordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, rec.Version)
	}
	rec.Version = RecordVersion
	if rec.Ledger.AwardDate == nil {
		rec.Ledger.AwardDate = map[string]string{}
	}
	if rec.Vouchers == nil {
		rec.Vouchers = []Voucher{}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

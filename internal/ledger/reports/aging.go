package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/granary-books/granary/internal/ledger/openitems"
)

// DefaultAgingPeriods are the day boundaries the aging reports bucket by.
var DefaultAgingPeriods = []int{30, 60, 90, 120}

// AgingBucket is one day-range column with its total and item count.
type AgingBucket struct {
	Label string
	Total decimal.Decimal
	Count int
}

// AgingParty breaks one customer or vendor down across the buckets.
// Amounts is index-aligned with the report's bucket list.
type AgingParty struct {
	PartyID   int64
	PartyName string
	Amounts   []decimal.Decimal
	Total     decimal.Decimal
}

// AgingItem is one contributing open invoice or bill.
type AgingItem struct {
	ItemID         int64
	PartyID        int64
	PartyName      string
	DocumentNumber string
	IssueDate      time.Time
	DueDate        time.Time
	AmountDue      decimal.Decimal
	DaysOverdue    int
	Bucket         string
}

// Aging is the AR or AP aging report.
type Aging struct {
	Kind    openitems.Kind
	AsOf    time.Time
	Periods []int
	Buckets []AgingBucket
	Parties []AgingParty
	Items   []AgingItem
	Total   decimal.Decimal
}

// BucketLabels names the buckets for a period list: "Current", then
// "{prev+1}-{boundary} days" per boundary, then "Over {last} days".
func BucketLabels(periods []int) []string {
	labels := make([]string, 0, len(periods)+2)
	labels = append(labels, "Current")
	prev := 0
	for _, boundary := range periods {
		labels = append(labels, fmt.Sprintf("%d-%d days", prev+1, boundary))
		prev = boundary
	}
	labels = append(labels, fmt.Sprintf("Over %d days", prev))
	return labels
}

// bucketIndex assigns daysOverdue to a bucket. Boundaries are inclusive:
// an item exactly periods[i] days overdue lands in bucket i+1 (after
// "Current"); anything past the last boundary lands in the overflow bucket.
func bucketIndex(daysOverdue int, periods []int) int {
	if daysOverdue <= 0 {
		return 0
	}
	for i, boundary := range periods {
		if daysOverdue <= boundary {
			return i + 1
		}
	}
	return len(periods) + 1
}

// daysBetween counts whole days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// BuildAging partitions open items into aging buckets as of a date. The
// buckets are a total, non-overlapping partition: every item lands in
// exactly one.
func BuildAging(kind openitems.Kind, asOf time.Time, periods []int, items []openitems.OpenItem) Aging {
	if len(periods) == 0 {
		periods = DefaultAgingPeriods
	}
	labels := BucketLabels(periods)

	report := Aging{
		Kind:    kind,
		AsOf:    asOf,
		Periods: periods,
		Total:   decimal.Zero,
	}
	for _, label := range labels {
		report.Buckets = append(report.Buckets, AgingBucket{Label: label, Total: decimal.Zero})
	}

	parties := make(map[int64]*AgingParty)
	var partyOrder []int64
	for _, item := range items {
		overdue := daysBetween(item.DueDate, asOf)
		idx := bucketIndex(overdue, periods)

		report.Buckets[idx].Total = report.Buckets[idx].Total.Add(item.AmountDue)
		report.Buckets[idx].Count++
		report.Total = report.Total.Add(item.AmountDue)

		party, ok := parties[item.PartyID]
		if !ok {
			party = &AgingParty{PartyID: item.PartyID, PartyName: item.PartyName, Total: decimal.Zero}
			party.Amounts = make([]decimal.Decimal, len(labels))
			for i := range party.Amounts {
				party.Amounts[i] = decimal.Zero
			}
			parties[item.PartyID] = party
			partyOrder = append(partyOrder, item.PartyID)
		}
		party.Amounts[idx] = party.Amounts[idx].Add(item.AmountDue)
		party.Total = party.Total.Add(item.AmountDue)

		report.Items = append(report.Items, AgingItem{
			ItemID:         item.ID,
			PartyID:        item.PartyID,
			PartyName:      item.PartyName,
			DocumentNumber: item.DocumentNumber,
			IssueDate:      item.IssueDate,
			DueDate:        item.DueDate,
			AmountDue:      item.AmountDue,
			DaysOverdue:    overdue,
			Bucket:         labels[idx],
		})
	}

	sort.Slice(partyOrder, func(i, j int) bool {
		return parties[partyOrder[i]].PartyName < parties[partyOrder[j]].PartyName
	})
	for _, id := range partyOrder {
		report.Parties = append(report.Parties, *parties[id])
	}
	return report
}

// internal/ledger/record.go
package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/membership"
	"gymnexus/internal/timezone"
)

// Category labels a cash movement. Labels are matched exactly when
// reports group records.
type Category string

const (
	CategoryMembershipSale    Category = "membership sale"
	CategoryMembershipPayment Category = "membership payment"
	CategoryMembershipRenewal Category = "membership renewal"
	CategorySingleEntry       Category = "single entry"
	CategoryDeposit           Category = "deposit"
)

var (
	membershipCategories = map[Category]bool{
		CategoryMembershipSale:    true,
		CategoryMembershipPayment: true,
		CategoryMembershipRenewal: true,
	}
	singleEntryCategories = map[Category]bool{
		CategorySingleEntry: true,
	}
)

func (c Category) Valid() bool {
	return membershipCategories[c] || singleEntryCategories[c] || c == CategoryDeposit
}

const stampLayout = timezone.DateLayout + " " + timezone.TimeLayout

// CashRecord is one immutable line of the cash ledger:
//
//	date;time;category;amount
type CashRecord struct {
	At       time.Time `json:"at"`
	Category Category  `json:"category"`
	Amount   int64     `json:"amount"`
}

func (r CashRecord) Line() string {
	return strings.Join([]string{
		r.At.Format(timezone.DateLayout),
		r.At.Format(timezone.TimeLayout),
		string(r.Category),
		strconv.FormatInt(r.Amount, 10),
	}, ";")
}

// ParseCashRecord decodes a cash ledger line. Fields are read by
// position; anything after the amount is ignored.
func ParseCashRecord(line string) (CashRecord, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ";")
	if len(fields) < 4 {
		return CashRecord{}, fmt.Errorf("%w: cash line has %d fields, want 4", gymerr.ErrMalformedRecord, len(fields))
	}
	at, err := parseStamp(fields[0], fields[1])
	if err != nil {
		return CashRecord{}, err
	}
	amount, err := ParseAmount(fields[3])
	if err != nil {
		return CashRecord{}, fmt.Errorf("%w: %v", gymerr.ErrMalformedRecord, err)
	}
	return CashRecord{
		At:       at,
		Category: Category(strings.TrimSpace(fields[2])),
		Amount:   amount,
	}, nil
}

// EntryRecord is one immutable line of the entry log:
//
//	date;time;clientId;externalId;name;membership[;reason]
//
// The membership field is true, false or none.
type EntryRecord struct {
	At         time.Time               `json:"at"`
	ClientID   int                     `json:"client_id"`
	ExternalID string                  `json:"external_id"`
	Name       string                  `json:"name"`
	Membership membership.PaymentState `json:"membership"`
	Reason     string                  `json:"reason,omitempty"`
}

var reasonCleaner = strings.NewReplacer(";", ",", "\n", " ", "\r", " ")

func (r EntryRecord) Line() string {
	fields := []string{
		r.At.Format(timezone.DateLayout),
		r.At.Format(timezone.TimeLayout),
		strconv.Itoa(r.ClientID),
		r.ExternalID,
		r.Name,
		encodePayment(r.Membership),
	}
	if reason := strings.TrimSpace(reasonCleaner.Replace(r.Reason)); reason != "" {
		fields = append(fields, reason)
	}
	return strings.Join(fields, ";")
}

// ParseEntryRecord decodes an entry log line. The trailing reason is
// optional.
func ParseEntryRecord(line string) (EntryRecord, error) {
	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), ";", 7)
	if len(fields) < 6 {
		return EntryRecord{}, fmt.Errorf("%w: entry line has %d fields, want at least 6", gymerr.ErrMalformedRecord, len(fields))
	}
	at, err := parseStamp(fields[0], fields[1])
	if err != nil {
		return EntryRecord{}, err
	}
	clientID, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return EntryRecord{}, fmt.Errorf("%w: client id %q", gymerr.ErrMalformedRecord, fields[2])
	}
	state, err := decodePayment(fields[5])
	if err != nil {
		return EntryRecord{}, err
	}
	rec := EntryRecord{
		At:         at,
		ClientID:   clientID,
		ExternalID: fields[3],
		Name:       fields[4],
		Membership: state,
	}
	if len(fields) == 7 {
		rec.Reason = fields[6]
	}
	return rec, nil
}

func parseStamp(date, clock string) (time.Time, error) {
	at, err := time.Parse(stampLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q %q", gymerr.ErrMalformedRecord, date, clock)
	}
	return at, nil
}

func encodePayment(s membership.PaymentState) string {
	switch s {
	case membership.PaymentPaid:
		return "true"
	case membership.PaymentPending:
		return "false"
	default:
		return "none"
	}
}

func decodePayment(s string) (membership.PaymentState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return membership.PaymentPaid, nil
	case "false":
		return membership.PaymentPending, nil
	case "none", "":
		return membership.PaymentNone, nil
	default:
		return "", fmt.Errorf("%w: membership state %q", gymerr.ErrMalformedRecord, s)
	}
}

// ParseAmount reads a whole-peso amount written with or without grouping
// separators. Underscores and spaces are always grouping. When both '.'
// and ',' appear, the last one is the decimal mark and the other groups
// thousands. A lone separator groups when every group after the first has
// three digits; otherwise it must be a single decimal mark over a zero
// fraction.
func ParseAmount(s string) (int64, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.NewReplacer("_", "", " ", "").Replace(s)

	digits, ok := wholeAmount(s)
	if !ok {
		return 0, fmt.Errorf("amount %q is not a whole number", raw)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}
	return n, nil
}

func wholeAmount(s string) (string, bool) {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		mark, group := dot, ","
		if comma > dot {
			mark, group = comma, "."
		}
		if strings.Trim(s[mark+1:], "0") != "" {
			return "", false
		}
		return ungroup(s[:mark], group)
	case dot >= 0:
		return groupedOrZeroFraction(s, ".")
	case comma >= 0:
		return groupedOrZeroFraction(s, ",")
	}
	return s, true
}

func groupedOrZeroFraction(s, sep string) (string, bool) {
	if digits, ok := ungroup(s, sep); ok {
		return digits, true
	}
	parts := strings.Split(s, sep)
	if len(parts) == 2 && strings.Trim(parts[1], "0") == "" {
		return parts[0], true
	}
	return "", false
}

// ungroup drops sep from s when it separates thousands.
func ungroup(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	if len(parts) == 1 {
		return s, true
	}
	head := strings.TrimPrefix(parts[0], "-")
	if len(head) == 0 || len(head) > 3 {
		return "", false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

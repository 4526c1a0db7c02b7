// internal/gym/importer.go
package gym

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gymnexus/internal/gymerr"
	"gymnexus/internal/timezone"
	"gymnexus/internal/validate"
)

// ImportResult counts the rows of a bulk client import. Rows counts data
// rows only: the header and blank lines are not rows.
type ImportResult struct {
	Rows     int       `json:"rows"`
	Imported int       `json:"imported"`
	Failures []Failure `json:"failures,omitempty"`
	Warnings []Failure `json:"warnings,omitempty"`
}

// Percent is the share of rows imported, 0 when there were none.
func (r *ImportResult) Percent() float64 {
	if r.Rows == 0 {
		return 0
	}
	return float64(r.Imported) * 100 / float64(r.Rows)
}

// FailedLines lists the line numbers that were rejected.
func (r *ImportResult) FailedLines() []int {
	out := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Line)
	}
	return out
}

type importRow struct {
	name, externalID, phone string
	registeredAt            time.Time
	membership              *MembershipRequest
}

const importFields = 7

// ImportClients reads a header line followed by rows of
//
//	name;externalId;phone;registrationDate;membershipPaid;membershipStart;membershipEnd
//
// An empty, "-" or "none" membershipPaid means the client has no
// membership. Bad rows are reported by line number and never stop the
// batch. Imported memberships are history and are not charged.
func (s *service) ImportClients(ctx context.Context, r io.Reader) (_ *ImportResult, err error) {
	defer func() { s.done("import_clients", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today()
	res := &ImportResult{}
	sc := bufio.NewScanner(r)
	header := true
	line := 0

	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		res.Rows++

		row, err := parseImportRow(text, today)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Line: line, Kind: kindOf(err), Message: err.Error()})
			continue
		}
		c, err := s.registry.Create(row.name, row.externalID, row.phone, row.registeredAt)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Line: line, Kind: kindOf(err), Message: err.Error()})
			continue
		}
		if row.membership != nil {
			m, adj := s.settings.Policy.New(today, row.membership.Start, row.membership.End, row.membership.Paid)
			if err := s.registry.AttachMembership(c.ID, m); err != nil {
				res.Warnings = append(res.Warnings, Failure{Line: line, Kind: kindOf(err), Message: err.Error()})
			}
			if adj != nil {
				res.Warnings = append(res.Warnings, Failure{Line: line, Kind: "Adjusted", Message: adj.String()})
			}
		}
		res.Imported++
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read import: %w", err)
	}

	s.metrics.SetLiveClients(s.registry.Live())
	s.logger.WithFields(logrus.Fields{
		"rows":     res.Rows,
		"imported": res.Imported,
		"failed":   len(res.Failures),
	}).Info("client import finished")
	return res, nil
}

func parseImportRow(text string, today time.Time) (*importRow, error) {
	fields := strings.Split(text, ";")
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: %d fields, want at least 4", gymerr.ErrMalformedRecord, len(fields))
	}
	for len(fields) < importFields {
		fields = append(fields, "")
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	row := &importRow{
		name:         fields[0],
		externalID:   fields[1],
		phone:        fields[2],
		registeredAt: today,
	}
	if absent(row.phone) {
		row.phone = ""
	}
	if fields[3] != "" {
		d, err := parseImportDate(fields[3])
		if err != nil {
			return nil, err
		}
		row.registeredAt = d
	}

	if absent(fields[4]) {
		return row, nil
	}
	paid, err := parsePaid(fields[4])
	if err != nil {
		return nil, err
	}
	req := &MembershipRequest{Paid: paid}
	if fields[5] != "" {
		d, err := parseImportDate(fields[5])
		if err != nil {
			return nil, err
		}
		req.Start = &d
	}
	if fields[6] != "" {
		d, err := parseImportDate(fields[6])
		if err != nil {
			return nil, err
		}
		req.End = &d
	}
	row.membership = req
	return row, nil
}

func absent(s string) bool {
	switch strings.ToLower(s) {
	case "", "-", "none", "null":
		return true
	}
	return false
}

func parsePaid(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	if validate.IsYesNo(s) {
		return validate.YesNo(s), nil
	}
	return false, fmt.Errorf("%w: membership paid flag %q", gymerr.ErrInvalidFormat, s)
}

// parseImportDate accepts ISO dates and the day-first dates older exports
// were written with.
func parseImportDate(s string) (time.Time, error) {
	if d, err := timezone.ParseDate(s); err == nil {
		return d, nil
	}
	if d, err := time.Parse("02/01/2006", s); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or DD/MM/YYYY", gymerr.ErrInvalidFormat, s)
}

package ledger

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportUsers writes every ledger user to w as "json" or "csv".
func (s *Store) ExportUsers(w io.Writer, format string) error {
	users, err := s.ListUsers(0, 0)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"user_id", "display_name", "acquisition_tag", "consent_granted", "consent_at", "first_seen_at", "last_seen_at"}); err != nil {
			return err
		}
		for _, u := range users {
			consentAt := ""
			if u.ConsentAt != nil {
				consentAt = u.ConsentAt.Format(time.RFC3339)
			}
			rec := []string{
				strconv.FormatInt(u.UserID, 10),
				u.DisplayName,
				u.AcquisitionTag,
				strconv.FormatBool(u.ConsentGranted),
				consentAt,
				u.FirstSeenAt.Format(time.RFC3339),
				u.LastSeenAt.Format(time.RFC3339),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported export format %q (want json or csv)", format)
	}
}

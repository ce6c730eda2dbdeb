package identity

import (
	"context"
	"time"

	"github.com/TaxEnough/taxenough/core"
)

// LogSignin implements core.SigninAuditLogger. Writes are best-effort:
// callers ignore errors so a slow audit table never fails a login.
func (s *Store) LogSignin(ctx context.Context, subject string, source core.Source, ip, userAgent string, at time.Time) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO signin_audit (subject, source, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		subject, string(source), ip, userAgent, at.UTC())
	return err
}

// PurgeSigninAuditBefore deletes audit rows older than the cutoff. Returns
// the number of rows removed; the retention cron sweep logs it.
func (s *Store) PurgeSigninAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pg.Exec(ctx, `DELETE FROM signin_audit WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

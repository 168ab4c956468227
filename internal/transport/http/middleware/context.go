package middleware

import "context"

type ctxKey int

const (
	ctxKeyUser ctxKey = iota
	ctxKeyRequestID
)

// UserContext is the authenticated caller as seen by handlers. Role is
// admin, staff, or guard; guards carry their guard ID as UserID.
type UserContext struct {
	UserID string
	OrgID  string
	Role   string
	SiteID *string
	Name   string
}

func GetUser(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(UserContext)
	return user, ok
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

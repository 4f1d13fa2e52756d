package audit

import "context"

// Writer is the audit sink. It is write-only from the core's perspective and
// joins the caller's transaction when one is present in ctx.
type Writer interface {
	Append(ctx context.Context, entry Entry) error
}

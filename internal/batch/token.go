package batch

import "context"

// Token is the batch-wide cancellation flag. It is set at most once and
// never reset. Cancellation is cooperative: it stops new dequeues and new
// attempts but leaves in-flight attempts to finish.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken returns an unset token. Cancelling parent sets it as well,
// and the change is visible to Cancelled as soon as parent's cancel returns.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel sets the token. Calling it again has no effect.
func (t *Token) Cancel() {
	t.cancel()
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.ctx.Err() != nil
}

// Done is closed once the token is set.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns a context that is cancelled with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Package sessionstore persists dialogue sessions between turns. The engine
// is stateless, so every transport loads the session here before a turn and
// saves the result after; an expired key means the caller starts over.
package sessionstore

import (
	"context"
	"errors"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
)

// DefaultTTL is how long an idle session survives. Calls rarely pause for
// more than a minute; half an hour comfortably covers holds and transfers.
const DefaultTTL = 30 * time.Minute

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("sessionstore: session not found")

// Store is the per-turn session persistence surface.
type Store interface {
	Load(ctx context.Context, id string) (dialog.Session, error)
	Save(ctx context.Context, sess dialog.Session) error
	Delete(ctx context.Context, id string) error
}

package service

import (
	"context"
	"log"
)

// CurrencyLedger credits bits to a student's wallet. The challenge engine
// only computes what should be credited; balances live elsewhere.
type CurrencyLedger interface {
	Credit(ctx context.Context, studentID, classroomID int64, amount int, reason string) (newBalance int, err error)
}

// XPService awards experience for reward events using classroom-level
// conversion rates that are opaque to this module.
type XPService interface {
	Award(ctx context.Context, studentID, classroomID int64, xpAmount int, reason string) error
}

// Notification is the message content produced by the engine. Delivery is
// the notifier's concern.
type Notification struct {
	UserID  int64
	Email   string // resolved by the caller; empty when unknown
	Kind    string
	Subject string
	Message string
}

// Notifier delivers notifications (series completion, resets, stat changes)
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RemoteArtifactHost stages per-student files on an external code-hosting
// remote. Best-effort only: callers log failures and carry on.
type RemoteArtifactHost interface {
	IsEnabled() bool
	StageFile(ctx context.Context, branch, path, content string) error
}

// LogLedger is a CurrencyLedger that only logs; used when no wallet backend
// is wired into the deployment.
type LogLedger struct{}

func (LogLedger) Credit(ctx context.Context, studentID, classroomID int64, amount int, reason string) (int, error) {
	log.Printf("Ledger credit: student=%d classroom=%d amount=%d reason=%s", studentID, classroomID, amount, reason)
	return 0, nil
}

// LogXP is an XPService that only logs
type LogXP struct{}

func (LogXP) Award(ctx context.Context, studentID, classroomID int64, xpAmount int, reason string) error {
	log.Printf("XP award: student=%d classroom=%d xp=%d reason=%s", studentID, classroomID, xpAmount, reason)
	return nil
}

// LogNotifier is a Notifier that only logs
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Printf("Notification: user=%d kind=%s subject=%s", n.UserID, n.Kind, n.Subject)
	return nil
}
